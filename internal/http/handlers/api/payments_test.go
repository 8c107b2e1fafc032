package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teranga-pos/payments/internal/config"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/provider"
	"github.com/teranga-pos/payments/internal/queue"
	"github.com/teranga-pos/payments/internal/repository"
	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentMethod{}, &models.Payment{}, &models.CashDrawerSession{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	drawerRepo := repository.NewCashDrawerRepository(db)
	queueClient, _ := queue.NewClient(nil)
	paymentCfg := &config.PaymentConfig{
		ProviderTimeoutSeconds:  5,
		IdempotencyTTLHours:     24,
		WebhookToleranceSeconds: 300,
		PollMaxAttempts:         12,
		PollIntervalSeconds:     300,
		PollInitialDelaySeconds: 60,
	}

	container := &provider.Container{
		Config:                &config.Config{Payment: *paymentCfg},
		QueueClient:           queueClient,
		PaymentRepo:           paymentRepo,
		PaymentMethodRepo:     methodRepo,
		CashDrawerRepo:        drawerRepo,
		PaymentService:        service.NewPaymentService(db, paymentRepo, methodRepo, drawerRepo, queueClient, paymentCfg),
		CashDrawerService:     service.NewCashDrawerService(drawerRepo, paymentRepo),
		ReconciliationService: service.NewReconciliationService(paymentRepo),
	}
	handler := New(container)

	r := gin.New()
	authed := r.Group("/api/v1")
	authed.Use(func(c *gin.Context) {
		c.Set("tenant_id", uint(1))
		c.Set("cashier_id", uint(2))
		c.Next()
	})
	authed.POST("/payments", handler.CreatePayment)
	authed.GET("/payments/:id", handler.GetPayment)
	authed.GET("/payments", handler.ListPayments)
	authed.POST("/cash-drawer/open", handler.OpenDrawer)
	authed.GET("/cash-drawer/current", handler.CurrentDrawer)
	authed.POST("/cash-drawer/close", handler.CloseDrawer)
	authed.GET("/reconciliation", handler.ReconciliationReport)

	// Same routes without auth context, for the 401 paths.
	r.POST("/bare/payments", handler.CreatePayment)

	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var resp struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope failed: %v (%s)", err, w.Body.String())
	}
	return resp.StatusCode, resp.Data
}

func TestCreateCashPaymentOverHTTP(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/cash-drawer/open", gin.H{"opening_balance": 50000})
	if w.Code != http.StatusCreated {
		t.Fatalf("open drawer want 201 got %d: %s", w.Code, w.Body.String())
	}

	body := gin.H{
		"order_ref":       "ORD-HTTP-1",
		"provider_code":   "cash",
		"amount":          3000,
		"currency":        "XOF",
		"idempotency_key": "http-idem-1",
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/payments", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("fresh payment want 201 got %d: %s", w.Code, w.Body.String())
	}
	code, data := envelope(t, w)
	if code != 0 {
		t.Fatalf("status_code want 0 got %d", code)
	}
	if data["is_duplicate"] != false {
		t.Fatalf("fresh payment should not be a duplicate: %v", data)
	}

	// Same idempotency key replays the original record over HTTP 200.
	w = doJSON(t, r, http.MethodPost, "/api/v1/payments", body)
	if w.Code != http.StatusOK {
		t.Fatalf("replay want 200 got %d: %s", w.Code, w.Body.String())
	}
	_, data = envelope(t, w)
	if data["is_duplicate"] != true {
		t.Fatalf("replay should be flagged duplicate: %v", data)
	}
}

func TestCreatePaymentWithoutDrawerFails(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/payments", gin.H{
		"order_ref":       "ORD-HTTP-2",
		"provider_code":   "cash",
		"amount":          1000,
		"currency":        "XOF",
		"idempotency_key": "http-idem-2",
	})
	code, _ := envelope(t, w)
	if code != 400 {
		t.Fatalf("cash without drawer want business code 400 got %d: %s", code, w.Body.String())
	}
}

func TestCreatePaymentRequiresAuthContext(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodPost, "/bare/payments", gin.H{
		"order_ref":       "ORD-HTTP-3",
		"provider_code":   "cash",
		"amount":          1000,
		"currency":        "XOF",
		"idempotency_key": "http-idem-3",
	})
	code, _ := envelope(t, w)
	if code != 401 {
		t.Fatalf("missing auth context want 401 got %d", code)
	}
}

func TestCreatePaymentRejectsBadBody(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/payments", gin.H{"order_ref": "ORD-HTTP-4"})
	code, _ := envelope(t, w)
	if code != 400 {
		t.Fatalf("missing fields want 400 got %d: %s", code, w.Body.String())
	}
}

func TestDrawerCloseOverHTTP(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/cash-drawer/open", gin.H{"opening_balance": 20000})
	if w.Code != http.StatusCreated {
		t.Fatalf("open want 201 got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/cash-drawer/current", nil)
	_, data := envelope(t, w)
	if data["expected_balance"] != float64(20000) {
		t.Fatalf("expected balance want 20000 got %v", data["expected_balance"])
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/cash-drawer/close", gin.H{
		"closing_balance": 19500,
		"variance_notes":  "petit écart",
	})
	code, _ := envelope(t, w)
	if code != 0 {
		t.Fatalf("close want 0 got %d: %s", code, w.Body.String())
	}

	// Closing again without an open session is rejected.
	w = doJSON(t, r, http.MethodPost, "/api/v1/cash-drawer/close", gin.H{"closing_balance": 0})
	code, _ = envelope(t, w)
	if code != 400 {
		t.Fatalf("double close want 400 got %d", code)
	}
}

func TestReconciliationQueryValidation(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/reconciliation", nil)
	code, _ := envelope(t, w)
	if code != 400 {
		t.Fatalf("missing dates want 400 got %d", code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/reconciliation?date=2026-03-01", nil)
	code, data := envelope(t, w)
	if code != 0 {
		t.Fatalf("valid date want 0 got %d: %s", code, w.Body.String())
	}
	if data["tenant_id"] != float64(1) {
		t.Fatalf("report tenant want 1 got %v", data["tenant_id"])
	}
}
