package callbacks

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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

func setupCallbackTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:callback_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	paymentCfg := &config.PaymentConfig{ProviderTimeoutSeconds: 5, WebhookToleranceSeconds: 300}

	container := &provider.Container{
		Config:         &config.Config{Payment: *paymentCfg},
		QueueClient:    queueClient,
		PaymentService: service.NewPaymentService(db, paymentRepo, methodRepo, drawerRepo, queueClient, paymentCfg),
	}
	handler := New(container)

	r := gin.New()
	r.POST("/callbacks/:tenant_id/:provider", handler.Receive)
	return r
}

func postCallback(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveRejectsUnknownTenant(t *testing.T) {
	r := setupCallbackTest(t)

	for _, path := range []string{"/callbacks/0/wave", "/callbacks/abc/wave"} {
		w := postCallback(r, path, `{"id":"evt-1"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s want 404 got %d", path, w.Code)
		}
	}
}

func TestReceiveRejectsUnsupportedProvider(t *testing.T) {
	r := setupCallbackTest(t)

	// cash has no webhook surface, arbitrary codes even less so
	for _, code := range []string{"cash", "stripe", ""} {
		w := postCallback(r, "/callbacks/1/"+code, `{"id":"evt-2"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("provider %q want 404 got %d", code, w.Code)
		}
	}
}

func TestReceiveAcksInlineWhenQueueDisabled(t *testing.T) {
	r := setupCallbackTest(t)

	// No payment method configured for the tenant: the callback is still
	// acknowledged so the provider stops retrying, and dropped internally.
	w := postCallback(r, "/callbacks/1/wave", `{"id":"evt-3","status":"succeeded"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"accepted":true`) {
		t.Fatalf("body should report accepted: %s", w.Body.String())
	}
}
