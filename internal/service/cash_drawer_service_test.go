package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupDrawerServiceTest(t *testing.T) (*CashDrawerService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:drawer_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Payment{}, &models.CashDrawerSession{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewCashDrawerService(
		repository.NewCashDrawerRepository(db),
		repository.NewPaymentRepository(db),
	)
	return svc, db
}

func recordCashSale(t *testing.T, db *gorm.DB, tenantID uint, amount int64, idemKey string, completedAt time.Time) {
	t.Helper()
	record := models.Payment{
		TenantID:       tenantID,
		OrderRef:       "ORD-" + idemKey,
		IdempotencyKey: idemKey,
		ProviderCode:   constants.ProviderCash,
		Amount:         amount,
		Currency:       "XOF",
		Status:         constants.PaymentStatusSuccess,
		InitiatedAt:    completedAt,
		CompletedAt:    &completedAt,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed cash sale failed: %v", err)
	}
}

func TestOpenDrawerRejectsSecondOpen(t *testing.T) {
	svc, _ := setupDrawerServiceTest(t)
	if _, err := svc.OpenDrawer(1, 7, 50000); err != nil {
		t.Fatalf("open drawer failed: %v", err)
	}
	if _, err := svc.OpenDrawer(1, 7, 1000); err != ErrDrawerAlreadyOpen {
		t.Fatalf("want ErrDrawerAlreadyOpen got %v", err)
	}
	// another cashier is unaffected
	if _, err := svc.OpenDrawer(1, 8, 20000); err != nil {
		t.Fatalf("second cashier open failed: %v", err)
	}
}

func TestCloseDrawerComputesVariance(t *testing.T) {
	svc, db := setupDrawerServiceTest(t)
	session, err := svc.OpenDrawer(1, 7, 50000)
	if err != nil {
		t.Fatalf("open drawer failed: %v", err)
	}

	saleTime := session.OpenedAt
	recordCashSale(t, db, 1, 3000, "drawer-sale-1", saleTime)
	recordCashSale(t, db, 1, 7000, "drawer-sale-2", saleTime)

	// counted 59,500 against an expected 60,000: 500 short
	closed, err := svc.CloseDrawer(1, 7, 59500, "petit écart de caisse")
	if err != nil {
		t.Fatalf("close drawer failed: %v", err)
	}
	if closed.ExpectedBalance == nil || *closed.ExpectedBalance != 60000 {
		t.Fatalf("expected balance wrong: %+v", closed.ExpectedBalance)
	}
	if closed.Variance == nil || *closed.Variance != -500 {
		t.Fatalf("variance wrong: %+v", closed.Variance)
	}
	if closed.Status != constants.DrawerSessionClosed {
		t.Fatalf("session not closed: %s", closed.Status)
	}
	if closed.ClosedAt == nil {
		t.Fatalf("close time missing")
	}

	if _, err := svc.CloseDrawer(1, 7, 0, ""); err != ErrDrawerNotOpen {
		t.Fatalf("closing twice must fail with ErrDrawerNotOpen, got %v", err)
	}
}

func TestCurrentDrawerReportsRunningExpected(t *testing.T) {
	svc, db := setupDrawerServiceTest(t)
	session, err := svc.OpenDrawer(1, 7, 10000)
	if err != nil {
		t.Fatalf("open drawer failed: %v", err)
	}
	recordCashSale(t, db, 1, 2500, "drawer-cur-1", session.OpenedAt)

	current, expected, err := svc.CurrentDrawer(1, 7)
	if err != nil {
		t.Fatalf("current drawer failed: %v", err)
	}
	if current.ID != session.ID {
		t.Fatalf("wrong session returned")
	}
	if expected != 12500 {
		t.Fatalf("want 12500 got %d", expected)
	}

	if _, _, err := svc.CurrentDrawer(1, 99); err != ErrDrawerNotOpen {
		t.Fatalf("want ErrDrawerNotOpen got %v", err)
	}
}
