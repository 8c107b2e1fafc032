package service

import (
	"strings"
	"time"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/repository"
)

// CashDrawerService manages cashier drawer sessions: one open session per
// cashier, expected balance derived from settled cash payments, variance
// recorded at close and never silently corrected.
type CashDrawerService struct {
	drawerRepo  repository.CashDrawerRepository
	paymentRepo repository.PaymentRepository
}

// NewCashDrawerService creates the drawer service.
func NewCashDrawerService(drawerRepo repository.CashDrawerRepository, paymentRepo repository.PaymentRepository) *CashDrawerService {
	return &CashDrawerService{drawerRepo: drawerRepo, paymentRepo: paymentRepo}
}

// OpenDrawer starts a session with a counted opening float.
func (s *CashDrawerService) OpenDrawer(tenantID, cashierID uint, openingBalance int64) (*models.CashDrawerSession, error) {
	if tenantID == 0 || cashierID == 0 || openingBalance < 0 {
		return nil, ErrDrawerInvalid
	}
	existing, err := s.drawerRepo.GetOpenByCashier(tenantID, cashierID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if existing != nil {
		return nil, ErrDrawerAlreadyOpen
	}

	now := time.Now().UTC()
	session := &models.CashDrawerSession{
		TenantID:       tenantID,
		CashierID:      cashierID,
		Status:         constants.DrawerSessionOpen,
		OpeningBalance: openingBalance,
		OpenedAt:       now,
	}
	if err := s.drawerRepo.Create(session); err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	paymentLogger(
		"tenant_id", tenantID,
		"cashier_id", cashierID,
		"drawer_session_id", session.ID,
		"opening_balance", openingBalance,
	).Infow("cash_drawer_opened")
	return session, nil
}

// CurrentDrawer returns the open session with its running expected balance.
func (s *CashDrawerService) CurrentDrawer(tenantID, cashierID uint) (*models.CashDrawerSession, int64, error) {
	session, err := s.drawerRepo.GetOpenByCashier(tenantID, cashierID)
	if err != nil {
		return nil, 0, ErrPaymentUpdateFailed
	}
	if session == nil {
		return nil, 0, ErrDrawerNotOpen
	}
	expected, err := s.expectedBalance(session, time.Now().UTC())
	if err != nil {
		return nil, 0, ErrPaymentUpdateFailed
	}
	return session, expected, nil
}

// CloseDrawer ends a session against a counted closing balance. The variance
// is counted minus expected: negative means the drawer is short.
func (s *CashDrawerService) CloseDrawer(tenantID, cashierID uint, closingBalance int64, notes string) (*models.CashDrawerSession, error) {
	if tenantID == 0 || cashierID == 0 || closingBalance < 0 {
		return nil, ErrDrawerInvalid
	}
	session, err := s.drawerRepo.GetOpenByCashier(tenantID, cashierID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if session == nil {
		return nil, ErrDrawerNotOpen
	}

	now := time.Now().UTC()
	expected, err := s.expectedBalance(session, now)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	variance := closingBalance - expected

	session.Status = constants.DrawerSessionClosed
	session.ClosingBalance = &closingBalance
	session.ExpectedBalance = &expected
	session.Variance = &variance
	session.VarianceNotes = strings.TrimSpace(notes)
	session.ClosedAt = &now
	if err := s.drawerRepo.Update(session); err != nil {
		return nil, ErrPaymentUpdateFailed
	}

	log := paymentLogger(
		"tenant_id", tenantID,
		"cashier_id", cashierID,
		"drawer_session_id", session.ID,
		"expected_balance", expected,
		"closing_balance", closingBalance,
		"variance", variance,
	)
	if variance != 0 {
		log.Warnw("cash_drawer_closed_with_variance")
	} else {
		log.Infow("cash_drawer_closed")
	}
	return session, nil
}

// expectedBalance is the opening float plus net settled cash taken while the
// session was open.
func (s *CashDrawerService) expectedBalance(session *models.CashDrawerSession, until time.Time) (int64, error) {
	cashTotal, err := s.paymentRepo.SumCashSuccess(session.TenantID, repository.ReconciliationWindow{
		TenantID: session.TenantID,
		From:     session.OpenedAt,
		To:       until,
	})
	if err != nil {
		return 0, err
	}
	return session.OpeningBalance + cashTotal, nil
}
