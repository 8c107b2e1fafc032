package service

import (
	"time"

	"github.com/teranga-pos/payments/internal/repository"
)

// ReconciliationService builds the per-provider settlement report merchants
// check against provider statements.
type ReconciliationService struct {
	paymentRepo repository.PaymentRepository
}

// NewReconciliationService creates the reconciliation service.
func NewReconciliationService(paymentRepo repository.PaymentRepository) *ReconciliationService {
	return &ReconciliationService{paymentRepo: paymentRepo}
}

// ReconciliationReport is one tenant's per-provider totals over a window.
type ReconciliationReport struct {
	TenantID       uint                        `json:"tenant_id"`
	From           time.Time                   `json:"from"`
	To             time.Time                   `json:"to"`
	Providers      []repository.ProviderTotals `json:"providers"`
	TotalCollected int64                       `json:"total_collected"`
	TotalRefunded  int64                       `json:"total_refunded"`
	TotalPending   int64                       `json:"total_pending"`
	TotalFailed    int64                       `json:"total_failed"`
	NetSettled     int64                       `json:"net_settled"`
}

// Report aggregates a tenant's payments over [from, to).
func (s *ReconciliationService) Report(tenantID uint, from, to time.Time) (*ReconciliationReport, error) {
	if tenantID == 0 || from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, ErrReportWindowInvalid
	}
	rows, err := s.paymentRepo.AggregateByProvider(repository.ReconciliationWindow{
		TenantID: tenantID,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	report := &ReconciliationReport{
		TenantID:  tenantID,
		From:      from,
		To:        to,
		Providers: rows,
	}
	for _, row := range rows {
		report.TotalCollected += row.SuccessAmount
		report.TotalRefunded += row.RefundedAmount
		report.TotalPending += row.PendingAmount
		report.TotalFailed += row.FailedAmount
	}
	report.NetSettled = report.TotalCollected - report.TotalRefunded
	paymentLogger(
		"tenant_id", tenantID,
		"from", from,
		"to", to,
		"provider_count", len(rows),
		"total_collected", report.TotalCollected,
		"net_settled", report.NetSettled,
	).Infow("reconciliation_report_built")
	return report, nil
}
