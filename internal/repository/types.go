package repository

import "time"

// PaymentListFilter narrows payment queries.
type PaymentListFilter struct {
	Page         int
	PageSize     int
	TenantID     uint
	OrderRef     string
	ProviderCode string
	Status       string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// ReconciliationWindow bounds a reconciliation report.
type ReconciliationWindow struct {
	TenantID uint
	From     time.Time
	To       time.Time
}

// ProviderTotals is one provider's aggregate inside a reconciliation window.
type ProviderTotals struct {
	ProviderCode   string `json:"provider_code"`
	Currency       string `json:"currency"`
	SuccessCount   int64  `json:"success_count"`
	SuccessAmount  int64  `json:"success_amount"`
	RefundedCount  int64  `json:"refunded_count"`
	RefundedAmount int64  `json:"refunded_amount"`
	FailedCount    int64  `json:"failed_count"`
	FailedAmount   int64  `json:"failed_amount"`
	PendingCount   int64  `json:"pending_count"`
	PendingAmount  int64  `json:"pending_amount"`
}
