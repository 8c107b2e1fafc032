package models

import (
	"time"
)

// Payment is the unit of settlement for one order. Amounts are integer minor
// currency units; rows are never deleted, failed and expired payments are
// retained for audit.
type Payment struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	TenantID        uint       `gorm:"uniqueIndex:idx_tenant_idem;not null" json:"tenant_id"`
	OrderRef        string     `gorm:"index;not null" json:"order_ref"`
	IdempotencyKey  string     `gorm:"uniqueIndex:idx_tenant_idem;not null" json:"idempotency_key"`
	ProviderCode    string     `gorm:"index;not null" json:"provider_code"`
	ProviderRef     string     `gorm:"index" json:"provider_ref"`
	Amount          int64      `gorm:"not null" json:"amount"`
	RefundedAmount  int64      `gorm:"not null;default:0" json:"refunded_amount"`
	Currency        string     `gorm:"not null" json:"currency"`
	Status          string     `gorm:"index;not null" json:"status"`
	InteractionMode string     `json:"interaction_mode"`
	RedirectURL     string     `gorm:"type:text" json:"redirect_url,omitempty"`
	PayerPhone      string     `json:"payer_phone,omitempty"`
	ErrorCode       string     `json:"error_code,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	InitiatePayload JSON       `gorm:"type:json" json:"-"`
	CallbackPayload JSON       `gorm:"type:json" json:"-"`
	InitiatedAt     time.Time  `gorm:"index" json:"initiated_at"`
	CompletedAt     *time.Time `gorm:"index" json:"completed_at"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`
}

// TableName sets the table name.
func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment reached a settled outcome.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case "success", "failed", "expired", "refunded", "partially_refunded":
		return true
	}
	return false
}

// RemainingRefundable returns the amount still eligible for refund.
func (p *Payment) RemainingRefundable() int64 {
	remaining := p.Amount - p.RefundedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
