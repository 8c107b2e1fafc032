package models

import (
	"time"
)

// CashDrawerSession is one cashier's open/close cycle. Balances are integer
// minor currency units. A session is mutated once on close and append-only
// afterwards.
type CashDrawerSession struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	TenantID        uint       `gorm:"index;not null" json:"tenant_id"`
	CashierID       uint       `gorm:"index;not null" json:"cashier_id"`
	Status          string     `gorm:"index;not null" json:"status"`
	OpeningBalance  int64      `gorm:"not null" json:"opening_balance"`
	ClosingBalance  *int64     `json:"closing_balance"`
	ExpectedBalance *int64     `json:"expected_balance"`
	Variance        *int64     `json:"variance"`
	VarianceNotes   string     `gorm:"type:text" json:"variance_notes,omitempty"`
	OpenedAt        time.Time  `gorm:"index" json:"opened_at"`
	ClosedAt        *time.Time `gorm:"index" json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName sets the table name.
func (CashDrawerSession) TableName() string {
	return "cash_drawer_sessions"
}
