package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentMethod is a provider enabled for a tenant. Config carries non-secret
// and secret provider settings (API keys stay server-side, never serialized).
type PaymentMethod struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	TenantID     uint           `gorm:"uniqueIndex:idx_tenant_provider;not null" json:"tenant_id"`
	ProviderCode string         `gorm:"uniqueIndex:idx_tenant_provider;not null" json:"provider_code"`
	DisplayName  string         `gorm:"not null" json:"display_name"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	Config       JSON           `gorm:"type:json" json:"-"`
	SortOrder    int            `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
