package repository

import (
	"strings"

	"github.com/teranga-pos/payments/internal/models"

	"gorm.io/gorm"
)

// PaymentMethodRepository is the payment-method data access interface.
type PaymentMethodRepository interface {
	Create(method *models.PaymentMethod) error
	Update(method *models.PaymentMethod) error
	GetByID(tenantID, id uint) (*models.PaymentMethod, error)
	GetActiveByCode(tenantID uint, providerCode string) (*models.PaymentMethod, error)
	ListActive(tenantID uint) ([]models.PaymentMethod, error)
	WithTx(tx *gorm.DB) *GormPaymentMethodRepository
}

// GormPaymentMethodRepository is the GORM implementation.
type GormPaymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository creates the payment-method repository.
func NewPaymentMethodRepository(db *gorm.DB) *GormPaymentMethodRepository {
	return &GormPaymentMethodRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormPaymentMethodRepository) WithTx(tx *gorm.DB) *GormPaymentMethodRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentMethodRepository{db: tx}
}

// Create inserts a payment method.
func (r *GormPaymentMethodRepository) Create(method *models.PaymentMethod) error {
	return r.db.Create(method).Error
}

// Update saves a payment method.
func (r *GormPaymentMethodRepository) Update(method *models.PaymentMethod) error {
	return r.db.Save(method).Error
}

// GetByID fetches a payment method scoped to a tenant.
func (r *GormPaymentMethodRepository) GetByID(tenantID, id uint) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&method)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &method, nil
}

// GetActiveByCode fetches a tenant's active method for a provider code.
func (r *GormPaymentMethodRepository) GetActiveByCode(tenantID uint, providerCode string) (*models.PaymentMethod, error) {
	providerCode = strings.TrimSpace(providerCode)
	if providerCode == "" {
		return nil, nil
	}
	var method models.PaymentMethod
	result := r.db.Where("tenant_id = ? AND provider_code = ? AND is_active = ?", tenantID, providerCode, true).
		Limit(1).Find(&method)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &method, nil
}

// ListActive returns a tenant's active methods in display order.
func (r *GormPaymentMethodRepository) ListActive(tenantID uint) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	if err := r.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("sort_order asc, id asc").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}
