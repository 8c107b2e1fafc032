package repository

import (
	"errors"
	"strings"

	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the payment data access interface.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(tenantID, id uint) (*models.Payment, error)
	GetByIDAny(id uint) (*models.Payment, error)
	GetByIDForUpdate(id uint) (*models.Payment, error)
	GetByIdempotencyKey(tenantID uint, key string) (*models.Payment, error)
	GetLatestByProviderRef(tenantID uint, providerRef string) (*models.Payment, error)
	List(filter PaymentListFilter) ([]models.Payment, int64, error)
	SumCashSuccess(tenantID uint, window ReconciliationWindow) (int64, error)
	AggregateByProvider(window ReconciliationWindow) ([]ProviderTotals, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository is the GORM implementation.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates the payment repository.
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create inserts a payment row.
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update saves a payment row.
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID fetches a payment scoped to a tenant.
func (r *GormPaymentRepository) GetByID(tenantID, id uint) (*models.Payment, error) {
	var payment models.Payment
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetByIDAny fetches a payment without tenant scoping. Queue workers carry the
// payment id, not the tenant.
func (r *GormPaymentRepository) GetByIDAny(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDForUpdate fetches a payment under a row lock. Must run inside a
// transaction; the lock serializes concurrent status writers.
func (r *GormPaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	var payment models.Payment
	result := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetByIdempotencyKey fetches the payment bound to an idempotency key.
func (r *GormPaymentRepository) GetByIdempotencyKey(tenantID uint, key string) (*models.Payment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestByProviderRef fetches the newest payment carrying a provider
// reference. Webhooks identify payments by this reference.
func (r *GormPaymentRepository) GetLatestByProviderRef(tenantID uint, providerRef string) (*models.Payment, error) {
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return nil, nil
	}
	query := r.db.Where("provider_ref = ?", providerRef)
	if tenantID != 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	var payment models.Payment
	result := query.Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// List returns a filtered, paginated payment page with the total count.
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.OrderRef != "" {
		query = query.Where("order_ref = ?", filter.OrderRef)
	}
	if filter.ProviderCode != "" {
		query = query.Where("provider_code = ?", filter.ProviderCode)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// SumCashSuccess totals settled cash payments inside a window. Drawer close
// uses it to compute the expected balance.
func (r *GormPaymentRepository) SumCashSuccess(tenantID uint, window ReconciliationWindow) (int64, error) {
	var total int64
	err := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount - refunded_amount), 0)").
		Where("tenant_id = ? AND provider_code = ? AND status IN ?",
			tenantID,
			constants.ProviderCash,
			[]string{constants.PaymentStatusSuccess, constants.PaymentStatusPartiallyRefunded},
		).
		Where("completed_at >= ? AND completed_at < ?", window.From, window.To).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// AggregateByProvider groups a window's payments into per-provider totals.
func (r *GormPaymentRepository) AggregateByProvider(window ReconciliationWindow) ([]ProviderTotals, error) {
	successStatuses := []string{
		constants.PaymentStatusSuccess,
		constants.PaymentStatusRefunded,
		constants.PaymentStatusPartiallyRefunded,
	}
	pendingStatuses := []string{
		constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
	}

	failedStatuses := []string{
		constants.PaymentStatusFailed,
		constants.PaymentStatusExpired,
	}

	var rows []ProviderTotals
	err := r.db.Model(&models.Payment{}).
		Select(`provider_code, currency,
			SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS success_count,
			COALESCE(SUM(CASE WHEN status IN ? THEN amount ELSE 0 END), 0) AS success_amount,
			SUM(CASE WHEN refunded_amount > 0 THEN 1 ELSE 0 END) AS refunded_count,
			COALESCE(SUM(refunded_amount), 0) AS refunded_amount,
			SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS failed_count,
			COALESCE(SUM(CASE WHEN status IN ? THEN amount ELSE 0 END), 0) AS failed_amount,
			SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS pending_count,
			COALESCE(SUM(CASE WHEN status IN ? THEN amount ELSE 0 END), 0) AS pending_amount`,
			successStatuses, successStatuses, failedStatuses, failedStatuses, pendingStatuses, pendingStatuses).
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", window.TenantID, window.From, window.To).
		Group("provider_code").
		Group("currency").
		Order("provider_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
