package repository

import (
	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/models"

	"gorm.io/gorm"
)

// CashDrawerRepository is the drawer-session data access interface.
type CashDrawerRepository interface {
	Create(session *models.CashDrawerSession) error
	Update(session *models.CashDrawerSession) error
	GetByID(tenantID, id uint) (*models.CashDrawerSession, error)
	GetOpenByCashier(tenantID, cashierID uint) (*models.CashDrawerSession, error)
	ListByTenant(tenantID uint, page, pageSize int) ([]models.CashDrawerSession, int64, error)
	WithTx(tx *gorm.DB) *GormCashDrawerRepository
}

// GormCashDrawerRepository is the GORM implementation.
type GormCashDrawerRepository struct {
	db *gorm.DB
}

// NewCashDrawerRepository creates the drawer-session repository.
func NewCashDrawerRepository(db *gorm.DB) *GormCashDrawerRepository {
	return &GormCashDrawerRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormCashDrawerRepository) WithTx(tx *gorm.DB) *GormCashDrawerRepository {
	if tx == nil {
		return r
	}
	return &GormCashDrawerRepository{db: tx}
}

// Create inserts a drawer session.
func (r *GormCashDrawerRepository) Create(session *models.CashDrawerSession) error {
	return r.db.Create(session).Error
}

// Update saves a drawer session.
func (r *GormCashDrawerRepository) Update(session *models.CashDrawerSession) error {
	return r.db.Save(session).Error
}

// GetByID fetches a drawer session scoped to a tenant.
func (r *GormCashDrawerRepository) GetByID(tenantID, id uint) (*models.CashDrawerSession, error) {
	var session models.CashDrawerSession
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&session)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &session, nil
}

// GetOpenByCashier fetches a cashier's open session, if any. At most one
// session per cashier may be open at a time.
func (r *GormCashDrawerRepository) GetOpenByCashier(tenantID, cashierID uint) (*models.CashDrawerSession, error) {
	var session models.CashDrawerSession
	result := r.db.Where("tenant_id = ? AND cashier_id = ? AND status = ?",
		tenantID, cashierID, constants.DrawerSessionOpen).
		Order("id desc").Limit(1).Find(&session)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &session, nil
}

// ListByTenant returns a tenant's drawer sessions, newest first.
func (r *GormCashDrawerRepository) ListByTenant(tenantID uint, page, pageSize int) ([]models.CashDrawerSession, int64, error) {
	query := r.db.Model(&models.CashDrawerSession{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var sessions []models.CashDrawerSession
	if err := query.Order("id desc").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}
