package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPeriodRepository implements billing.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// FindByID finds a billing period by ID
func (r *GormPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	var model models.BillingPeriodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a billing period by its unique code
func (r *GormPeriodRepository) FindByCode(ctx context.Context, code string) (*billing.BillingPeriod, error) {
	var model models.BillingPeriodModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists billing periods
func (r *GormPeriodRepository) FindAll(ctx context.Context, filter billing.PeriodFilter) ([]*billing.BillingPeriod, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingPeriodModel{})
	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillingPeriodModel
	if err := applyPage(query, filter.Filter, PeriodSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	periods := make([]*billing.BillingPeriod, len(rows))
	for i := range rows {
		periods[i] = rows[i].ToDomain()
	}
	return periods, total, nil
}

// Create inserts a new billing period
func (r *GormPeriodRepository) Create(ctx context.Context, period *billing.BillingPeriod) error {
	model := models.BillingPeriodModelFromDomain(period)
	err := r.db.WithContext(ctx).Create(model).Error
	return duplicate(err, shared.NewDomainError(shared.ErrAlreadyExists.Code, "A billing period with this code already exists"))
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPeriodRepository) SaveWithLock(ctx context.Context, period *billing.BillingPeriod) error {
	model := models.BillingPeriodModelFromDomain(period)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, period, "billing period", "collected_amount")
}

// AddCollection increments collected_amount in place
func (r *GormPeriodRepository) AddCollection(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.BillingPeriodModel{}).
		Where("id = ? AND status <> ?", id, billing.PeriodStatusClosed).
		UpdateColumn("collected_amount", gorm.Expr("collected_amount + ?", amount)).Error
}

// Delete removes a billing period that never left pending
func (r *GormPeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("status = ?", billing.PeriodStatusPending).
		Delete(&models.BillingPeriodModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ billing.PeriodRepository = (*GormPeriodRepository)(nil)
