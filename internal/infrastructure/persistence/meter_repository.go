package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMeterRepository implements billing.MeterRepository using GORM
type GormMeterRepository struct {
	db *gorm.DB
}

// NewGormMeterRepository creates a new GormMeterRepository
func NewGormMeterRepository(db *gorm.DB) *GormMeterRepository {
	return &GormMeterRepository{db: db}
}

// FindByID finds a meter by ID
func (r *GormMeterRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Meter, error) {
	var model models.MeterModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a meter by its number
func (r *GormMeterRepository) FindByNumber(ctx context.Context, meterNumber string) (*billing.Meter, error) {
	var model models.MeterModel
	if err := r.db.WithContext(ctx).Where("meter_number = ?", meterNumber).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// CountActiveByBusiness counts active meters of a business
func (r *GormMeterRepository) CountActiveByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MeterModel{}).
		Where("business_id = ? AND status = ?", businessID, billing.MeterStatusActive).
		Count(&count).Error
	return count, err
}

// Create inserts a new meter
func (r *GormMeterRepository) Create(ctx context.Context, meter *billing.Meter) error {
	err := r.db.WithContext(ctx).Create(models.MeterModelFromDomain(meter)).Error
	return duplicate(err, shared.NewDomainError(shared.ErrAlreadyExists.Code, "A meter with this number already exists"))
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormMeterRepository) SaveWithLock(ctx context.Context, meter *billing.Meter) error {
	model := models.MeterModelFromDomain(meter)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, meter, "meter")
}

var _ billing.MeterRepository = (*GormMeterRepository)(nil)
