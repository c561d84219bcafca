package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReadingRepository implements billing.ReadingRepository using GORM
type GormReadingRepository struct {
	db *gorm.DB
}

// NewGormReadingRepository creates a new GormReadingRepository
func NewGormReadingRepository(db *gorm.DB) *GormReadingRepository {
	return &GormReadingRepository{db: db}
}

// FindByID finds a reading by ID
func (r *GormReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.MeterReading, error) {
	var model models.MeterReadingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindActiveByPeriodAndMeter returns the non-rejected reading of a meter in a period
func (r *GormReadingRepository) FindActiveByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*billing.MeterReading, error) {
	var model models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Where("period_id = ? AND meter_id = ? AND status <> ?", periodID, meterID, billing.ReadingStatusRejected).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindEligibleByPeriod returns confirmed and estimated readings of a period
func (r *GormReadingRepository) FindEligibleByPeriod(ctx context.Context, periodID uuid.UUID) ([]*billing.MeterReading, error) {
	var rows []models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Where("period_id = ? AND status IN ?", periodID,
			[]billing.ReadingStatus{billing.ReadingStatusConfirmed, billing.ReadingStatusEstimated}).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return readingsToDomain(rows), nil
}

// RecentConfirmedConsumptions returns the consumptions of the meter's latest confirmed readings
func (r *GormReadingRepository) RecentConfirmedConsumptions(ctx context.Context, meterID uuid.UUID, limit int) ([]decimal.Decimal, error) {
	if limit <= 0 {
		return nil, nil
	}
	var consumptions []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.MeterReadingModel{}).
		Where("meter_id = ? AND status = ?", meterID, billing.ReadingStatusConfirmed).
		Order("reading_date DESC").
		Order("created_at DESC").
		Limit(limit).
		Pluck("consumption", &consumptions).Error
	return consumptions, err
}

// FindAll lists readings
func (r *GormReadingRepository) FindAll(ctx context.Context, filter billing.ReadingFilter) ([]*billing.MeterReading, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MeterReadingModel{})
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.MeterID != nil {
		query = query.Where("meter_id = ?", *filter.MeterID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.MeterReadingModel
	if err := applyPage(query, filter.Filter, ReadingSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return readingsToDomain(rows), total, nil
}

// Create inserts a reading. A second live reading for the same period and
// meter fails with ErrDuplicateReading.
func (r *GormReadingRepository) Create(ctx context.Context, reading *billing.MeterReading) error {
	err := r.db.WithContext(ctx).Create(models.MeterReadingModelFromDomain(reading)).Error
	return duplicate(err, billing.ErrDuplicateReading)
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormReadingRepository) SaveWithLock(ctx context.Context, reading *billing.MeterReading) error {
	model := models.MeterReadingModelFromDomain(reading)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, reading, "meter reading")
}

func readingsToDomain(rows []models.MeterReadingModel) []*billing.MeterReading {
	readings := make([]*billing.MeterReading, len(rows))
	for i := range rows {
		readings[i] = rows[i].ToDomain()
	}
	return readings
}

var _ billing.ReadingRepository = (*GormReadingRepository)(nil)
