package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPricingRuleRepository implements billing.PricingRuleRepository using GORM
type GormPricingRuleRepository struct {
	db *gorm.DB
}

// NewGormPricingRuleRepository creates a new GormPricingRuleRepository
func NewGormPricingRuleRepository(db *gorm.DB) *GormPricingRuleRepository {
	return &GormPricingRuleRepository{db: db}
}

// FindByID finds a pricing rule by ID
func (r *GormPricingRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PricingRule, error) {
	var model models.PricingRuleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindActiveByBusiness returns every active rule of a business
func (r *GormPricingRuleRepository) FindActiveByBusiness(ctx context.Context, businessID uuid.UUID) ([]*billing.PricingRule, error) {
	var rows []models.PricingRuleModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND active = ?", businessID, true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rulesToDomain(rows), nil
}

// FindAll lists pricing rules
func (r *GormPricingRuleRepository) FindAll(ctx context.Context, filter billing.PricingRuleFilter) ([]*billing.PricingRule, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PricingRuleModel{})
	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.MeterType != nil {
		query = query.Where("meter_type = ?", *filter.MeterType)
	}
	if filter.UsageType != nil {
		query = query.Where("usage_type = ?", *filter.UsageType)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PricingRuleModel
	if err := applyPage(query, filter.Filter, PricingRuleSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rulesToDomain(rows), total, nil
}

// Create inserts a new rule
func (r *GormPricingRuleRepository) Create(ctx context.Context, rule *billing.PricingRule) error {
	err := r.db.WithContext(ctx).Create(models.PricingRuleModelFromDomain(rule)).Error
	return duplicate(err, shared.NewDomainError(shared.ErrAlreadyExists.Code,
		"An active pricing rule already exists for this meter and usage type"))
}

// Save updates every column of a rule
func (r *GormPricingRuleRepository) Save(ctx context.Context, rule *billing.PricingRule) error {
	rule.Touch()
	model := models.PricingRuleModelFromDomain(rule)
	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("created_at").Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateMatching retires the active rules for the rule's key, except the rule itself
func (r *GormPricingRuleRepository) DeactivateMatching(ctx context.Context, rule *billing.PricingRule) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PricingRuleModel{}).
		Where("business_id = ? AND meter_type = ? AND usage_type = ? AND active = ? AND id <> ?",
			rule.BusinessID, rule.MeterType, rule.UsageType, true, rule.ID).
		Update("active", false)
	return result.RowsAffected, result.Error
}

// ClearDefault unflags any default rule of the business
func (r *GormPricingRuleRepository) ClearDefault(ctx context.Context, businessID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PricingRuleModel{}).
		Where("business_id = ? AND is_default = ?", businessID, true).
		Update("is_default", false).Error
}

func rulesToDomain(rows []models.PricingRuleModel) []*billing.PricingRule {
	rules := make([]*billing.PricingRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules
}

var _ billing.PricingRuleRepository = (*GormPricingRuleRepository)(nil)
