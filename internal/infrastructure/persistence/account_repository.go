package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements billing.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds a subscription account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionAccount, error) {
	var model models.SubscriptionAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCustomer returns the customer's accounts, oldest first
func (r *GormAccountRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.SubscriptionAccount, error) {
	var rows []models.SubscriptionAccountModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*billing.SubscriptionAccount, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *billing.SubscriptionAccount) error {
	err := r.db.WithContext(ctx).Create(models.SubscriptionAccountModelFromDomain(account)).Error
	return duplicate(err, shared.NewDomainError(shared.ErrAlreadyExists.Code, "An account with this number already exists"))
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *billing.SubscriptionAccount) error {
	model := models.SubscriptionAccountModelFromDomain(account)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, account, "account")
}

var _ billing.AccountRepository = (*GormAccountRepository)(nil)
