package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWalletRepository implements billing.WalletRepository using GORM
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GormWalletRepository
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// FindByCustomer finds the customer's wallet
func (r *GormWalletRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*billing.Wallet, error) {
	var model models.WalletModel
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCustomerForUpdate loads the customer's wallet with a row lock
func (r *GormWalletRepository) FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*billing.Wallet, error) {
	var model models.WalletModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a wallet. Two first-use creations race on the unique
// customer index; the loser gets a concurrent modification and retries.
func (r *GormWalletRepository) Create(ctx context.Context, wallet *billing.Wallet) error {
	err := r.db.WithContext(ctx).Create(models.WalletModelFromDomain(wallet)).Error
	return duplicate(err, shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
		"The wallet was created by another transaction"))
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormWalletRepository) SaveWithLock(ctx context.Context, wallet *billing.Wallet) error {
	model := models.WalletModelFromDomain(wallet)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, wallet, "wallet")
}

// GormWalletTransactionRepository implements billing.WalletTransactionRepository.
// It only inserts and reads.
type GormWalletTransactionRepository struct {
	db *gorm.DB
}

// NewGormWalletTransactionRepository creates a new GormWalletTransactionRepository
func NewGormWalletTransactionRepository(db *gorm.DB) *GormWalletTransactionRepository {
	return &GormWalletTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *GormWalletTransactionRepository) Create(ctx context.Context, tx *billing.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(models.WalletTransactionModelFromDomain(tx)).Error
}

// FindByWallet pages through a wallet's entries, newest first
func (r *GormWalletTransactionRepository) FindByWallet(ctx context.Context, walletID uuid.UUID, filter shared.Filter) ([]*billing.WalletTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).Where("wallet_id = ?", walletID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.WalletTransactionModel
	if err := query.
		Order("sequence DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return walletTransactionsToDomain(rows), total, nil
}

// FindAllByWalletOrdered returns every entry of a wallet in posting order
func (r *GormWalletTransactionRepository) FindAllByWalletOrdered(ctx context.Context, walletID uuid.UUID) ([]*billing.WalletTransaction, error) {
	var rows []models.WalletTransactionModel
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return walletTransactionsToDomain(rows), nil
}

func walletTransactionsToDomain(rows []models.WalletTransactionModel) []*billing.WalletTransaction {
	txs := make([]*billing.WalletTransaction, len(rows))
	for i := range rows {
		txs[i] = rows[i].ToDomain()
	}
	return txs
}

var (
	_ billing.WalletRepository            = (*GormWalletRepository)(nil)
	_ billing.WalletTransactionRepository = (*GormWalletTransactionRepository)(nil)
)
