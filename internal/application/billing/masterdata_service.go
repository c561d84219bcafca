package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MasterDataService registers the accounts and meters that billing runs on.
// Customer records themselves live outside this service.
type MasterDataService struct {
	deps
}

// NewMasterDataService creates a new MasterDataService
func NewMasterDataService(scope TransactionScope, cfg Config, opts ...Option) *MasterDataService {
	return &MasterDataService{deps: newDeps(scope, cfg, opts)}
}

// CreateAccount registers a subscription account for a customer
func (s *MasterDataService) CreateAccount(ctx context.Context, in CreateAccountInput) (*billing.SubscriptionAccount, error) {
	account, err := billing.NewSubscriptionAccount(in.CustomerID, in.AccountNumber)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Execute(ctx, func(repos Repositories) error {
		return repos.Accounts().Create(ctx, account)
	}); err != nil {
		return nil, err
	}
	s.logger.Info("subscription account created",
		zap.String("account_id", account.ID.String()),
		zap.String("account_number", account.AccountNumber))
	return account, nil
}

// GetAccount returns an account by ID
func (s *MasterDataService) GetAccount(ctx context.Context, id uuid.UUID) (*billing.SubscriptionAccount, error) {
	var account *billing.SubscriptionAccount
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		account, err = repos.Accounts().FindByID(ctx, id)
		return err
	})
	return account, err
}

// CreateMeter registers a meter on an existing account. Meter numbers are unique.
func (s *MasterDataService) CreateMeter(ctx context.Context, in CreateMeterInput) (*billing.Meter, error) {
	var meter *billing.Meter
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		account, err := repos.Accounts().FindByID(ctx, in.AccountID)
		if err != nil {
			return err
		}
		existing, err := repos.Meters().FindByNumber(ctx, in.MeterNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "A meter with this number already exists")
		}
		m, err := billing.NewMeter(account, in.BusinessID, in.MeterNumber, in.MeterType, in.Phase, in.UsageType, in.InitialReading)
		if err != nil {
			return err
		}
		meter = m
		return repos.Meters().Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("meter created",
		zap.String("meter_id", meter.ID.String()),
		zap.String("meter_number", meter.MeterNumber))
	return meter, nil
}

// GetMeter returns a meter by ID
func (s *MasterDataService) GetMeter(ctx context.Context, id uuid.UUID) (*billing.Meter, error) {
	var meter *billing.Meter
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		meter, err = repos.Meters().FindByID(ctx, id)
		return err
	})
	return meter, err
}
