package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// WalletService manages customer wallets and their ledger
type WalletService struct {
	deps
}

// NewWalletService creates a new WalletService
func NewWalletService(scope TransactionScope, cfg Config, opts ...Option) *WalletService {
	return &WalletService{deps: newDeps(scope, cfg, opts)}
}

// lockWallet loads the customer's wallet with a row lock. With create set, a
// missing wallet is created on the spot.
func lockWallet(ctx context.Context, repos Repositories, customerID uuid.UUID, currency string, create bool) (*billing.Wallet, error) {
	w, err := repos.Wallets().FindByCustomerForUpdate(ctx, customerID)
	if err == nil {
		return w, nil
	}
	if !create || !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	w, err = billing.NewWallet(customerID, currency)
	if err != nil {
		return nil, err
	}
	if err := repos.Wallets().Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// postWalletTransaction persists a ledger entry together with the wallet balance
func postWalletTransaction(ctx context.Context, repos Repositories, w *billing.Wallet, tx *billing.WalletTransaction) error {
	if err := repos.WalletTransactions().Create(ctx, tx); err != nil {
		return err
	}
	return repos.Wallets().SaveWithLock(ctx, w)
}

// ChargeWallet tops up a customer's wallet
func (s *WalletService) ChargeWallet(ctx context.Context, in WalletChargeInput) (*WalletResult, error) {
	return s.move(ctx, "charge", in.CustomerID, true, func(w *billing.Wallet) (*billing.WalletTransaction, error) {
		return w.Credit(billing.WalletTxCharge, in.Amount, billing.WalletReference{}, in.Description, in.CreatedBy, s.now())
	})
}

// WithdrawWallet takes money out of a wallet. The balance never goes below zero.
func (s *WalletService) WithdrawWallet(ctx context.Context, in WalletWithdrawInput) (*WalletResult, error) {
	ref := billing.WalletReference{}
	if in.MeterID != nil {
		ref = billing.RefTo(billing.ReferenceMeter, *in.MeterID)
	}
	return s.move(ctx, "withdrawal", in.CustomerID, true, func(w *billing.Wallet) (*billing.WalletTransaction, error) {
		return w.Debit(billing.WalletTxWithdrawal, in.Amount, ref, in.Description, in.CreatedBy, s.now())
	})
}

func (s *WalletService) move(ctx context.Context, op string, customerID uuid.UUID, create bool, apply func(*billing.Wallet) (*billing.WalletTransaction, error)) (result *WalletResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wallet", op)
	defer span.End()
	defer s.observe("wallet."+op, time.Now(), &err)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, customerID.String(),
		telemetry.SpanAttrTxType, op,
	)

	unlock, err := s.locker.Lock(ctx, CustomerLockKey(customerID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	err = withRetry(ctx, s.logger, "wallet."+op, s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			w, err := lockWallet(ctx, repos, customerID, s.cfg.Currency, create)
			if err != nil {
				return err
			}
			tx, err := apply(w)
			if err != nil {
				return err
			}
			if err := postWalletTransaction(ctx, repos, w, tx); err != nil {
				return err
			}
			result = &WalletResult{Wallet: w, Transaction: tx}
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.WalletOperation(op, walletResultLabel(err))
		s.logger.Warn("wallet operation failed",
			zap.String("operation", op),
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, err
	}

	s.metrics.WalletOperation(op, "ok")
	s.logger.Info("wallet updated",
		zap.String("operation", op),
		zap.String("customer_id", customerID.String()),
		zap.String("amount", result.Transaction.Amount.String()),
		zap.String("balance", result.Wallet.Balance.String()))
	s.publish(ctx, result.Wallet)
	return result, nil
}

func walletResultLabel(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "error"
}

// GetWallet returns the customer's wallet
func (s *WalletService) GetWallet(ctx context.Context, customerID uuid.UUID) (*billing.Wallet, error) {
	var w *billing.Wallet
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		w, err = repos.Wallets().FindByCustomer(ctx, customerID)
		return err
	})
	return w, err
}

// ListTransactions pages through the wallet ledger, newest first
func (s *WalletService) ListTransactions(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*billing.WalletTransaction, int64, error) {
	var (
		txs   []*billing.WalletTransaction
		total int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		w, err := repos.Wallets().FindByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		txs, total, err = repos.WalletTransactions().FindByWallet(ctx, w.ID, filter)
		return err
	})
	return txs, total, err
}

// ReconcileWallet compares the cached balance with the ledger. A mismatch is
// reported as LEDGER_INTEGRITY_VIOLATION along with the result; nothing is
// corrected.
func (s *WalletService) ReconcileWallet(ctx context.Context, customerID uuid.UUID) (*billing.ReconciliationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wallet", "reconcile")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCustomerID, customerID.String())

	unlock, err := s.locker.Lock(ctx, CustomerLockKey(customerID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result billing.ReconciliationResult
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		w, err := repos.Wallets().FindByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		txs, err := repos.WalletTransactions().FindAllByWalletOrdered(ctx, w.ID)
		if err != nil {
			return err
		}
		result = billing.ReconcileWallet(w, txs)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.Consistent {
		fields := []zap.Field{
			zap.String("customer_id", customerID.String()),
			zap.String("cached_balance", result.CachedBalance.String()),
			zap.String("ledger_balance", result.LedgerBalance.String()),
			zap.Int("transactions", result.TransactionCount),
		}
		if result.BrokenAt != nil {
			fields = append(fields, zap.String("broken_at", result.BrokenAt.String()))
		}
		s.logger.Error("wallet ledger integrity violation", fields...)
		err := shared.NewDomainError(shared.ErrIntegrityViolation.Code, "Wallet balance does not match its ledger")
		telemetry.RecordError(span, err)
		s.metrics.WalletOperation("reconcile", shared.ErrIntegrityViolation.Code)
		return &result, err
	}
	s.metrics.WalletOperation("reconcile", "ok")
	return &result, nil
}
