package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records customer payments against invoices
type PaymentService struct {
	deps
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, cfg Config, opts ...Option) *PaymentService {
	return &PaymentService{deps: newDeps(scope, cfg, opts)}
}

// RecordPayment applies a payment in one transaction. A targeted payment
// settles its invoice and handles any excess per the overpayment policy; an
// untargeted payment is spread over open invoices oldest first and the rest
// is deposited in the wallet. Repeating an idempotency key returns the
// payment recorded first.
func (s *PaymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (result *PaymentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	defer s.observe("payment.record", time.Now(), &err)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
		telemetry.SpanAttrPaymentMethod, string(in.Method),
		telemetry.SpanAttrAmount, in.Amount.String(),
	)

	// fail fast on malformed input before taking any lock
	if _, err := billing.NewPayment(in.CustomerID, in.Amount, in.Method, in.PaymentDate, in.InvoiceID, in.ReferenceNumber, in.IdempotencyKey); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if replay, err := s.findByKey(ctx, key); err != nil || replay != nil {
			return replay, err
		}
	}

	unlock, err := s.locker.Lock(ctx, CustomerLockKey(in.CustomerID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	var (
		invoices []*billing.Invoice
		wallet   *billing.Wallet
	)
	err = withRetry(ctx, s.logger, "payment.record", s.cfg.MaxRetries, func(attempt int) error {
		telemetry.SetAttribute(span, telemetry.SpanAttrAttempt, attempt)
		invoices, wallet, result = nil, nil, nil

		return s.scope.Execute(ctx, func(repos Repositories) error {
			if key != "" {
				existing, err := repos.Payments().FindByIdempotencyKey(ctx, key)
				if err != nil && !errors.Is(err, shared.ErrNotFound) {
					return err
				}
				if existing != nil {
					result = &PaymentResult{Payment: existing, Replayed: true}
					return nil
				}
			}

			payment, err := billing.NewPayment(in.CustomerID, in.Amount, in.Method, in.PaymentDate, in.InvoiceID, in.ReferenceNumber, key)
			if err != nil {
				return err
			}

			var plan billing.AllocationPlan
			if payment.IsTargeted() {
				inv, err := repos.Invoices().FindByIDForUpdate(ctx, *payment.InvoiceID)
				if err != nil {
					return err
				}
				if inv.CustomerID != payment.CustomerID {
					return shared.NewDomainError(shared.ErrInvalidInput.Code, "Invoice does not belong to this customer")
				}
				plan, err = billing.AllocateToInvoice(inv, payment.Amount, s.cfg.OverpaymentPolicy)
				if err != nil {
					return err
				}
				invoices = []*billing.Invoice{inv}
			} else {
				open, err := repos.Invoices().FindOpenByCustomerForUpdate(ctx, payment.CustomerID)
				if err != nil {
					return err
				}
				plan, err = billing.AllocateFIFO(open, payment.Amount)
				if err != nil {
					return err
				}
				invoices = open
			}

			// a wallet payment only moves what the invoices can absorb
			if payment.Method == billing.PaymentMethodWallet && plan.Remainder.IsPositive() {
				return shared.NewDomainError(billing.CodeOverpaymentRejected,
					"Wallet payment exceeds the open balance")
			}

			accountID, err := s.settleAllocations(ctx, repos, plan, invoices)
			if err != nil {
				return err
			}
			if payment.IsTargeted() && len(invoices) == 1 {
				id := invoices[0].AccountID
				accountID = &id
			}

			if err := payment.Confirm(plan, accountID); err != nil {
				return err
			}
			if err := repos.Payments().Create(ctx, payment); err != nil {
				return err
			}

			result = &PaymentResult{Payment: payment}
			switch {
			case payment.Method == billing.PaymentMethodWallet:
				w, err := lockWallet(ctx, repos, payment.CustomerID, s.cfg.Currency, false)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						return shared.NewDomainError(shared.ErrInsufficientBalance.Code, "Customer has no wallet balance")
					}
					return err
				}
				tx, err := w.Debit(billing.WalletTxPayment, plan.Allocated,
					billing.RefTo(billing.ReferencePayment, payment.ID),
					"Payment "+payment.ReceiptNumber, nil, s.now())
				if err != nil {
					return err
				}
				if err := postWalletTransaction(ctx, repos, w, tx); err != nil {
					return err
				}
				wallet, result.WalletTransaction = w, tx
			case plan.Remainder.IsPositive():
				w, err := lockWallet(ctx, repos, payment.CustomerID, s.cfg.Currency, true)
				if err != nil {
					return err
				}
				tx, err := w.Credit(billing.WalletTxDeposit, plan.Remainder,
					billing.RefTo(billing.ReferencePayment, payment.ID),
					"Overpayment from "+payment.ReceiptNumber, nil, s.now())
				if err != nil {
					return err
				}
				if err := postWalletTransaction(ctx, repos, w, tx); err != nil {
					return err
				}
				wallet, result.WalletTransaction = w, tx
			}
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("payment not recorded",
			zap.String("customer_id", in.CustomerID.String()),
			zap.String("amount", in.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	if result.Replayed {
		return result, nil
	}

	payment := result.Payment
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID.String())
	s.metrics.PaymentRecorded(string(payment.Method), payment.AllocatedAmount, payment.WalletAmount)
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.String("allocated", payment.AllocatedAmount.String()),
		zap.String("to_wallet", payment.WalletAmount.String()),
		zap.Int("invoices", len(payment.Allocations)))

	sources := []shared.EventSource{payment}
	for _, inv := range invoices {
		sources = append(sources, inv)
	}
	if wallet != nil {
		sources = append(sources, wallet)
	}
	s.publish(ctx, sources...)
	return result, nil
}

// settleAllocations saves the paid invoices and moves the allocated amounts
// off the account and meter ledgers. The account ID is returned when every
// allocation hit the same account.
func (s *PaymentService) settleAllocations(ctx context.Context, repos Repositories, plan billing.AllocationPlan, invoices []*billing.Invoice) (*uuid.UUID, error) {
	if !plan.Touched() {
		return nil, nil
	}

	byID := make(map[uuid.UUID]*billing.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}

	accounts := make(map[uuid.UUID]*billing.SubscriptionAccount)
	meters := make(map[uuid.UUID]*billing.Meter)
	collected := make(map[uuid.UUID]decimal.Decimal)
	var accountOrder, periodOrder []uuid.UUID

	for _, alloc := range plan.Allocations {
		inv, ok := byID[alloc.InvoiceID]
		if !ok {
			return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Allocation references an unknown invoice")
		}
		if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
			return nil, err
		}

		account, ok := accounts[inv.AccountID]
		if !ok {
			var err error
			if account, err = repos.Accounts().FindByID(ctx, inv.AccountID); err != nil {
				return nil, err
			}
			accounts[account.ID] = account
			accountOrder = append(accountOrder, account.ID)
		}
		account.Settle(alloc.Amount)

		meter, ok := meters[inv.MeterID]
		if !ok {
			var err error
			if meter, err = repos.Meters().FindByID(ctx, inv.MeterID); err != nil {
				return nil, err
			}
			meters[meter.ID] = meter
		}
		meter.AddBalance(alloc.Amount.Neg())

		if _, ok := collected[inv.PeriodID]; !ok {
			periodOrder = append(periodOrder, inv.PeriodID)
		}
		collected[inv.PeriodID] = collected[inv.PeriodID].Add(alloc.Amount)
	}

	for _, id := range accountOrder {
		if err := repos.Accounts().SaveWithLock(ctx, accounts[id]); err != nil {
			return nil, err
		}
	}
	for _, meter := range meters {
		if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
			return nil, err
		}
	}
	// collected_amount is bumped in place, outside the period version
	for _, id := range periodOrder {
		if err := repos.Periods().AddCollection(ctx, id, collected[id]); err != nil {
			return nil, err
		}
	}

	if len(accountOrder) == 1 {
		id := accountOrder[0]
		return &id, nil
	}
	return nil, nil
}

func (s *PaymentService) findByKey(ctx context.Context, key string) (*PaymentResult, error) {
	var found *billing.Payment
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		p, err := repos.Payments().FindByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("payment replayed by idempotency key",
		zap.String("payment_id", found.ID.String()))
	return &PaymentResult{Payment: found, Replayed: true}, nil
}

// GetPayment returns a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var payment *billing.Payment
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		payment, err = repos.Payments().FindByID(ctx, id)
		return err
	})
	return payment, err
}

// ListPayments lists a customer's payments, newest first
func (s *PaymentService) ListPayments(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	var (
		payments []*billing.Payment
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		payments, total, err = repos.Payments().FindByCustomer(ctx, customerID, filter)
		return err
	})
	return payments, total, err
}
