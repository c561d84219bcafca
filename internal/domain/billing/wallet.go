package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the single currency wallets are kept in
const DefaultCurrency = "SAR"

// WalletTransactionType classifies a ledger entry
type WalletTransactionType string

const (
	WalletTxCharge     WalletTransactionType = "charge"
	WalletTxWithdrawal WalletTransactionType = "withdrawal"
	WalletTxPayment    WalletTransactionType = "payment"
	WalletTxRefund     WalletTransactionType = "refund"
	WalletTxDeposit    WalletTransactionType = "deposit"
	WalletTxAdjustment WalletTransactionType = "adjustment"
)

// IsValid checks if the type is valid
func (t WalletTransactionType) IsValid() bool {
	switch t {
	case WalletTxCharge, WalletTxWithdrawal, WalletTxPayment,
		WalletTxRefund, WalletTxDeposit, WalletTxAdjustment:
		return true
	}
	return false
}

// IsCredit reports whether the type increases the balance.
// Adjustments carry their own sign and report false.
func (t WalletTransactionType) IsCredit() bool {
	return t == WalletTxCharge || t == WalletTxRefund || t == WalletTxDeposit
}

// IsDebit reports whether the type decreases the balance
func (t WalletTransactionType) IsDebit() bool {
	return t == WalletTxWithdrawal || t == WalletTxPayment
}

// ReferenceType names what a wallet transaction points at
type ReferenceType string

const (
	ReferenceNone    ReferenceType = ""
	ReferenceInvoice ReferenceType = "invoice"
	ReferencePayment ReferenceType = "payment"
	ReferenceMeter   ReferenceType = "meter"
)

// WalletReference links a ledger entry to another record
type WalletReference struct {
	Type ReferenceType
	ID   *uuid.UUID
}

// RefTo builds a reference to a record
func RefTo(t ReferenceType, id uuid.UUID) WalletReference {
	return WalletReference{Type: t, ID: &id}
}

// WalletTransaction is an append-only ledger entry. Amount is signed:
// positive entries increase the balance, negative ones decrease it.
// Sequence numbers a wallet's entries from 1 in posting order.
type WalletTransaction struct {
	shared.BaseEntity
	WalletID      uuid.UUID
	Sequence      int64
	CustomerID    uuid.UUID
	Type          WalletTransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	Description   string
	CreatedBy     *uuid.UUID
}

// Wallet is a customer's prepaid balance. Balance caches the ledger sum.
type Wallet struct {
	shared.BaseAggregateRoot
	CustomerID          uuid.UUID
	Balance             decimal.Decimal
	Currency            string
	Sequence            int64 // last posted entry
	LastTransactionDate *time.Time
}

// NewWallet creates an empty wallet
func NewWallet(customerID uuid.UUID, currency string) (*Wallet, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Wallet{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Balance:           decimal.Zero,
		Currency:          currency,
	}, nil
}

// Credit adds a positive amount with a credit-type entry
func (w *Wallet) Credit(txType WalletTransactionType, amount decimal.Decimal, ref WalletReference, description string, createdBy *uuid.UUID, now time.Time) (*WalletTransaction, error) {
	if !txType.IsCredit() && txType != WalletTxAdjustment {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s is not a credit transaction", txType))
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return w.post(txType, RoundMoney(amount), ref, description, createdBy, now), nil
}

// Debit removes a positive amount. The balance can never go below zero.
func (w *Wallet) Debit(txType WalletTransactionType, amount decimal.Decimal, ref WalletReference, description string, createdBy *uuid.UUID, now time.Time) (*WalletTransaction, error) {
	if !txType.IsDebit() && txType != WalletTxAdjustment {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s is not a debit transaction", txType))
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = RoundMoney(amount)
	if amount.GreaterThan(w.Balance) {
		return nil, shared.NewDomainError(shared.ErrInsufficientBalance.Code,
			fmt.Sprintf("Insufficient wallet balance: available %s, requested %s", w.Balance.StringFixed(MoneyScale), amount.StringFixed(MoneyScale)))
	}
	return w.post(txType, amount.Neg(), ref, description, createdBy, now), nil
}

func (w *Wallet) post(txType WalletTransactionType, signed decimal.Decimal, ref WalletReference, description string, createdBy *uuid.UUID, now time.Time) *WalletTransaction {
	if now.IsZero() {
		now = time.Now()
	}
	w.Sequence++
	tx := &WalletTransaction{
		BaseEntity:    shared.NewBaseEntity(),
		WalletID:      w.ID,
		Sequence:      w.Sequence,
		CustomerID:    w.CustomerID,
		Type:          txType,
		Amount:        signed,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance.Add(signed),
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		Description:   strings.TrimSpace(description),
		CreatedBy:     createdBy,
	}
	tx.CreatedAt = now
	tx.UpdatedAt = now

	w.Balance = tx.BalanceAfter
	w.LastTransactionDate = &now
	w.Touch()
	w.AddDomainEvent(newWalletMovementEvent(w, tx))
	return tx
}

// ReconciliationResult compares the cached balance with the ledger
type ReconciliationResult struct {
	CustomerID       uuid.UUID
	CachedBalance    decimal.Decimal
	LedgerBalance    decimal.Decimal
	TransactionCount int
	Consistent       bool
	// BrokenAt is the first entry whose before/after does not chain
	BrokenAt *uuid.UUID
}

// ReconcileWallet sums the ledger and walks the balance chain. txs must be in
// posting order. Nothing is corrected here.
func ReconcileWallet(w *Wallet, txs []*WalletTransaction) ReconciliationResult {
	result := ReconciliationResult{
		CustomerID:       w.CustomerID,
		CachedBalance:    w.Balance,
		LedgerBalance:    decimal.Zero,
		TransactionCount: len(txs),
	}

	running := decimal.Zero
	for _, tx := range txs {
		result.LedgerBalance = result.LedgerBalance.Add(tx.Amount)
		if result.BrokenAt == nil && (!tx.BalanceBefore.Equal(running) || !tx.BalanceAfter.Equal(tx.BalanceBefore.Add(tx.Amount))) {
			id := tx.ID
			result.BrokenAt = &id
		}
		running = tx.BalanceAfter
	}

	result.Consistent = result.BrokenAt == nil && result.LedgerBalance.Equal(w.Balance)
	return result
}
