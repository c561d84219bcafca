package billing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionAccount holds the customer's authoritative running balance.
// Invoices add to it and payments take from it.
type SubscriptionAccount struct {
	shared.BaseAggregateRoot
	CustomerID    uuid.UUID
	AccountNumber string
	BalanceDue    decimal.Decimal
}

// NewSubscriptionAccount creates an account with a zero balance
func NewSubscriptionAccount(customerID uuid.UUID, accountNumber string) (*SubscriptionAccount, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Account number cannot be empty")
	}
	return &SubscriptionAccount{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		AccountNumber:     accountNumber,
		BalanceDue:        decimal.Zero,
	}, nil
}

// Charge adds an invoiced amount to the balance
func (a *SubscriptionAccount) Charge(amount decimal.Decimal) {
	a.BalanceDue = a.BalanceDue.Add(amount)
	a.Touch()
}

// Settle removes a paid or reversed amount from the balance, floored at zero
func (a *SubscriptionAccount) Settle(amount decimal.Decimal) {
	a.BalanceDue = a.BalanceDue.Sub(amount)
	if a.BalanceDue.IsNegative() {
		a.BalanceDue = decimal.Zero
	}
	a.Touch()
}
