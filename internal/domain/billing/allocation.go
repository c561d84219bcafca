package billing

import (
	"sort"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OverpaymentPolicy decides what happens to money left over after a
// targeted payment settles its invoice.
type OverpaymentPolicy string

const (
	// OverpaymentToWallet credits the excess to the customer's wallet
	OverpaymentToWallet OverpaymentPolicy = "wallet"
	// OverpaymentReject fails the payment
	OverpaymentReject OverpaymentPolicy = "reject"
)

// IsValid checks if the policy is known
func (p OverpaymentPolicy) IsValid() bool {
	return p == OverpaymentToWallet || p == OverpaymentReject
}

// AllocationPlan is the result of distributing a payment
type AllocationPlan struct {
	Allocations []PaymentAllocation
	Allocated   decimal.Decimal
	// Remainder goes to the wallet
	Remainder decimal.Decimal
}

// Touched reports whether any invoice received money
func (p AllocationPlan) Touched() bool {
	return len(p.Allocations) > 0
}

// AllocateToInvoice applies amount to one invoice. Under OverpaymentReject an
// amount above the balance fails before the invoice is modified.
func AllocateToInvoice(inv *Invoice, amount decimal.Decimal, policy OverpaymentPolicy) (AllocationPlan, error) {
	if !amount.IsPositive() {
		return AllocationPlan{}, ErrInvalidAmount
	}
	if inv.Status == InvoiceStatusCancelled {
		return AllocationPlan{}, shared.NewDomainError("INVALID_STATE", "Cannot pay a cancelled invoice")
	}
	if policy == OverpaymentReject && amount.GreaterThan(inv.BalanceDue) {
		return AllocationPlan{}, ErrOverpaymentRejected
	}

	plan := AllocationPlan{Allocated: decimal.Zero, Remainder: amount}
	if !inv.BalanceDue.IsPositive() {
		return plan, nil
	}
	applied, err := inv.ApplyPayment(amount)
	if err != nil {
		return AllocationPlan{}, err
	}
	plan.Allocations = []PaymentAllocation{{InvoiceID: inv.ID, Amount: applied}}
	plan.Allocated = applied
	plan.Remainder = amount.Sub(applied)
	return plan, nil
}

// SortForAllocation orders invoices oldest first: due date, then invoice
// date, then creation time.
func SortForAllocation(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// AllocateFIFO spreads amount over the open invoices oldest first. Whatever
// is left once every invoice is settled is returned as Remainder.
func AllocateFIFO(invoices []*Invoice, amount decimal.Decimal) (AllocationPlan, error) {
	if !amount.IsPositive() {
		return AllocationPlan{}, ErrInvalidAmount
	}

	ordered := make([]*Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv != nil && inv.IsOpen() {
			ordered = append(ordered, inv)
		}
	}
	SortForAllocation(ordered)

	plan := AllocationPlan{Allocated: decimal.Zero, Remainder: amount}
	for _, inv := range ordered {
		if !plan.Remainder.IsPositive() {
			break
		}
		applied, err := inv.ApplyPayment(plan.Remainder)
		if err != nil {
			return AllocationPlan{}, err
		}
		plan.Allocations = append(plan.Allocations, PaymentAllocation{InvoiceID: inv.ID, Amount: applied})
		plan.Allocated = plan.Allocated.Add(applied)
		plan.Remainder = plan.Remainder.Sub(applied)
	}
	return plan, nil
}
