package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MeterType identifies the metering technology
type MeterType string

const (
	MeterTypeTraditional MeterType = "traditional"
	MeterTypeSmart       MeterType = "smart"
	MeterTypePrepaid     MeterType = "prepaid"
)

// IsValid checks if the meter type is valid
func (t MeterType) IsValid() bool {
	switch t {
	case MeterTypeTraditional, MeterTypeSmart, MeterTypePrepaid:
		return true
	}
	return false
}

// UsageType classifies what the supply is used for
type UsageType string

const (
	UsageTypeResidential  UsageType = "residential"
	UsageTypeCommercial   UsageType = "commercial"
	UsageTypeIndustrial   UsageType = "industrial"
	UsageTypeGovernmental UsageType = "governmental"
	UsageTypeAgricultural UsageType = "agricultural"
)

// IsValid checks if the usage type is valid
func (t UsageType) IsValid() bool {
	switch t {
	case UsageTypeResidential, UsageTypeCommercial, UsageTypeIndustrial,
		UsageTypeGovernmental, UsageTypeAgricultural:
		return true
	}
	return false
}

// Phase is the electrical phase of the connection
type Phase string

const (
	PhaseSingle Phase = "single"
	PhaseThree  Phase = "three"
)

// IsValid checks if the phase is valid
func (p Phase) IsValid() bool {
	return p == PhaseSingle || p == PhaseThree
}

// MeterStatus is the operational status of a meter
type MeterStatus string

const (
	MeterStatusActive   MeterStatus = "active"
	MeterStatusInactive MeterStatus = "inactive"
)

// Meter is a metered supply point owned by a subscription account
type Meter struct {
	shared.BaseAggregateRoot
	AccountID       uuid.UUID
	CustomerID      uuid.UUID
	BusinessID      uuid.UUID
	MeterNumber     string
	MeterType       MeterType
	Phase           Phase
	UsageType       UsageType
	CurrentReading  decimal.Decimal
	PreviousReading decimal.Decimal
	LastReadingDate *time.Time
	BalanceDue      decimal.Decimal
	Status          MeterStatus
}

// NewMeter creates an active meter attached to an account
func NewMeter(account *SubscriptionAccount, businessID uuid.UUID, meterNumber string, meterType MeterType, phase Phase, usageType UsageType, initialReading decimal.Decimal) (*Meter, error) {
	if account == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Meter must belong to an account")
	}
	meterNumber = strings.TrimSpace(meterNumber)
	if meterNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Meter number cannot be empty")
	}
	if !meterType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid meter type")
	}
	if !usageType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid usage type")
	}
	if phase == "" {
		phase = PhaseSingle
	}
	if !phase.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid phase")
	}
	if initialReading.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Initial reading cannot be negative")
	}

	reading := RoundReading(initialReading)
	return &Meter{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         account.ID,
		CustomerID:        account.CustomerID,
		BusinessID:        businessID,
		MeterNumber:       meterNumber,
		MeterType:         meterType,
		Phase:             phase,
		UsageType:         usageType,
		CurrentReading:    reading,
		PreviousReading:   reading,
		BalanceDue:        decimal.Zero,
		Status:            MeterStatusActive,
	}, nil
}

// IsActive reports whether the meter takes part in billing
func (m *Meter) IsActive() bool {
	return m.Status == MeterStatusActive
}

// Deactivate takes the meter out of billing
func (m *Meter) Deactivate() {
	m.Status = MeterStatusInactive
	m.Touch()
}

// AdvanceReading moves the billed reading forward. A value below the current
// one is ignored.
func (m *Meter) AdvanceReading(previous, current decimal.Decimal, readAt time.Time) {
	if current.LessThan(m.CurrentReading) {
		return
	}
	m.PreviousReading = previous
	m.CurrentReading = current
	m.LastReadingDate = &readAt
	m.Touch()
}

// RollbackReading undoes an advance to current when a billed estimate is
// rejected. It reports whether the meter changed.
func (m *Meter) RollbackReading(previous, current decimal.Decimal) bool {
	if !m.CurrentReading.Equal(current) {
		return false
	}
	m.CurrentReading = previous
	m.Touch()
	return true
}

// AddBalance adjusts the per-meter running balance. Negative amounts reduce it
// but never below zero.
func (m *Meter) AddBalance(amount decimal.Decimal) {
	m.BalanceDue = m.BalanceDue.Add(amount)
	if m.BalanceDue.IsNegative() {
		m.BalanceDue = decimal.Zero
	}
	m.Touch()
}
