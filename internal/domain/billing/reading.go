package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReadingType is how a reading was captured
type ReadingType string

const (
	ReadingTypeManual    ReadingType = "manual"
	ReadingTypeAutomatic ReadingType = "automatic"
	ReadingTypeEstimated ReadingType = "estimated"
)

// IsValid checks if the reading type is valid
func (t ReadingType) IsValid() bool {
	switch t {
	case ReadingTypeManual, ReadingTypeAutomatic, ReadingTypeEstimated:
		return true
	}
	return false
}

// ReadingStatus is the review status of a reading
type ReadingStatus string

const (
	ReadingStatusPending   ReadingStatus = "pending"
	ReadingStatusConfirmed ReadingStatus = "confirmed"
	ReadingStatusEstimated ReadingStatus = "estimated"
	ReadingStatusAnomaly   ReadingStatus = "anomaly"
	ReadingStatusRejected  ReadingStatus = "rejected"
)

// IsValid checks if the reading status is valid
func (s ReadingStatus) IsValid() bool {
	switch s {
	case ReadingStatusPending, ReadingStatusConfirmed, ReadingStatusEstimated,
		ReadingStatusAnomaly, ReadingStatusRejected:
		return true
	}
	return false
}

// IsInvoiceable reports whether a reading in this status may be billed
func (s ReadingStatus) IsInvoiceable() bool {
	return s == ReadingStatusConfirmed || s == ReadingStatusEstimated
}

// MeterReading is one captured meter value within a billing period
type MeterReading struct {
	shared.BaseAggregateRoot
	MeterID         uuid.UUID
	PeriodID        uuid.UUID
	ReadingDate     time.Time
	PreviousReading decimal.Decimal
	CurrentReading  decimal.Decimal
	Consumption     decimal.Decimal
	ReadingType     ReadingType
	Status          ReadingStatus
	AnomalyKind     AnomalyKind
	TrailingAverage decimal.Decimal
	Overridden      bool
	ApprovedAt      *time.Time
	Notes           string
}

// NewMeterReading validates current against the meter's last confirmed value
// and derives the initial status from the capture type.
func NewMeterReading(meter *Meter, periodID uuid.UUID, readingType ReadingType, current decimal.Decimal, readingDate time.Time, trailingAverage decimal.Decimal, cfg ValidatorConfig) (*MeterReading, error) {
	if meter == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Meter is required")
	}
	if !readingType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid reading type")
	}
	if current.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reading value cannot be negative")
	}
	if readingDate.IsZero() {
		readingDate = time.Now()
	}

	previous := meter.CurrentReading
	current = RoundReading(current)
	result := ValidateReading(previous, current, trailingAverage, cfg)

	r := &MeterReading{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MeterID:           meter.ID,
		PeriodID:          periodID,
		ReadingDate:       readingDate,
		PreviousReading:   previous,
		CurrentReading:    current,
		Consumption:       result.Consumption,
		ReadingType:       readingType,
		AnomalyKind:       result.Anomaly,
		TrailingAverage:   trailingAverage,
	}

	switch {
	case result.HasAnomaly():
		r.Status = ReadingStatusAnomaly
	case readingType == ReadingTypeAutomatic:
		r.Status = ReadingStatusConfirmed
		approvedAt := readingDate
		r.ApprovedAt = &approvedAt
	case readingType == ReadingTypeEstimated:
		r.Status = ReadingStatusEstimated
	default:
		r.Status = ReadingStatusPending
	}

	r.AddDomainEvent(newReadingEvent(EventTypeReadingSubmitted, r))
	return r, nil
}

// IsEligibleForInvoicing reports whether the reading can produce an invoice
func (r *MeterReading) IsEligibleForInvoicing() bool {
	return r.Status.IsInvoiceable()
}

// CountsAsApproved reports whether the reading adds to the period's approved counter
func (r *MeterReading) CountsAsApproved() bool {
	return r.Status.IsInvoiceable()
}

// AdvancesMeter reports whether the reading moves the meter forward. Every
// billed reading does, estimates included, so the next reading is measured
// from what was already invoiced.
func (r *MeterReading) AdvancesMeter() bool {
	return r.Status.IsInvoiceable()
}

// Approve confirms a pending or anomalous reading. Outliers need override;
// a reading below the meter is never accepted and must be resubmitted.
func (r *MeterReading) Approve(override bool, now time.Time) error {
	switch r.Status {
	case ReadingStatusPending, ReadingStatusEstimated:
	case ReadingStatusAnomaly:
		if r.AnomalyKind == AnomalyNonMonotonic {
			return ErrNonMonotonicReading
		}
		if !override {
			return ErrOutlierReading
		}
		r.Overridden = true
	default:
		return shared.NewDomainError("INVALID_STATE", "Only pending, estimated or anomalous readings can be approved")
	}

	r.Status = ReadingStatusConfirmed
	r.ApprovedAt = &now
	r.Touch()
	r.AddDomainEvent(newReadingEvent(EventTypeReadingApproved, r))
	return nil
}

// Reject discards the reading so that a new one may be submitted
func (r *MeterReading) Reject(reason string) error {
	if r.Status == ReadingStatusRejected {
		return shared.NewDomainError("INVALID_STATE", "Reading is already rejected")
	}
	if r.Status == ReadingStatusConfirmed {
		return shared.NewDomainError("INVALID_STATE", "Confirmed readings cannot be rejected")
	}
	r.Status = ReadingStatusRejected
	if reason = strings.TrimSpace(reason); reason != "" {
		r.Notes = reason
	}
	r.Touch()
	r.AddDomainEvent(newReadingEvent(EventTypeReadingRejected, r))
	return nil
}
