package billing

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingBucket groups overdue invoices by days past due
type AgingBucket string

const (
	Bucket0To30   AgingBucket = "0-30"
	Bucket31To60  AgingBucket = "31-60"
	Bucket61To90  AgingBucket = "61-90"
	BucketOver90  AgingBucket = "90+"
	bucketUnknown AgingBucket = ""
)

// AgingBuckets lists the buckets in ascending age
func AgingBuckets() []AgingBucket {
	return []AgingBucket{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}
}

// IsValid checks if the bucket is known
func (b AgingBucket) IsValid() bool {
	switch b {
	case Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90:
		return true
	}
	return false
}

// BucketFor returns the bucket for a number of days overdue
func BucketFor(days int) AgingBucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// DaysOverdue is floor((now - due) / 24h), never negative
func DaysOverdue(dueDate, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(math.Floor(now.Sub(dueDate).Hours() / 24))
}

// OverdueFilter narrows the overdue summary
type OverdueFilter struct {
	Status     InvoiceStatus
	DaysRange  AgingBucket
	CustomerID *uuid.UUID
}

// OverdueInvoice is one row of the overdue report
type OverdueInvoice struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	MeterID       uuid.UUID       `json:"meter_id"`
	DueDate       time.Time       `json:"due_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Status        InvoiceStatus   `json:"status"`
	DaysOverdue   int             `json:"days_overdue"`
	Bucket        AgingBucket     `json:"bucket"`
}

// BucketStat is the count and amount for one aging bucket
type BucketStat struct {
	Bucket AgingBucket     `json:"bucket"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// OverdueStats aggregates the filtered overdue set
type OverdueStats struct {
	TotalOverdue       decimal.Decimal `json:"total_overdue"`
	Count              int             `json:"count"`
	AverageDaysOverdue decimal.Decimal `json:"average_days_overdue"`
	CriticalCount      int             `json:"critical_count"`
	Buckets            []BucketStat    `json:"buckets"`
}

// OverdueSummary is the report returned to callers
type OverdueSummary struct {
	Invoices []OverdueInvoice `json:"invoices"`
	Stats    OverdueStats     `json:"stats"`
	AsOf     time.Time        `json:"as_of"`
}

// IsOverdueCandidate reports whether an invoice belongs in the overdue report
func IsOverdueCandidate(inv *Invoice, now time.Time) bool {
	return inv.Status != InvoiceStatusCancelled &&
		inv.BalanceDue.IsPositive() &&
		inv.DueDate.Before(now)
}

// SummarizeOverdue filters candidates, buckets them and computes stats over
// the filtered set. Rows are sorted by days overdue, most overdue first.
func SummarizeOverdue(invoices []*Invoice, filter OverdueFilter, now time.Time) OverdueSummary {
	rows := make([]OverdueInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv == nil || !IsOverdueCandidate(inv, now) {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		days := DaysOverdue(inv.DueDate, now)
		bucket := BucketFor(days)
		if filter.DaysRange != bucketUnknown && bucket != filter.DaysRange {
			continue
		}
		rows = append(rows, OverdueInvoice{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID,
			MeterID:       inv.MeterID,
			DueDate:       inv.DueDate,
			TotalAmount:   inv.TotalAmount,
			BalanceDue:    inv.BalanceDue,
			Status:        inv.Status,
			DaysOverdue:   days,
			Bucket:        bucket,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DaysOverdue > rows[j].DaysOverdue
	})

	return OverdueSummary{
		Invoices: rows,
		Stats:    computeOverdueStats(rows),
		AsOf:     now,
	}
}

func computeOverdueStats(rows []OverdueInvoice) OverdueStats {
	buckets := AgingBuckets()
	index := make(map[AgingBucket]int, len(buckets))
	stats := OverdueStats{
		TotalOverdue:       decimal.Zero,
		AverageDaysOverdue: decimal.Zero,
		Buckets:            make([]BucketStat, len(buckets)),
	}
	for i, b := range buckets {
		index[b] = i
		stats.Buckets[i] = BucketStat{Bucket: b, Amount: decimal.Zero}
	}

	totalDays := 0
	for _, r := range rows {
		stats.TotalOverdue = stats.TotalOverdue.Add(r.BalanceDue)
		stats.Count++
		totalDays += r.DaysOverdue
		if r.Bucket == BucketOver90 {
			stats.CriticalCount++
		}
		b := &stats.Buckets[index[r.Bucket]]
		b.Count++
		b.Amount = b.Amount.Add(r.BalanceDue)
	}
	if stats.Count > 0 {
		stats.AverageDaysOverdue = decimal.NewFromInt(int64(totalDays)).
			Div(decimal.NewFromInt(int64(stats.Count))).
			Round(2)
	}
	return stats
}
