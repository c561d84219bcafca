package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		days int
		want AgingBucket
	}{
		{0, Bucket0To30},
		{1, Bucket0To30},
		{30, Bucket0To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, BucketOver90},
		{400, BucketOver90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFor(tt.days), "days=%d", tt.days)
	}
}

func TestDaysOverdue(t *testing.T) {
	due := day(2024, 1, 1)
	assert.Equal(t, 0, DaysOverdue(due, due))
	assert.Equal(t, 0, DaysOverdue(due, due.Add(-time.Hour)))
	assert.Equal(t, 0, DaysOverdue(due, due.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysOverdue(due, due.Add(24*time.Hour)))
	assert.Equal(t, 30, DaysOverdue(due, due.AddDate(0, 0, 30).Add(12*time.Hour)))
	assert.Equal(t, 31, DaysOverdue(due, due.AddDate(0, 0, 31)))
}

func TestSummarizeOverdue(t *testing.T) {
	now := day(2024, 6, 1)
	customer := uuid.New()

	at := func(daysAgo int, balance string) *Invoice {
		inv := newTestInvoice(balance, now.AddDate(0, 0, -daysAgo))
		inv.CustomerID = customer
		return inv
	}

	thirty := at(30, "100")
	thirtyOne := at(31, "200")
	seventy := at(70, "300")
	critical := at(120, "400")
	critical.Status = InvoiceStatusOverdue

	cancelled := at(50, "999")
	cancelled.Status = InvoiceStatusCancelled
	paid := at(50, "0")
	notDue := at(-5, "50")
	otherCustomer := at(10, "10")
	otherCustomer.CustomerID = uuid.New()

	all := []*Invoice{thirty, cancelled, critical, paid, thirtyOne, notDue, seventy, otherCustomer}

	t.Run("all customers", func(t *testing.T) {
		s := SummarizeOverdue(all, OverdueFilter{}, now)
		require.Len(t, s.Invoices, 5)

		assert.Equal(t, critical.ID, s.Invoices[0].InvoiceID)
		assert.Equal(t, 120, s.Invoices[0].DaysOverdue)
		for i := 1; i < len(s.Invoices); i++ {
			assert.GreaterOrEqual(t, s.Invoices[i-1].DaysOverdue, s.Invoices[i].DaysOverdue)
		}

		assert.Equal(t, 5, s.Stats.Count)
		assert.True(t, s.Stats.TotalOverdue.Equal(dec("1010")))
		assert.Equal(t, 1, s.Stats.CriticalCount)
		// (30 + 31 + 70 + 120 + 10) / 5
		assert.True(t, s.Stats.AverageDaysOverdue.Equal(dec("52.2")))

		require.Len(t, s.Stats.Buckets, 4)
		assert.Equal(t, Bucket0To30, s.Stats.Buckets[0].Bucket)
		assert.Equal(t, 2, s.Stats.Buckets[0].Count)
		assert.True(t, s.Stats.Buckets[0].Amount.Equal(dec("110")))
		assert.Equal(t, 1, s.Stats.Buckets[1].Count)
		assert.True(t, s.Stats.Buckets[1].Amount.Equal(dec("200")))
		assert.Equal(t, 1, s.Stats.Buckets[2].Count)
		assert.Equal(t, 1, s.Stats.Buckets[3].Count)
	})

	t.Run("stats follow the filter", func(t *testing.T) {
		s := SummarizeOverdue(all, OverdueFilter{CustomerID: &customer, DaysRange: Bucket31To60}, now)
		require.Len(t, s.Invoices, 1)
		assert.Equal(t, thirtyOne.ID, s.Invoices[0].InvoiceID)
		assert.Equal(t, 1, s.Stats.Count)
		assert.True(t, s.Stats.TotalOverdue.Equal(dec("200")))
		assert.Equal(t, 0, s.Stats.CriticalCount)
		assert.True(t, s.Stats.AverageDaysOverdue.Equal(dec("31")))
	})

	t.Run("status filter", func(t *testing.T) {
		s := SummarizeOverdue(all, OverdueFilter{Status: InvoiceStatusOverdue}, now)
		require.Len(t, s.Invoices, 1)
		assert.Equal(t, 1, s.Stats.CriticalCount)
	})

	t.Run("empty set", func(t *testing.T) {
		s := SummarizeOverdue(nil, OverdueFilter{}, now)
		assert.Empty(t, s.Invoices)
		assert.Equal(t, 0, s.Stats.Count)
		assert.True(t, s.Stats.AverageDaysOverdue.IsZero())
		assert.Len(t, s.Stats.Buckets, 4)
	})
}
