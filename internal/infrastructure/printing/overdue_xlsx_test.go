package printing

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestOverdueXLSX_WriteReport(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	invoices := []*billing.Invoice{
		{InvoiceNumber: "INV-A", CustomerID: uuid.New(), MeterID: uuid.New(), DueDate: now.AddDate(0, 0, -100),
			TotalAmount: decimal.RequireFromString("250.75"), BalanceDue: decimal.RequireFromString("250.75"), Status: billing.InvoiceStatusOverdue},
		{InvoiceNumber: "INV-B", CustomerID: uuid.New(), MeterID: uuid.New(), DueDate: now.AddDate(0, 0, -10),
			TotalAmount: decimal.NewFromInt(80), BalanceDue: decimal.RequireFromString("30.5"), Status: billing.InvoiceStatusPartial},
	}
	summary := billing.SummarizeOverdue(invoices, billing.OverdueFilter{}, now)

	var buf bytes.Buffer
	require.NoError(t, NewOverdueXLSX().WriteOverdueReport(&buf, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetInvoices}, f.GetSheetList())

	tests := []struct {
		sheet string
		cell  string
		want  string
	}{
		{SheetSummary, "B1", "2026-06-01"},
		{SheetSummary, "B2", "2"},
		{SheetSummary, "B3", "281.25"},
		{SheetSummary, "B5", "1"},
		{SheetSummary, "A8", "0-30"},
		{SheetSummary, "B8", "1"},
		{SheetSummary, "A11", "90+"},
		{SheetSummary, "C11", "250.75"},
		{SheetInvoices, "A1", "Invoice"},
		{SheetInvoices, "A2", "INV-A"},
		{SheetInvoices, "E2", "100"},
		{SheetInvoices, "F2", "90+"},
		{SheetInvoices, "G2", "Overdue"},
		{SheetInvoices, "G3", "Partial"},
		{SheetInvoices, "A3", "INV-B"},
		{SheetInvoices, "I3", "30.5"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet+"!"+tt.cell, func(t *testing.T) {
			got, err := f.GetCellValue(tt.sheet, tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverdueXLSX_EmptySummary(t *testing.T) {
	summary := billing.SummarizeOverdue(nil, billing.OverdueFilter{}, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, NewOverdueXLSX().WriteOverdueReport(&buf, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetInvoices)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
