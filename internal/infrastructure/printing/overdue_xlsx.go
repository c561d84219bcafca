package printing

import (
	"fmt"
	"io"

	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the overdue workbook
const (
	SheetSummary  = "Summary"
	SheetInvoices = "Overdue"
)

var invoiceColumns = []string{
	"Invoice", "Customer", "Meter", "Due date", "Days overdue", "Bucket", "Status", "Total", "Balance due",
}

// OverdueXLSX writes the overdue aging report as a workbook
type OverdueXLSX struct{}

// NewOverdueXLSX creates the workbook writer
func NewOverdueXLSX() *OverdueXLSX {
	return &OverdueXLSX{}
}

// WriteOverdueReport writes a summary sheet with bucket totals and one row per overdue invoice
func (x *OverdueXLSX) WriteOverdueReport(w io.Writer, summary billing.OverdueSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return workbookError(err)
	}
	if _, err := f.NewSheet(SheetInvoices); err != nil {
		return workbookError(err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return workbookError(err)
	}

	if err := writeSummarySheet(f, summary, bold); err != nil {
		return workbookError(err)
	}
	if err := writeInvoiceSheet(f, summary.Invoices, bold); err != nil {
		return workbookError(err)
	}

	if err := f.Write(w); err != nil {
		return workbookError(err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary billing.OverdueSummary, bold int) error {
	stats := summary.Stats
	rows := [][]any{
		{"As of", summary.AsOf.Format(dateLayout)},
		{"Overdue invoices", stats.Count},
		{"Total overdue", stats.TotalOverdue.InexactFloat64()},
		{"Average days overdue", stats.AverageDaysOverdue.InexactFloat64()},
		{"Critical (90+ days)", stats.CriticalCount},
		{},
		{"Bucket", "Count", "Amount"},
	}
	for _, b := range stats.Buckets {
		rows = append(rows, []any{string(b.Bucket), b.Count, b.Amount.InexactFloat64()})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "A5", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A7", "C7", bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func writeInvoiceSheet(f *excelize.File, invoices []billing.OverdueInvoice, bold int) error {
	header := make([]any, len(invoiceColumns))
	for i, c := range invoiceColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetInvoices, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(invoiceColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetInvoices, "A1", last, bold); err != nil {
		return err
	}

	for i, inv := range invoices {
		row := []any{
			inv.InvoiceNumber,
			inv.CustomerID.String(),
			inv.MeterID.String(),
			inv.DueDate.Format(dateLayout),
			inv.DaysOverdue,
			string(inv.Bucket),
			statusLabel(string(inv.Status)),
			inv.TotalAmount.InexactFloat64(),
			inv.BalanceDue.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetInvoices, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetInvoices, "A", "A", 26); err != nil {
		return err
	}
	return f.SetColWidth(SheetInvoices, "B", "C", 38)
}

func workbookError(err error) error {
	return NewRenderError(ErrCodeWorkbookFailed, "failed to build overdue workbook", err)
}
