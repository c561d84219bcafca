package printing

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// InvoicePDFConfig configures the invoice layout
type InvoicePDFConfig struct {
	CompanyName string
	Currency    string
	// PaperSize is a gofpdf size name such as "A4" or "Letter"
	PaperSize string
	// Uncompressed keeps page streams readable, used by tests
	Uncompressed bool
}

// InvoicePDF renders a single invoice as a one page PDF
type InvoicePDF struct {
	cfg InvoicePDFConfig
}

// NewInvoicePDF creates an invoice renderer
func NewInvoicePDF(cfg InvoicePDFConfig) *InvoicePDF {
	if cfg.Currency == "" {
		cfg.Currency = billing.DefaultCurrency
	}
	if cfg.PaperSize == "" {
		cfg.PaperSize = "A4"
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = "Utility Billing"
	}
	return &InvoicePDF{cfg: cfg}
}

// RenderInvoice writes the invoice PDF to w
func (r *InvoicePDF) RenderInvoice(w io.Writer, inv *billing.Invoice) error {
	if inv == nil {
		return NewRenderError(ErrCodeInvalidInput, "invoice is required", nil)
	}

	pdf := gofpdf.New("P", "mm", r.cfg.PaperSize, "")
	pdf.SetCompression(!r.cfg.Uncompressed)
	pdf.SetTitle(inv.InvoiceNumber, false)
	pdf.SetCreator(r.cfg.CompanyName, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, r.cfg.CompanyName)
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, "Invoice "+inv.InvoiceNumber)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	header := [][2]string{
		{"Invoice date", formatDate(inv.InvoiceDate)},
		{"Due date", formatDate(inv.DueDate)},
		{"Billing period", formatDate(inv.PeriodStart) + " to " + formatDate(inv.PeriodEnd)},
		{"Customer", inv.CustomerID.String()},
		{"Meter", inv.MeterID.String()},
		{"Status", statusLabel(string(inv.Status))},
	}
	for _, row := range header {
		pdf.CellFormat(45, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Consumption")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	r.table(pdf, []string{"Previous", "Current", "Units"}, [][]string{{
		inv.PreviousReading.String(),
		inv.CurrentReading.String(),
		inv.Consumption.String(),
	}})
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Charges")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	vatLabel := fmt.Sprintf("VAT (%s%%)", inv.VATRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	lines := [][]string{
		{"Consumption charges", r.money(inv.ConsumptionAmount)},
		{"Fixed charges", r.money(inv.FixedCharges)},
		{vatLabel, r.money(inv.VATAmount)},
		{"Total", r.money(inv.TotalAmount)},
		{"Paid", r.money(inv.PaidAmount)},
		{"Balance due", r.money(inv.BalanceDue)},
	}
	if inv.PreviousBalanceDue.IsPositive() {
		lines = append(lines, []string{"Previous balance (not included)", r.money(inv.PreviousBalanceDue)})
	}
	r.table(pdf, []string{"Item", "Amount"}, lines)

	if inv.Status == billing.InvoiceStatusCancelled {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(0, 8, "CANCELLED: "+inv.CancelReason)
		pdf.SetTextColor(0, 0, 0)
	}

	if err := pdf.Output(w); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to render invoice pdf", err)
	}
	return nil
}

func (r *InvoicePDF) table(pdf *gofpdf.Fpdf, headers []string, rows [][]string) {
	width := 180.0 / float64(len(headers))
	pdf.SetFont("Arial", "B", 10)
	for _, h := range headers {
		pdf.CellFormat(width, 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 {
				align = "R"
			}
			pdf.CellFormat(width, 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (r *InvoicePDF) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + r.cfg.Currency
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
