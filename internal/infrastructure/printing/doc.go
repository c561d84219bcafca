// Package printing renders billing documents: invoices as PDF through gofpdf
// and the overdue aging report as an XLSX workbook through excelize.
//
// Example usage:
//
//	renderer := printing.NewInvoicePDF(printing.InvoicePDFConfig{CompanyName: "City Water"})
//	var buf bytes.Buffer
//	if err := renderer.RenderInvoice(&buf, invoice); err != nil {
//	    return err
//	}
package printing
