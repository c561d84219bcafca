// Package billing contains the utility billing domain: billing periods and
// their lifecycle, meter readings, tariffs, invoices, payments, customer
// wallets and the overdue (aging) view over open invoices.
package billing
