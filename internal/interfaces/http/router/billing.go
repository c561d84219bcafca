package router

import (
	"github.com/meterbill/backend/internal/interfaces/http/handler"
)

// BillingHandlers are the handlers served under /billing
type BillingHandlers struct {
	Periods    *handler.PeriodHandler
	Readings   *handler.ReadingHandler
	Invoices   *handler.InvoiceHandler
	Payments   *handler.PaymentHandler
	Wallets    *handler.WalletHandler
	Overdue    *handler.OverdueHandler
	Pricing    *handler.PricingHandler
	MasterData *handler.MasterDataHandler
}

// NewBillingRoutes builds the billing route table
func NewBillingRoutes(h BillingHandlers) *DomainGroup {
	g := NewDomainGroup("billing", "/billing")

	periods := g.Group("periods", "/periods")
	periods.POST("", h.Periods.Create)
	periods.GET("", h.Periods.List)
	periods.GET("/:id", h.Periods.GetByID)
	periods.PUT("/:id", h.Periods.Reschedule)
	periods.DELETE("/:id", h.Periods.Delete)
	periods.POST("/:id/transition", h.Periods.Transition)
	periods.POST("/:id/invoices/generate", h.Periods.GenerateInvoices)

	readings := g.Group("readings", "/readings")
	readings.POST("", h.Readings.Submit)
	readings.GET("", h.Readings.List)
	readings.GET("/:id", h.Readings.GetByID)
	readings.POST("/:id/approve", h.Readings.Approve)
	readings.POST("/:id/reject", h.Readings.Reject)

	invoices := g.Group("invoices", "/invoices")
	invoices.GET("", h.Invoices.List)
	invoices.GET("/:id", h.Invoices.GetByID)
	invoices.GET("/:id/pdf", h.Invoices.DownloadPDF)
	invoices.POST("/:id/cancel", h.Invoices.Cancel)

	g.POST("/payments", h.Payments.Record)
	g.GET("/payments/:id", h.Payments.GetByID)
	g.GET("/customers/:customerId/payments", h.Payments.ListByCustomer)

	wallets := g.Group("wallets", "/wallets/:customerId")
	wallets.GET("", h.Wallets.Get)
	wallets.POST("/charge", h.Wallets.Charge)
	wallets.POST("/withdraw", h.Wallets.Withdraw)
	wallets.GET("/transactions", h.Wallets.ListTransactions)
	wallets.GET("/reconcile", h.Wallets.Reconcile)

	g.GET("/overdue", h.Overdue.Summary)
	g.GET("/overdue/export", h.Overdue.Export)

	pricing := g.Group("pricing", "/pricing-rules")
	pricing.POST("", h.Pricing.Create)
	pricing.GET("", h.Pricing.List)
	pricing.GET("/resolve", h.Pricing.Resolve)
	pricing.POST("/:id/deactivate", h.Pricing.Deactivate)

	g.POST("/accounts", h.MasterData.CreateAccount)
	g.GET("/accounts/:id", h.MasterData.GetAccount)
	g.POST("/meters", h.MasterData.CreateMeter)
	g.GET("/meters/:id", h.MasterData.GetMeter)

	return g
}

// NewSystemRoutes builds the /system group
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/ping", h.Ping)
	return g
}
