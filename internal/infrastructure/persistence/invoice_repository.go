package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openInvoiceStatuses are the statuses that can still receive money
var openInvoiceStatuses = []billing.InvoiceStatus{
	billing.InvoiceStatusGenerated,
	billing.InvoiceStatusPartial,
	billing.InvoiceStatusOverdue,
}

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the invoice with SELECT ... FOR UPDATE
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPeriodAndMeter returns the non-cancelled invoice of a meter in a period
func (r *GormInvoiceRepository) FindByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("period_id = ? AND meter_id = ? AND status <> ?", periodID, meterID, billing.InvoiceStatusCancelled).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindOpenByCustomerForUpdate locks the customer's unpaid invoices, oldest due first
func (r *GormInvoiceRepository) FindOpenByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND status IN ? AND balance_due > 0", customerID, openInvoiceStatuses).
		Order("due_date ASC").
		Order("invoice_date ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindOverdueCandidates returns non-cancelled invoices with a balance due before asOf
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, customerID *uuid.UUID) ([]*billing.Invoice, error) {
	query := r.db.WithContext(ctx).
		Where("status <> ? AND balance_due > 0 AND due_date < ?", billing.InvoiceStatusCancelled, asOf)
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var rows []models.InvoiceModel
	if err := query.Order("due_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindPastDueOpen returns generated or partial invoices due before asOf
func (r *GormInvoiceRepository) FindPastDueOpen(ctx context.Context, asOf time.Time, limit int) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?",
			[]billing.InvoiceStatus{billing.InvoiceStatusGenerated, billing.InvoiceStatusPartial}, asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindAll lists invoices
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.MeterID != nil {
		query = query.Where("meter_id = ?", *filter.MeterID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.InvoiceModel
	if err := applyPage(query, filter.Filter, InvoiceSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(rows), total, nil
}

// Create inserts an invoice. The insert does nothing when a live invoice for
// the same period and meter exists, which keeps the surrounding transaction
// usable; that case returns ErrDuplicateInvoice.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.InvoiceModelFromDomain(invoice))
	if result.Error != nil {
		return duplicate(result.Error, billing.ErrDuplicateInvoice)
	}
	if result.RowsAffected == 0 {
		return billing.ErrDuplicateInvoice
	}
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return saveWithVersion(ctx, r.db, model, func(v int) { model.Version = v }, invoice, "invoice")
}

func invoicesToDomain(rows []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
