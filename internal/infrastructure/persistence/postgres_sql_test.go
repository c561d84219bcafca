package persistence_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPostgres opens a GORM postgres dialect on top of sqlmock
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	database, err := persistence.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}))
	require.NoError(t, err)
	return database.DB, mock
}

func openInvoice(version int) *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     "INV-2026-01-M-1",
		CustomerID:        uuid.New(),
		MeterID:           uuid.New(),
		PeriodID:          uuid.New(),
		InvoiceDate:       day(2026, 2, 1),
		DueDate:           day(2026, 2, 15),
		TotalAmount:       dec("115"),
		BalanceDue:        dec("115"),
		Status:            billing.InvoiceStatusGenerated,
	}
	inv.Version = version
	return inv
}

func TestInvoiceRepository_FindByIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMockPostgres(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "status"}).AddRow(id.String(), 3, "overdue"))

	inv, err := persistence.NewGormInvoiceRepository(db).FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, inv.ID)
	assert.Equal(t, 3, inv.Version)
	assert.Equal(t, billing.InvoiceStatusOverdue, inv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_FindByCustomerForUpdateLocksRow(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM "wallets" WHERE customer_id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := persistence.NewGormWalletRepository(db).FindByCustomerForUpdate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_SaveWithLockChecksVersion(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		wantErr     error
		wantVersion int
	}{
		{"row still at expected version", 1, nil, 4},
		{"row changed underneath", 0, shared.ErrConcurrencyConflict, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockPostgres(t)
			inv := openInvoice(3)

			mock.ExpectExec(`UPDATE "invoices" SET .*"version"=\$\d+.* WHERE version = \$\d+ AND "invoices"."id" = \$\d+`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := persistence.NewGormInvoiceRepository(db).SaveWithLock(context.Background(), inv)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, inv.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvoiceRepository_CreateSkipsConflicts(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO "invoices" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := persistence.NewGormInvoiceRepository(db).Create(context.Background(), openInvoice(1))
	assert.ErrorIs(t, err, billing.ErrDuplicateInvoice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UniqueViolationIsRetryable(t *testing.T) {
	db, mock := newMockPostgres(t)

	p, err := billing.NewPayment(uuid.New(), dec("50"), billing.PaymentMethodCash, day(2026, 2, 3), nil, "", "key-1")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO "payments"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_payments_idempotency_key"})

	err = persistence.NewGormPaymentRepository(db).Create(context.Background(), p)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
