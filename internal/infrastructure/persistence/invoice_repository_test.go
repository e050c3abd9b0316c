package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockInvoiceRepository(t *testing.T) (*InvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewInvoiceRepository(gormDB), mock, mockDB
}

func testInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	start, end, err := billing.MonthPeriod("2025-01")
	require.NoError(t, err)
	invoice, err := billing.NewInvoice(uuid.New(), start, end, mustTestMoney(t, "3.50"), 7, 7)
	require.NoError(t, err)
	return invoice
}

func TestInvoiceRepository_Create(t *testing.T) {
	t.Run("maps a duplicate active window to ErrInvoiceExists", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		// The partial unique index on (user_id, billing_month) rejects the
		// second writer; the driver reports it as a duplicated key.
		mock.ExpectExec(`INSERT INTO "invoices"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err := repo.Create(context.Background(), testInvoice(t))

		assert.ErrorIs(t, err, shared.ErrInvoiceExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_FindOverlapping(t *testing.T) {
	t.Run("queries the half-open window", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		start, end, err := billing.MonthPeriod("2025-01")
		require.NoError(t, err)

		rows := sqlmock.NewRows([]string{"id", "user_id", "status"})

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE user_id = \$1 AND period_start < \$2 AND period_end > \$3`).
			WithArgs(userID, end, start).
			WillReturnRows(rows)

		invoices, err := repo.FindOverlapping(context.Background(), userID, start, end)

		assert.NoError(t, err)
		assert.Empty(t, invoices)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_FindByStripeInvoiceID(t *testing.T) {
	t.Run("returns ErrNotFound when no invoice is linked", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE stripe_invoice_id = \$1`).
			WithArgs("in_missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByStripeInvoiceID(context.Background(), "in_missing")

		assert.Nil(t, invoice)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceRepository_SaveWithLock(t *testing.T) {
	t.Run("persists a settlement", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoice := testInvoice(t)
		require.NoError(t, invoice.MarkPaid("pi_123", invoice.PeriodEnd))

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), invoice)

		assert.NoError(t, err)
		assert.Equal(t, 2, invoice.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a concurrent status change", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoice := testInvoice(t)
		require.NoError(t, invoice.MarkFailed("card declined"))

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), invoice)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, invoice.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
