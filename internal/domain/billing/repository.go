package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// UserRepository persists billing users.
//
// SaveWithLock and SaveWithUsageRecord compare the aggregate version on
// write; a stale version returns shared.ErrConcurrencyConflict and the
// caller is expected to re-read and retry.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error)

	// SaveWithLock persists counter mutations under optimistic locking
	SaveWithLock(ctx context.Context, user *User) error

	// SaveWithUsageRecord persists the user's updated counters and appends
	// the usage record in one transaction, still under optimistic locking.
	// Either both rows commit or neither does.
	SaveWithUsageRecord(ctx context.Context, user *User, record *UsageRecord) error
}

// UsageRecordRepository reads the append-only usage ledger
type UsageRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UsageRecord, error)
	FindByUserAndPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time, filter shared.Filter) ([]*UsageRecord, error)
	CountByUserAndPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (int64, error)

	// SumByUserAndPeriod totals cost and credits over [start, end)
	SumByUserAndPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (UsageTotals, error)

	// DistinctUserIDsInPeriod lists every user with at least one record in
	// [start, end), for batch invoicing
	DistinctUserIDsInPeriod(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}

// UsageTotals is the aggregation result over a set of usage records
type UsageTotals struct {
	TotalCost    valueobject.Money
	TotalCredits int64
	RecordCount  int64
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*Invoice, error)
	FindByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*Invoice, error)

	// FindOverlapping returns invoices for the user whose half-open period
	// intersects [start, end); used to enforce one invoice per period
	FindOverlapping(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*Invoice, error)

	// SaveWithLock persists status transitions under optimistic locking
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}
