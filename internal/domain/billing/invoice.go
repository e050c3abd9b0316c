package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusFailed    InvoiceStatus = "FAILED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid returns true if the status is a known status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusFailed, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true once the invoice can no longer change state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice aggregates a user's usage records over one billing period into a
// single payable document. The period is half-open: [PeriodStart, PeriodEnd).
//
// Invariants:
//   - at most one invoice per (user, period); overlap checks are done against
//     the half-open window, not the month key, so custom periods also conflict
//   - TotalCost equals the sum of the covered usage record costs
//   - PAID and CANCELLED are terminal
type Invoice struct {
	shared.BaseAggregateRoot
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_invoices_user_period"`
	PeriodStart     time.Time         `gorm:"not null;index:idx_invoices_user_period"`
	PeriodEnd       time.Time         `gorm:"not null"`
	BillingMonth    string            `gorm:"size:7;not null;index"`
	TotalCost       valueobject.Money `gorm:"type:numeric(12,6);not null"`
	Currency        valueobject.Currency
	TotalCredits    int64         `gorm:"not null"`
	RecordCount     int64         `gorm:"not null"`
	Status          InvoiceStatus `gorm:"not null;default:PENDING"`
	StripeInvoiceID *string       `gorm:"uniqueIndex"`
	PaymentID       *string
	PaidAt          *time.Time
	FailureReason   *string
}

// TableName sets the GORM table name
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a pending invoice for a user's usage over a period
func NewInvoice(
	userID uuid.UUID,
	periodStart, periodEnd time.Time,
	total valueobject.Money,
	totalCredits, recordCount int64,
) (*Invoice, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			"invoice period end must be after period start")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			"invoice total cannot be negative")
	}
	if recordCount <= 0 {
		return nil, shared.NewDomainError(shared.ErrNoUsage.Code,
			"invoice must cover at least one usage record")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		PeriodStart:       periodStart.UTC(),
		PeriodEnd:         periodEnd.UTC(),
		BillingMonth:      BillingMonthKey(periodStart),
		TotalCost:         total,
		Currency:          total.Currency(),
		TotalCredits:      totalCredits,
		RecordCount:       recordCount,
		Status:            InvoiceStatusPending,
	}, nil
}

// Overlaps reports whether another half-open period intersects this invoice's
func (i *Invoice) Overlaps(start, end time.Time) bool {
	return start.Before(i.PeriodEnd) && i.PeriodStart.Before(end)
}

// MarkPaid settles the invoice. Marking an already paid invoice with the same
// payment ID is a no-op so webhook redelivery stays safe; any other
// transition out of a terminal state is rejected.
func (i *Invoice) MarkPaid(paymentID string, paidAt time.Time) error {
	if i.Status == InvoiceStatusPaid {
		if i.PaymentID != nil && *i.PaymentID == paymentID {
			return nil
		}
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("invoice already paid with payment %s", stringOrEmpty(i.PaymentID)))
	}
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"cannot pay a cancelled invoice")
	}
	paidAt = paidAt.UTC()
	i.Status = InvoiceStatusPaid
	i.PaymentID = &paymentID
	i.PaidAt = &paidAt
	i.FailureReason = nil
	i.UpdatedAt = time.Now()
	return nil
}

// MarkFailed records a failed payment attempt. A failed invoice stays payable
// and can be retried; only terminal states reject the transition.
func (i *Invoice) MarkFailed(reason string) error {
	if i.Status.IsTerminal() {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("cannot fail invoice in state %s", i.Status))
	}
	i.Status = InvoiceStatusFailed
	i.FailureReason = &reason
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel voids the invoice. Cancelling twice is a no-op; a paid invoice
// cannot be cancelled.
func (i *Invoice) Cancel() error {
	if i.Status == InvoiceStatusCancelled {
		return nil
	}
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"cannot cancel a paid invoice")
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()
	return nil
}

// AttachStripeInvoice links the Stripe-side invoice document
func (i *Invoice) AttachStripeInvoice(stripeInvoiceID string) {
	i.StripeInvoiceID = &stripeInvoiceID
	i.UpdatedAt = time.Now()
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
