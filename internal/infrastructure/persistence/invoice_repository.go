package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// InvoiceRepository implements billing.InvoiceRepository using GORM
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create persists a new invoice. The partial unique index on
// (user_id, billing_month) admits at most one non-cancelled invoice per
// window; losing that race surfaces as ErrInvoiceExists.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrInvoiceExists
		}
		return err
	}
	return nil
}

// FindByID retrieves an invoice by ID
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByUser retrieves a user's invoices
func (r *InvoiceRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice

	sortField := ValidateSortField(filter.OrderBy, InvoiceSortFields, "period_start")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByStripeInvoiceID retrieves the invoice linked to a Stripe invoice
func (r *InvoiceRepository) FindByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "stripe_invoice_id = ?", stripeInvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindOverlapping returns the user's invoices whose half-open period
// intersects [start, end)
func (r *InvoiceRepository) FindOverlapping(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_start < ? AND period_end > ?", userID, end, start).
		Order("period_start ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// SaveWithLock persists status transitions with optimistic locking
func (r *InvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.GetVersion()).
		Updates(map[string]interface{}{
			"status":            invoice.Status,
			"stripe_invoice_id": invoice.StripeInvoiceID,
			"payment_id":        invoice.PaymentID,
			"paid_at":           invoice.PaidAt,
			"failure_reason":    invoice.FailureReason,
			"version":           invoice.GetVersion() + 1,
			"updated_at":        invoice.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	invoice.IncrementVersion()
	return nil
}

// Ensure InvoiceRepository implements the interface
var _ billing.InvoiceRepository = (*InvoiceRepository)(nil)
