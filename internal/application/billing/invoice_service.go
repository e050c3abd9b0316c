package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceService builds invoices from the usage ledger and settles them
// against payment outcomes. Generation is idempotent per (user, period): a
// second run finds the overlapping invoice and returns ErrInvoiceExists, so
// the monthly batch can be re-run safely after a partial failure. The overlap
// check is advisory; concurrent runs that pass it together are settled by the
// store's uniqueness rule on (user, billing month), which reports the same
// ErrInvoiceExists.
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	usageRepo   billing.UsageRecordRepository
	userRepo    billing.UserRepository
	logger      *zap.Logger
	observer    MeterObserver
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	usageRepo billing.UsageRecordRepository,
	userRepo billing.UserRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		usageRepo:   usageRepo,
		userRepo:    userRepo,
		logger:      logger,
		observer:    noopObserver{},
	}
}

// SetObserver wires a telemetry observer. Must be called before the service
// starts handling traffic.
func (s *InvoiceService) SetObserver(observer MeterObserver) {
	if observer != nil {
		s.observer = observer
	}
}

// GenerateInvoice aggregates one user's usage over a billing month into a
// pending invoice. Cancelled invoices do not block regeneration.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, userID uuid.UUID, month string) (*billing.Invoice, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	start, end, err := billing.MonthPeriod(month)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := s.invoiceRepo.FindOverlapping(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, inv := range existing {
		if inv.Status != billing.InvoiceStatusCancelled {
			return nil, shared.NewDomainError(shared.ErrInvoiceExists.Code,
				fmt.Sprintf("invoice %s already covers %s", inv.ID, month))
		}
	}

	totals, err := s.usageRepo.SumByUserAndPeriod(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if totals.RecordCount == 0 {
		return nil, shared.NewDomainError(shared.ErrNoUsage.Code,
			fmt.Sprintf("no usage for user %s in %s", userID, month))
	}

	invoice, err := billing.NewInvoice(userID, start, end,
		totals.TotalCost, totals.TotalCredits, totals.RecordCount)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.observer.RecordInvoiceGenerated(ctx, month)
	s.logger.Info("Invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("month", month),
		zap.String("total", invoice.TotalCost.String()),
		zap.Int64("records", invoice.RecordCount))

	return invoice, nil
}

// BatchResult summarizes one monthly invoicing run
type BatchResult struct {
	Month     string
	Generated int
	Skipped   int
	Failed    int
}

// GenerateMonthlyInvoices invoices every user with usage in the month.
// Per-user failures are logged and counted, never fatal to the batch;
// already-invoiced users count as skipped.
func (s *InvoiceService) GenerateMonthlyInvoices(ctx context.Context, month string) (*BatchResult, error) {
	start, end, err := billing.MonthPeriod(month)
	if err != nil {
		return nil, err
	}

	userIDs, err := s.usageRepo.DistinctUserIDsInPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Month: month}
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		_, err := s.GenerateInvoice(ctx, userID, month)
		switch {
		case err == nil:
			result.Generated++
		case shared.ErrInvoiceExists.Is(err):
			result.Skipped++
		default:
			result.Failed++
			s.logger.Error("Failed to generate invoice",
				zap.String("user_id", userID.String()),
				zap.String("month", month),
				zap.Error(err))
		}
	}

	s.logger.Info("Monthly invoicing run finished",
		zap.String("month", month),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

// MarkPaid settles an invoice by ID
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID uuid.UUID, paymentID string, paidAt time.Time) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.MarkPaid(paymentID, paidAt); err != nil {
		return err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	s.observer.RecordInvoiceSettled(ctx, string(invoice.Status))
	s.logger.Info("Invoice paid",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", paymentID))
	return nil
}

// MarkPaidByStripeInvoice settles the invoice linked to a Stripe invoice.
// Unknown Stripe invoices are not an error; the webhook layer acknowledges
// them to stop redelivery.
func (s *InvoiceService) MarkPaidByStripeInvoice(ctx context.Context, stripeInvoiceID, paymentID string, paidAt time.Time) error {
	invoice, err := s.invoiceRepo.FindByStripeInvoiceID(ctx, stripeInvoiceID)
	if err != nil {
		return err
	}
	if err := invoice.MarkPaid(paymentID, paidAt); err != nil {
		return err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	s.observer.RecordInvoiceSettled(ctx, string(invoice.Status))
	return nil
}

// MarkFailed records a payment failure on an invoice
func (s *InvoiceService) MarkFailed(ctx context.Context, invoiceID uuid.UUID, reason string) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.MarkFailed(reason); err != nil {
		return err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	s.observer.RecordInvoiceSettled(ctx, string(invoice.Status))
	s.logger.Warn("Invoice payment failed",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("reason", reason))
	return nil
}

// Cancel voids an invoice so the period can be re-invoiced
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.Cancel(); err != nil {
		return err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	s.observer.RecordInvoiceSettled(ctx, string(invoice.Status))
	return nil
}

// GetInvoice loads an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

// ListInvoices lists a user's invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, error) {
	return s.invoiceRepo.FindByUser(ctx, userID, filter)
}
