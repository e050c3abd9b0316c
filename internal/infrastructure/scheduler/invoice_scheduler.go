// Package scheduler runs the periodic background jobs, currently the monthly
// invoice generation sweep.
package scheduler

import (
	"context"
	"sync"
	"time"

	appbilling "github.com/resumeroast/backend/internal/application/billing"
	"github.com/resumeroast/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// InvoiceGenerator is the slice of the invoice service the scheduler drives
type InvoiceGenerator interface {
	GenerateMonthlyInvoices(ctx context.Context, month string) (*appbilling.BatchResult, error)
}

// InvoiceSchedulerConfig holds configuration for the invoice scheduler
type InvoiceSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CheckInterval is how often the scheduler wakes up to see whether the
	// previous month still needs invoicing
	CheckInterval time.Duration

	// RunTimeout is the maximum time for one invoicing sweep
	RunTimeout time.Duration
}

// DefaultInvoiceSchedulerConfig returns default configuration
func DefaultInvoiceSchedulerConfig() InvoiceSchedulerConfig {
	return InvoiceSchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		RunTimeout:    30 * time.Minute,
	}
}

// InvoiceScheduler sweeps the closed billing month into invoices. Invoice
// generation is idempotent per (user, month), so waking up more than once for
// the same month only produces skips, never duplicates.
type InvoiceScheduler struct {
	service   InvoiceGenerator
	logger    *zap.Logger
	config    InvoiceSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// lastSweptMonth is the most recent month a sweep finished cleanly for;
	// ticks inside the same month are then skipped without touching the DB
	lastSweptMonth string
}

// NewInvoiceScheduler creates a new invoice scheduler
func NewInvoiceScheduler(service InvoiceGenerator, logger *zap.Logger, config InvoiceSchedulerConfig) *InvoiceScheduler {
	return &InvoiceScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the invoice scheduler
func (s *InvoiceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Invoice scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Invoice scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *InvoiceScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Invoice scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Invoice scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *InvoiceScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Sweep once at startup so a restart right after month end does not wait
	// a full interval.
	s.sweep(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Invoice scheduler loop stopping")
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep invoices the month before the one containing now
func (s *InvoiceScheduler) sweep(ctx context.Context, now time.Time) {
	month := PreviousBillingMonth(now)

	s.mu.Lock()
	alreadySwept := s.lastSweptMonth == month
	s.mu.Unlock()
	if alreadySwept {
		return
	}

	s.logger.Info("Starting monthly invoice sweep", zap.String("month", month))

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := s.service.GenerateMonthlyInvoices(runCtx, month)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Monthly invoice sweep failed",
			zap.String("month", month),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Monthly invoice sweep completed",
		zap.String("month", month),
		zap.Duration("duration", duration),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	// A sweep with failures is retried on the next tick; generation
	// idempotency turns the already-generated users into skips.
	if result.Failed == 0 {
		s.mu.Lock()
		s.lastSweptMonth = month
		s.mu.Unlock()
	}
}

// TriggerImmediateSweep invoices the given month right away, bypassing the
// already-swept check. An empty month means the previous calendar month.
func (s *InvoiceScheduler) TriggerImmediateSweep(ctx context.Context, month string) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if month == "" {
		month = PreviousBillingMonth(time.Now())
	}
	s.logger.Info("Triggering immediate invoice sweep", zap.String("month", month))

	go func() {
		defer s.wg.Done()

		runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()

		result, err := s.service.GenerateMonthlyInvoices(runCtx, month)
		if err != nil {
			s.logger.Error("Immediate invoice sweep failed",
				zap.String("month", month), zap.Error(err))
			return
		}
		s.logger.Info("Immediate invoice sweep completed",
			zap.String("month", month),
			zap.Int("generated", result.Generated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *InvoiceScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// PreviousBillingMonth returns the billing month key for the month before the
// one containing t
func PreviousBillingMonth(t time.Time) string {
	t = t.UTC()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return billing.BillingMonthKey(firstOfMonth.AddDate(0, -1, 0))
}
