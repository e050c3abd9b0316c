package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsError represents an error in metrics setup.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// BillingMetrics tracks the metering and invoicing activity: how much usage
// is recorded, how often requests are denied and why, and how invoicing runs
// go.
type BillingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	usageRecordedTotal *Counter
	usageDeniedTotal   *Counter
	overageTotal       *Counter
	creditsGranted     *Counter
	invoicesGenerated  *Counter
	invoicesSettled    *Counter

	usageCost *Histogram
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBillingMetrics creates a new BillingMetrics instance.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	bm.usageRecordedTotal, err = NewCounter(
		cfg.Meter,
		"roast_usage_recorded_total",
		"Total number of billable actions recorded",
		"{actions}",
	)
	if err != nil {
		return nil, err
	}

	bm.usageDeniedTotal, err = NewCounter(
		cfg.Meter,
		"roast_usage_denied_total",
		"Total number of actions denied by quota or credit checks",
		"{actions}",
	)
	if err != nil {
		return nil, err
	}

	bm.overageTotal, err = NewCounter(
		cfg.Meter,
		"roast_usage_overage_total",
		"Total number of actions paid from bonus credits",
		"{actions}",
	)
	if err != nil {
		return nil, err
	}

	bm.creditsGranted, err = NewCounter(
		cfg.Meter,
		"roast_credits_granted_total",
		"Total bonus credits granted",
		"{credits}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoicesGenerated, err = NewCounter(
		cfg.Meter,
		"roast_invoices_generated_total",
		"Total number of invoices generated",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoicesSettled, err = NewCounter(
		cfg.Meter,
		"roast_invoices_settled_total",
		"Total number of invoice settlement transitions",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.usageCost, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "roast_usage_cost_usd",
		Description: "Per-action provider cost in USD",
		Unit:        "USD",
		Boundaries:  CostBuckets,
	})
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordUsage records a successfully metered action
func (bm *BillingMetrics) RecordUsage(ctx context.Context, action, model, tier string, costUSD float64, overage bool) {
	bm.usageRecordedTotal.Inc(ctx,
		AttrAction.String(action),
		AttrModel.String(model),
		AttrTier.String(tier),
	)
	bm.usageCost.Record(ctx, costUSD,
		AttrAction.String(action),
		AttrModel.String(model),
	)
	if overage {
		bm.overageTotal.Inc(ctx,
			AttrAction.String(action),
			AttrTier.String(tier),
		)
	}
}

// RecordDenied records a request refused by the quota or credit gate
func (bm *BillingMetrics) RecordDenied(ctx context.Context, action, tier, reason string) {
	bm.usageDeniedTotal.Inc(ctx,
		AttrAction.String(action),
		AttrTier.String(tier),
		AttrDenyReason.String(reason),
	)
}

// RecordCreditsGranted records a bonus credit top-up
func (bm *BillingMetrics) RecordCreditsGranted(ctx context.Context, credits int64) {
	bm.creditsGranted.Add(ctx, credits)
}

// RecordInvoiceGenerated records one generated invoice
func (bm *BillingMetrics) RecordInvoiceGenerated(ctx context.Context, month string) {
	bm.invoicesGenerated.Inc(ctx, AttrMonth.String(month))
}

// RecordInvoiceSettled records an invoice status transition (paid, failed, cancelled)
func (bm *BillingMetrics) RecordInvoiceSettled(ctx context.Context, status string) {
	bm.invoicesSettled.Inc(ctx, AttrStatus.String(status))
}
