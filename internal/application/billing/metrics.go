package billing

import "context"

// MeterObserver receives metering and invoicing outcomes. Implementations
// export them as metrics; the services never block on an observer.
type MeterObserver interface {
	RecordUsage(ctx context.Context, action, model, tier string, costUSD float64, overage bool)
	RecordDenied(ctx context.Context, action, tier, reason string)
	RecordCreditsGranted(ctx context.Context, credits int64)
	RecordInvoiceGenerated(ctx context.Context, month string)
	RecordInvoiceSettled(ctx context.Context, status string)
}

// Deny reasons reported to the observer
const (
	DenyReasonQuotaExceeded    = "quota_exceeded"
	DenyReasonCreditExceeded   = "credit_exceeded"
	DenyReasonActionNotAllowed = "action_not_allowed"
)

// noopObserver is the default observer when no telemetry is wired
type noopObserver struct{}

func (noopObserver) RecordUsage(context.Context, string, string, string, float64, bool) {}
func (noopObserver) RecordDenied(context.Context, string, string, string)               {}
func (noopObserver) RecordCreditsGranted(context.Context, int64)                        {}
func (noopObserver) RecordInvoiceGenerated(context.Context, string)                     {}
func (noopObserver) RecordInvoiceSettled(context.Context, string)                       {}
