package telemetry_test

import (
	"context"
	"testing"

	"github.com/resumeroast/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewBillingMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, bm)
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBillingMetrics: meter cannot be nil", err.Error())
}

func TestBillingMetrics_RecordUsage(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	bm.RecordUsage(ctx, "ROAST_ANALYSIS", "claude-sonnet-4-20250514", "PRO", 0.0102, false)
	bm.RecordUsage(ctx, "COVER_LETTER_GENERATION", "gpt-4.1-mini", "PRO", 0.0008, true)
}

func TestBillingMetrics_RecordDenied(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordDenied(ctx, "ROAST_ANALYSIS", "FREE", "quota_exceeded")
	bm.RecordDenied(ctx, "ROAST_ANALYSIS", "FREE", "credit_exceeded")
	bm.RecordDenied(ctx, "COVER_LETTER_GENERATION", "FREE", "action_not_allowed")
}

func TestBillingMetrics_InvoiceCounters(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordInvoiceGenerated(ctx, "2025-01")
	bm.RecordInvoiceSettled(ctx, "PAID")
	bm.RecordCreditsGranted(ctx, 200)
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled: false,
	}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}
