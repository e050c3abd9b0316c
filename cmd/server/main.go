// Command server runs the metering and billing backend: the Stripe webhook
// listener and the monthly invoicing scheduler.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/resumeroast/backend/internal/application/billing"
	"github.com/resumeroast/backend/internal/domain/billing"
	stripebilling "github.com/resumeroast/backend/internal/infrastructure/billing"
	"github.com/resumeroast/backend/internal/infrastructure/config"
	"github.com/resumeroast/backend/internal/infrastructure/logger"
	"github.com/resumeroast/backend/internal/infrastructure/persistence"
	"github.com/resumeroast/backend/internal/infrastructure/scheduler"
	"github.com/resumeroast/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	maxWebhookBody  = 1 << 16
)

// BillingMetrics must satisfy the application-layer observer contract.
var _ appbilling.MeterObserver = (*telemetry.BillingMetrics)(nil)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting resumeroast backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:  meterProvider.Meter("resumeroast/billing"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize billing metrics", zap.Error(err))
	}

	stripeCfg := &stripebilling.StripeConfig{
		SecretKey:         cfg.Stripe.SecretKey,
		PublishableKey:    cfg.Stripe.PublishableKey,
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		IsTestMode:        cfg.Stripe.IsTestMode,
		DefaultCurrency:   cfg.Stripe.DefaultCurrency,
		PriceIDs:          cfg.Stripe.PriceIDs,
		CreditPackPriceID: cfg.Stripe.CreditPackPriceID,
		CreditPackSize:    cfg.Billing.CreditPackSize,
	}
	if cfg.Stripe.SecretKey != "" {
		if err := stripeCfg.Validate(); err != nil {
			log.Fatal("Invalid Stripe configuration", zap.Error(err))
		}
		stripeCfg.InitStripeClient()
	} else {
		log.Warn("Stripe secret key not configured, webhook processing will reject all events")
	}

	userRepo := persistence.NewUserRepository(db.DB)
	usageRepo := persistence.NewUsageRecordRepository(db.DB)
	invoiceRepo := persistence.NewInvoiceRepository(db.DB)

	tiers := billing.DefaultTierTable()
	rates := billing.DefaultRateTable()
	if err := tiers.Validate(); err != nil {
		log.Fatal("Invalid tier table", zap.Error(err))
	}
	if err := rates.Validate(); err != nil {
		log.Fatal("Invalid rate table", zap.Error(err))
	}

	usageSvc := appbilling.NewUsageService(
		userRepo,
		tiers,
		billing.NewCostAccountant(rates),
		log,
		appbilling.UsageServiceConfig{MaxRetries: cfg.Billing.MaxRetries},
	)
	usageSvc.SetObserver(billingMetrics)

	invoiceSvc := appbilling.NewInvoiceService(invoiceRepo, usageRepo, userRepo, log)
	invoiceSvc.SetObserver(billingMetrics)

	webhookSvc := appbilling.NewStripeWebhookService(appbilling.StripeWebhookServiceConfig{
		Config:     stripeCfg,
		UserRepo:   userRepo,
		UsageSvc:   usageSvc,
		InvoiceSvc: invoiceSvc,
		Logger:     log,
	})

	invoiceScheduler := scheduler.NewInvoiceScheduler(invoiceSvc, log, scheduler.InvoiceSchedulerConfig{
		Enabled:       cfg.Scheduler.Enabled,
		CheckInterval: cfg.Scheduler.CheckInterval,
		RunTimeout:    cfg.Scheduler.RunTimeout,
	})
	if err := invoiceScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start invoice scheduler", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/webhooks/stripe", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "failed to read payload", http.StatusBadRequest)
			return
		}

		result, err := webhookSvc.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			log.Warn("Webhook rejected", zap.Error(err))
			http.Error(w, "webhook rejected", http.StatusBadRequest)
			return
		}
		log.Debug("Webhook processed",
			zap.String("event_id", result.EventID),
			zap.String("event_type", result.EventType),
			zap.Bool("processed", result.Processed))
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP listener started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP listener failed", zap.Error(err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
	if err := invoiceScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server stopped")
}
