package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	stripebilling "github.com/resumeroast/backend/internal/infrastructure/billing"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeWebhookService handles Stripe webhook events: subscription lifecycle
// changes drive tier transitions, invoice events settle our invoices, and
// completed checkouts for the credit pack product top up bonus credits.
//
// Unknown customers and unmatched invoices are acknowledged rather than
// errored, so Stripe stops redelivering events we can never process.
type StripeWebhookService struct {
	config     *stripebilling.StripeConfig
	userRepo   billing.UserRepository
	usageSvc   *UsageService
	invoiceSvc *InvoiceService
	logger     *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Config     *stripebilling.StripeConfig
	UserRepo   billing.UserRepository
	UsageSvc   *UsageService
	InvoiceSvc *InvoiceService
	Logger     *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	return &StripeWebhookService{
		config:     cfg.Config,
		userRepo:   cfg.UserRepo,
		usageSvc:   cfg.UsageSvc,
		invoiceSvc: cfg.InvoiceSvc,
		logger:     cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and dispatches a Stripe webhook event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handleSubscriptionChanged handles subscription created and updated events
func (s *StripeWebhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Subscription has no customer ID, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if shared.ErrNotFound.Is(err) {
			// Webhooks can arrive before signup finishes linking the
			// customer; acknowledge so Stripe stops retrying.
			s.logger.Warn("No user for Stripe customer",
				zap.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.AttachStripeSubscription(subscription.ID)

	if tier, ok := s.tierFromSubscription(&subscription); ok {
		if subscription.Status == stripe.SubscriptionStatusActive ||
			subscription.Status == stripe.SubscriptionStatusTrialing {
			if err := user.ChangeTier(tier); err != nil {
				s.logger.Warn("Failed to change tier",
					zap.String("tier", tier.String()),
					zap.Error(err))
			}
		}
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("Subscription change processed",
		zap.String("user_id", user.ID.String()),
		zap.String("subscription_id", subscription.ID),
		zap.String("tier", user.Tier.String()))
	return nil
}

// handleSubscriptionDeleted downgrades the user to the free tier
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Subscription has no customer ID, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if shared.ErrNotFound.Is(err) {
			s.logger.Warn("No user for Stripe customer",
				zap.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.DetachStripeSubscription()
	if err := user.ChangeTier(billing.TierFree); err != nil {
		s.logger.Warn("Failed to downgrade tier", zap.Error(err))
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("Subscription deletion processed",
		zap.String("user_id", user.ID.String()),
		zap.String("subscription_id", subscription.ID))
	return nil
}

// handleInvoicePaid settles the matching local invoice
func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	paymentID := invoice.ID
	if invoice.PaymentIntent != nil {
		paymentID = invoice.PaymentIntent.ID
	}
	paidAt := time.Unix(event.Created, 0)

	err := s.invoiceSvc.MarkPaidByStripeInvoice(ctx, invoice.ID, paymentID, paidAt)
	if err != nil {
		if shared.ErrNotFound.Is(err) {
			// Subscription invoices created directly by Stripe have no
			// local counterpart; only metered invoices we pushed do.
			s.logger.Debug("No local invoice for Stripe invoice",
				zap.String("stripe_invoice_id", invoice.ID))
			return nil
		}
		return err
	}

	s.logger.Info("Invoice paid via webhook",
		zap.String("stripe_invoice_id", invoice.ID))
	return nil
}

// handleInvoicePaymentFailed marks the matching local invoice failed
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	local, err := s.invoiceSvc.invoiceRepo.FindByStripeInvoiceID(ctx, invoice.ID)
	if err != nil {
		if shared.ErrNotFound.Is(err) {
			s.logger.Debug("No local invoice for Stripe invoice",
				zap.String("stripe_invoice_id", invoice.ID))
			return nil
		}
		return err
	}

	reason := "payment_failed"
	if invoice.LastFinalizationError != nil {
		reason = invoice.LastFinalizationError.Msg
	}
	return s.invoiceSvc.MarkFailed(ctx, local.ID, reason)
}

// handleCheckoutCompleted grants bonus credits for credit pack purchases
func (s *StripeWebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Checkout session has no customer ID, skipping",
			zap.String("session_id", session.ID))
		return nil
	}

	// Subscription checkouts are handled by the subscription events; only
	// one-time credit pack payments are interesting here.
	if session.Mode != stripe.CheckoutSessionModePayment {
		return nil
	}

	packs := s.creditPacksInSession(&session)
	if packs == 0 {
		s.logger.Debug("Checkout session contains no credit packs",
			zap.String("session_id", session.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if shared.ErrNotFound.Is(err) {
			s.logger.Warn("No user for Stripe customer",
				zap.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	credits := packs * s.config.CreditPackSize
	if err := s.usageSvc.GrantCredits(ctx, user.ID, credits); err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}

	s.logger.Info("Credit pack purchase processed",
		zap.String("user_id", user.ID.String()),
		zap.Int64("packs", packs),
		zap.Int64("credits", credits))
	return nil
}

// creditPacksInSession counts credit pack line items in a checkout session
func (s *StripeWebhookService) creditPacksInSession(session *stripe.CheckoutSession) int64 {
	if session.LineItems == nil {
		return 0
	}
	var packs int64
	for _, item := range session.LineItems.Data {
		if item.Price != nil && s.config.IsCreditPackPrice(item.Price.ID) {
			packs += item.Quantity
		}
	}
	return packs
}

// tierFromSubscription maps the subscription's price to a local tier
func (s *StripeWebhookService) tierFromSubscription(subscription *stripe.Subscription) (billing.SubscriptionTier, bool) {
	if subscription.Items == nil {
		return "", false
	}
	for _, item := range subscription.Items.Data {
		if item.Price == nil {
			continue
		}
		if tierName, ok := s.config.TierForPriceID(item.Price.ID); ok {
			tier := billing.SubscriptionTier(tierName)
			if tier.IsValid() {
				return tier, true
			}
		}
	}
	return "", false
}
