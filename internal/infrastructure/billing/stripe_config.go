// Package billing holds Stripe-facing infrastructure: configuration and the
// price-to-plan mapping used when interpreting webhook payloads.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// PublishableKey is the Stripe publishable key for frontend (pk_test_xxx or pk_live_xxx)
	PublishableKey string `json:"publishable_key" mapstructure:"publishable_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// DefaultCurrency is the default currency for subscriptions (e.g., "usd")
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency"`

	// PriceIDs maps subscription tier names to Stripe Price IDs
	PriceIDs map[string]string `json:"price_ids" mapstructure:"price_ids"`

	// CreditPackPriceID is the Stripe Price ID for the one-time bonus
	// credit pack product
	CreditPackPriceID string `json:"credit_pack_price_id" mapstructure:"credit_pack_price_id"`

	// CreditPackSize is how many bonus credits one pack purchase grants
	CreditPackSize int64 `json:"credit_pack_size" mapstructure:"credit_pack_size"`

	// SuccessURL is the URL to redirect after successful checkout
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL is the URL to redirect after cancelled checkout
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode:      true,
		DefaultCurrency: "usd",
		PriceIDs: map[string]string{
			"FREE":       "", // Free tier has no Stripe price
			"PRO":        "price_pro_monthly",
			"ENTERPRISE": "price_ent_monthly",
		},
		CreditPackPriceID: "price_credit_pack",
		CreditPackSize:    200,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	if c.DefaultCurrency == "" {
		return fmt.Errorf("stripe: default currency is required")
	}
	if c.CreditPackSize < 0 {
		return fmt.Errorf("stripe: credit pack size cannot be negative")
	}

	return nil
}

// GetPriceID returns the Stripe Price ID for a given tier
func (c *StripeConfig) GetPriceID(tier string) (string, error) {
	priceID, exists := c.PriceIDs[tier]
	if !exists {
		return "", fmt.Errorf("stripe: no price ID configured for tier: %s", tier)
	}
	if priceID == "" && tier != "FREE" {
		return "", fmt.Errorf("stripe: price ID not set for tier: %s", tier)
	}
	return priceID, nil
}

// TierForPriceID reverse-maps a Stripe Price ID to the tier it sells
func (c *StripeConfig) TierForPriceID(priceID string) (string, bool) {
	for tier, id := range c.PriceIDs {
		if id != "" && id == priceID {
			return tier, true
		}
	}
	return "", false
}

// IsCreditPackPrice reports whether a price ID is the credit pack product
func (c *StripeConfig) IsCreditPackPrice(priceID string) bool {
	return c.CreditPackPriceID != "" && priceID == c.CreditPackPriceID
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
