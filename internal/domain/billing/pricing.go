package billing

import (
	"fmt"

	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProviderMetrics carries the already-measured result of an LLM invocation.
// The engine never calls a provider itself; these numbers arrive from the
// invocation service.
type ProviderMetrics struct {
	Provider         string
	Model            string
	InputTokens      int64
	OutputTokens     int64
	FinishReason     string
	ProcessingTimeMs int64
}

// TotalTokens returns the combined token count
func (m ProviderMetrics) TotalTokens() int64 {
	return m.InputTokens + m.OutputTokens
}

// ActionPrice is the monetary and credit cost of a single action
type ActionPrice struct {
	Cost    valueobject.Money
	Credits int64
}

// Rate prices one (action, model) pair. LLM-backed actions are priced per
// token; extraction without a model gets the flat rate only.
type Rate struct {
	// InputPerMTok is the cost per million input tokens
	InputPerMTok decimal.Decimal

	// OutputPerMTok is the cost per million output tokens
	OutputPerMTok decimal.Decimal

	// Flat is a fixed cost applied per action regardless of tokens
	Flat decimal.Decimal

	// Credits is the credit cost of the action before tier multipliers
	Credits int64
}

// RateKey identifies a rate table entry. Model may be empty to provide the
// fallback rate for an action when no model-specific entry exists.
type RateKey struct {
	Action UsageAction
	Model  string
}

// RateTable maps (action, model) pairs to their rates
type RateTable map[RateKey]Rate

var million = decimal.NewFromInt(1_000_000)

// DefaultRateTable returns the production rate table. Per-token rates mirror
// the provider list prices in USD per million tokens.
func DefaultRateTable() RateTable {
	return RateTable{
		{ActionRoastAnalysis, "claude-sonnet-4-20250514"}: {
			InputPerMTok:  decimal.RequireFromString("3.00"),
			OutputPerMTok: decimal.RequireFromString("15.00"),
			Credits:       1,
		},
		{ActionRoastAnalysis, "claude-3-5-haiku-20241022"}: {
			InputPerMTok:  decimal.RequireFromString("0.80"),
			OutputPerMTok: decimal.RequireFromString("4.00"),
			Credits:       1,
		},
		{ActionCoverLetter, "claude-sonnet-4-20250514"}: {
			InputPerMTok:  decimal.RequireFromString("3.00"),
			OutputPerMTok: decimal.RequireFromString("15.00"),
			Credits:       2,
		},
		{ActionCoverLetter, "gpt-4.1-mini"}: {
			InputPerMTok:  decimal.RequireFromString("0.40"),
			OutputPerMTok: decimal.RequireFromString("1.60"),
			Credits:       1,
		},
		{ActionExtractPDF, "gpt-4.1-nano"}: {
			InputPerMTok:  decimal.RequireFromString("0.10"),
			OutputPerMTok: decimal.RequireFromString("0.40"),
			Credits:       1,
		},
		// Basic (non-AI) extraction: flat rate, no token component.
		{ActionExtractPDF, ""}: {
			Flat:    decimal.RequireFromString("0.001"),
			Credits: 1,
		},
	}
}

// Validate checks every entry so rate misconfiguration fails at startup
func (t RateTable) Validate() error {
	if len(t) == 0 {
		return shared.NewDomainError(shared.ErrConfig.Code, "rate table is empty")
	}
	for key, rate := range t {
		if !key.Action.IsValid() {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("rate entry for unknown action %q", key.Action))
		}
		if rate.InputPerMTok.IsNegative() || rate.OutputPerMTok.IsNegative() || rate.Flat.IsNegative() {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("negative rate for %s/%s", key.Action, key.Model))
		}
		if rate.Credits < 1 {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("rate for %s/%s must cost at least one credit", key.Action, key.Model))
		}
	}
	return nil
}

// CostAccountant prices billable actions from the rate table. It is a pure
// computation: same inputs, same price, always in decimal arithmetic.
type CostAccountant struct {
	rates RateTable
}

// NewCostAccountant creates a cost accountant over the given rate table
func NewCostAccountant(rates RateTable) *CostAccountant {
	return &CostAccountant{rates: rates}
}

// Price computes the monetary and credit cost of an action.
// Lookup prefers the model-specific entry, then the action's fallback entry;
// a miss on both is an unknown-action configuration defect.
func (c *CostAccountant) Price(action UsageAction, metrics ProviderMetrics) (ActionPrice, error) {
	if !action.IsValid() {
		return ActionPrice{}, shared.NewDomainError(shared.ErrUnknownAction.Code,
			fmt.Sprintf("unknown usage action %q", action))
	}
	if metrics.InputTokens < 0 || metrics.OutputTokens < 0 {
		return ActionPrice{}, shared.NewDomainError(shared.ErrInvalidInput.Code,
			"token counts cannot be negative")
	}

	rate, ok := c.rates[RateKey{Action: action, Model: metrics.Model}]
	if !ok {
		rate, ok = c.rates[RateKey{Action: action}]
	}
	if !ok {
		return ActionPrice{}, shared.NewDomainError(shared.ErrUnknownAction.Code,
			fmt.Sprintf("no rate entry for action %q model %q", action, metrics.Model))
	}

	amount := rate.Flat.
		Add(decimal.NewFromInt(metrics.InputTokens).Mul(rate.InputPerMTok).Div(million)).
		Add(decimal.NewFromInt(metrics.OutputTokens).Mul(rate.OutputPerMTok).Div(million))

	return ActionPrice{
		Cost:    valueobject.NewMoneyUSD(amount.Round(6)),
		Credits: rate.Credits,
	}, nil
}
