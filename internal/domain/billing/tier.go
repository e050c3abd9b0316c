package billing

import (
	"fmt"

	"github.com/resumeroast/backend/internal/domain/shared"
)

// SubscriptionTier represents a user's subscription plan
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "FREE"
	TierPro        SubscriptionTier = "PRO"
	TierEnterprise SubscriptionTier = "ENTERPRISE"
)

// String returns the string representation of SubscriptionTier
func (t SubscriptionTier) String() string {
	return string(t)
}

// IsValid returns true if the tier is a known tier
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// UnlimitedQuota marks a tier with no monthly cap
const UnlimitedQuota int64 = -1

// TierLimits describes what a subscription tier entitles a user to
type TierLimits struct {
	// MonthlyQuota is the number of billable actions allowed per quota
	// window. UnlimitedQuota (-1) means no cap.
	MonthlyQuota int64

	// AllowedActions lists the actions available on this tier
	AllowedActions []UsageAction

	// CreditMultiplier scales the credit cost of overage actions paid
	// from the prepaid bonus-credit balance
	CreditMultiplier int64
}

// IsUnlimited returns true if the tier has no monthly cap
func (l TierLimits) IsUnlimited() bool {
	return l.MonthlyQuota == UnlimitedQuota
}

// Allows returns true if the action is available on this tier
func (l TierLimits) Allows(action UsageAction) bool {
	for _, a := range l.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// HasQuotaRoom returns true if one more action fits under the monthly cap
func (l TierLimits) HasQuotaRoom(monthlyUsed int64) bool {
	return l.IsUnlimited() || monthlyUsed+1 <= l.MonthlyQuota
}

// TierTable maps each subscription tier to its limits. Tiers are a closed
// enum; an unknown tier reaching LimitsFor is a configuration defect.
type TierTable map[SubscriptionTier]TierLimits

// DefaultTierTable returns the production tier table
func DefaultTierTable() TierTable {
	return TierTable{
		TierFree: {
			MonthlyQuota:     10,
			AllowedActions:   []UsageAction{ActionExtractPDF, ActionRoastAnalysis},
			CreditMultiplier: 2,
		},
		TierPro: {
			MonthlyQuota:     200,
			AllowedActions:   AllActions(),
			CreditMultiplier: 1,
		},
		TierEnterprise: {
			MonthlyQuota:     UnlimitedQuota,
			AllowedActions:   AllActions(),
			CreditMultiplier: 1,
		},
	}
}

// LimitsFor resolves a tier into its limits
func (t TierTable) LimitsFor(tier SubscriptionTier) (TierLimits, error) {
	limits, ok := t[tier]
	if !ok {
		return TierLimits{}, shared.NewDomainError(shared.ErrConfig.Code,
			fmt.Sprintf("no limits configured for tier %q", tier))
	}
	return limits, nil
}

// Validate checks the table at startup so tier misconfiguration is fatal at
// boot rather than a runtime surprise
func (t TierTable) Validate() error {
	for _, tier := range []SubscriptionTier{TierFree, TierPro, TierEnterprise} {
		limits, ok := t[tier]
		if !ok {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("tier table is missing tier %q", tier))
		}
		if limits.MonthlyQuota < UnlimitedQuota {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("tier %q has invalid monthly quota %d", tier, limits.MonthlyQuota))
		}
		if len(limits.AllowedActions) == 0 {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("tier %q allows no actions", tier))
		}
		if limits.CreditMultiplier < 1 {
			return shared.NewDomainError(shared.ErrConfig.Code,
				fmt.Sprintf("tier %q has invalid credit multiplier %d", tier, limits.CreditMultiplier))
		}
		for _, action := range limits.AllowedActions {
			if !action.IsValid() {
				return shared.NewDomainError(shared.ErrConfig.Code,
					fmt.Sprintf("tier %q allows unknown action %q", tier, action))
			}
		}
	}
	return nil
}
