package billing

import (
	"strings"
	"time"

	"github.com/resumeroast/backend/internal/domain/shared"
)

// User is the billing-owned slice of a user account: subscription tier, the
// rolling quota counters, and the prepaid bonus-credit balance. Profile and
// authentication fields live with the identity collaborators and are not
// modelled here.
//
// Invariants:
//   - MonthlyRoasts never exceeds the tier's monthly quota
//   - LastRoastReset only moves forward
//   - TotalRoasts never decreases
type User struct {
	shared.BaseAggregateRoot
	Email                string `gorm:"uniqueIndex;not null"`
	Name                 string
	Tier                 SubscriptionTier `gorm:"not null;default:FREE"`
	MonthlyRoasts        int64            `gorm:"not null;default:0"`
	TotalRoasts          int64            `gorm:"not null;default:0"`
	BonusCredits         int64            `gorm:"not null;default:0"`
	LastRoastReset       time.Time        `gorm:"not null"`
	StripeCustomerID     *string          `gorm:"uniqueIndex"`
	StripeSubscriptionID *string
}

// TableName sets the GORM table name
func (User) TableName() string {
	return "users"
}

// NewUser creates a new billing user on the free tier with fresh counters
func NewUser(email, name string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "email cannot be empty")
	}
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		Name:              name,
		Tier:              TierFree,
		LastRoastReset:    time.Now(),
	}, nil
}

// ConsumeQuota records one billable action against the monthly allowance
func (u *User) ConsumeQuota() {
	u.MonthlyRoasts++
	u.TotalRoasts++
	u.UpdatedAt = time.Now()
}

// ConsumeBonusCredits pays for one overage action from the prepaid balance.
// The monthly counter is untouched so it keeps respecting the tier cap.
func (u *User) ConsumeBonusCredits(credits int64) error {
	if credits <= 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "credit cost must be positive")
	}
	if u.BonusCredits < credits {
		return shared.ErrCreditExceeded
	}
	u.BonusCredits -= credits
	u.TotalRoasts++
	u.UpdatedAt = time.Now()
	return nil
}

// AddBonusCredits tops up the prepaid balance (credit pack purchase)
func (u *User) AddBonusCredits(credits int64) error {
	if credits <= 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "credit top-up must be positive")
	}
	u.BonusCredits += credits
	u.UpdatedAt = time.Now()
	return nil
}

// ResetWindow zeroes the monthly counter and anchors a new quota window.
// LastRoastReset never moves backwards.
func (u *User) ResetWindow(now time.Time) error {
	if !now.After(u.LastRoastReset) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"quota window anchor cannot move backwards")
	}
	u.MonthlyRoasts = 0
	u.LastRoastReset = now
	u.UpdatedAt = now
	return nil
}

// ChangeTier moves the user to a different subscription tier. Counters are
// left alone: the new cap applies from the next recorded action.
func (u *User) ChangeTier(tier SubscriptionTier) error {
	if !tier.IsValid() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "unknown subscription tier")
	}
	u.Tier = tier
	u.UpdatedAt = time.Now()
	return nil
}

// AttachStripeCustomer links the Stripe customer created at first checkout
func (u *User) AttachStripeCustomer(customerID string) {
	u.StripeCustomerID = &customerID
	u.UpdatedAt = time.Now()
}

// AttachStripeSubscription links the active Stripe subscription
func (u *User) AttachStripeSubscription(subscriptionID string) {
	u.StripeSubscriptionID = &subscriptionID
	u.UpdatedAt = time.Now()
}

// DetachStripeSubscription clears the subscription link on cancellation
func (u *User) DetachStripeSubscription() {
	u.StripeSubscriptionID = nil
	u.UpdatedAt = time.Now()
}
