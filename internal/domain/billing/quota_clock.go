package billing

import "time"

// QuotaClock decides when a user's rolling quota window has elapsed.
//
// Policy: calendar month. A window is stale once "now" falls in a different
// calendar month than the window anchor. The alternative rolling-30-day
// policy would also fit the stored fields; calendar month is what the product
// bills by, so it is the one implemented here.
type QuotaClock struct{}

// NewQuotaClock creates a quota clock
func NewQuotaClock() QuotaClock {
	return QuotaClock{}
}

// ShouldReset returns true when the user's quota window has rolled over.
// Clock skew guard: a "now" at or before the anchor never triggers a reset,
// so the anchor can only move forward.
func (QuotaClock) ShouldReset(u *User, now time.Time) bool {
	if !now.After(u.LastRoastReset) {
		return false
	}
	anchor := u.LastRoastReset.UTC()
	current := now.UTC()
	return anchor.Year() != current.Year() || anchor.Month() != current.Month()
}

// Reset starts a fresh quota window if the current one is stale. Calling it
// again within the same window is a no-op, which makes window rollover
// idempotent under concurrent requests.
func (c QuotaClock) Reset(u *User, now time.Time) (bool, error) {
	if !c.ShouldReset(u, now) {
		return false, nil
	}
	if err := u.ResetWindow(now); err != nil {
		return false, err
	}
	return true, nil
}
