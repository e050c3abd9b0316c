package billing

import (
	"fmt"
	"net/http"

	"github.com/resumeroast/backend/internal/domain/billing"
)

// QuotaExceededError is returned when the monthly allowance is used up and
// the user has no bonus credits to fall back on
type QuotaExceededError struct {
	Action       billing.UsageAction
	CurrentUsage int64
	Limit        int64
	Message      string
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(action billing.UsageAction, currentUsage, limit int64) *QuotaExceededError {
	return &QuotaExceededError{
		Action:       action,
		CurrentUsage: currentUsage,
		Limit:        limit,
		Message: fmt.Sprintf(
			"Monthly quota exceeded for %s: %d of %d used",
			action.DisplayName(), currentUsage, limit,
		),
	}
}

// CreditExceededError is returned when the monthly allowance is used up and
// the bonus-credit balance is positive but too small to cover the action
type CreditExceededError struct {
	Action   billing.UsageAction
	Balance  int64
	Required int64
	Message  string
}

// Error implements the error interface
func (e *CreditExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (402 Payment Required)
func (e *CreditExceededError) HTTPStatusCode() int {
	return http.StatusPaymentRequired
}

// NewCreditExceededError creates a new CreditExceededError
func NewCreditExceededError(action billing.UsageAction, balance, required int64) *CreditExceededError {
	return &CreditExceededError{
		Action:   action,
		Balance:  balance,
		Required: required,
		Message: fmt.Sprintf(
			"Insufficient bonus credits for %s: have %d, need %d",
			action.DisplayName(), balance, required,
		),
	}
}

// ActionNotAllowedError is returned when the user's tier does not include
// the requested action at all
type ActionNotAllowedError struct {
	Action  billing.UsageAction
	Tier    billing.SubscriptionTier
	Message string
}

// Error implements the error interface
func (e *ActionNotAllowedError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (403 Forbidden)
func (e *ActionNotAllowedError) HTTPStatusCode() int {
	return http.StatusForbidden
}

// NewActionNotAllowedError creates a new ActionNotAllowedError
func NewActionNotAllowedError(action billing.UsageAction, tier billing.SubscriptionTier) *ActionNotAllowedError {
	return &ActionNotAllowedError{
		Action: action,
		Tier:   tier,
		Message: fmt.Sprintf(
			"%s is not available on the %s tier",
			action.DisplayName(), tier,
		),
	}
}
