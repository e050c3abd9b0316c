package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code, so errors.Is works against the
// sentinels below regardless of which instance carried the code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrQuotaExceeded       = NewDomainError("QUOTA_EXCEEDED", "Monthly quota exhausted")
	ErrCreditExceeded      = NewDomainError("CREDIT_EXCEEDED", "Insufficient credit balance")
	ErrActionNotAllowed    = NewDomainError("ACTION_NOT_ALLOWED", "Action is not available on the current plan")
	ErrUnknownAction       = NewDomainError("UNKNOWN_ACTION", "No rate entry for this action")
	ErrConfig              = NewDomainError("CONFIG_ERROR", "Invalid billing configuration")
	ErrExpired             = NewDomainError("EXPIRED", "Resource has expired")
	ErrInvoiceExists       = NewDomainError("INVOICE_EXISTS", "A non-cancelled invoice already covers this period")
	ErrNoUsage             = NewDomainError("NO_USAGE", "No usage records in the requested period")
)
