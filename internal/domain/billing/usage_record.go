package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// UsageRecord is an append-only ledger entry for a single billable action.
// Records are immutable once created; corrections are made with new records.
// BillingMonth is derived from CreatedAt at creation time and never
// recomputed, so invoice aggregation stays stable even if the record is read
// long after the window closed.
type UsageRecord struct {
	shared.BaseEntity
	UserID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_usage_user_created"`
	Action       UsageAction       `gorm:"not null"`
	Provider     string            `gorm:"size:64"`
	Model        string            `gorm:"size:128"`
	Cost         valueobject.Money `gorm:"type:numeric(12,6);not null"`
	Currency     valueobject.Currency
	CreditsUsed  int64  `gorm:"not null"`
	Overage      bool   `gorm:"not null;default:false"`
	BillingMonth string `gorm:"size:7;not null;index"`
}

// TableName sets the GORM table name
func (UsageRecord) TableName() string {
	return "usage_records"
}

// NewUsageRecord creates a ledger entry for an action priced by the cost
// accountant. The createdAt argument is the commit time of the metered
// action; the billing month key is fixed from it here and nowhere else.
func NewUsageRecord(
	userID uuid.UUID,
	action UsageAction,
	provider, model string,
	price ActionPrice,
	overage bool,
	createdAt time.Time,
) (*UsageRecord, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("unknown usage action %q", action))
	}
	if price.Cost.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "cost cannot be negative")
	}
	if price.Credits < 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "credits cannot be negative")
	}

	base := shared.NewBaseEntity()
	base.CreatedAt = createdAt
	base.UpdatedAt = createdAt

	return &UsageRecord{
		BaseEntity:   base,
		UserID:       userID,
		Action:       action,
		Provider:     provider,
		Model:        model,
		Cost:         price.Cost,
		Currency:     price.Cost.Currency(),
		CreditsUsed:  price.Credits,
		Overage:      overage,
		BillingMonth: BillingMonthKey(createdAt),
	}, nil
}

// BillingMonthKey derives the invoicing period key for a point in time,
// e.g. "2025-01". Keys are computed in UTC so the same instant always maps to
// the same period regardless of server locale.
func BillingMonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthPeriod converts a billing month key into its half-open UTC time window
// [start, end).
func MonthPeriod(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("invalid billing month %q", month))
	}
	return start, start.AddDate(0, 1, 0), nil
}
