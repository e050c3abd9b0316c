package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// UserRepository implements billing.UserRepository using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user. A duplicate email or Stripe customer ID
// surfaces as ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *billing.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.User, error) {
	var user billing.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves a user by email (normalized to lowercase)
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*billing.User, error) {
	var user billing.User
	email = strings.TrimSpace(strings.ToLower(email))
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByStripeCustomerID retrieves a user by their Stripe customer ID
func (r *UserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*billing.User, error) {
	var user billing.User
	if err := r.db.WithContext(ctx).First(&user, "stripe_customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SaveWithLock persists counter mutations with optimistic locking. The row is
// only updated when the stored version still matches the aggregate's; a miss
// means another writer got there first.
func (r *UserRepository) SaveWithLock(ctx context.Context, user *billing.User) error {
	return r.saveLocked(r.db.WithContext(ctx), user)
}

// SaveWithUsageRecord persists the user's updated counters and appends the
// usage record atomically. Either both rows commit or neither does, so the
// ledger can never run ahead of the counters.
func (r *UserRepository) SaveWithUsageRecord(ctx context.Context, user *billing.User, record *billing.UsageRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveLocked(tx, user); err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

func (r *UserRepository) saveLocked(db *gorm.DB, user *billing.User) error {
	result := db.Model(&billing.User{}).
		Where("id = ? AND version = ?", user.ID, user.GetVersion()).
		Updates(map[string]interface{}{
			"tier":                   user.Tier,
			"monthly_roasts":         user.MonthlyRoasts,
			"total_roasts":           user.TotalRoasts,
			"bonus_credits":          user.BonusCredits,
			"last_roast_reset":       user.LastRoastReset,
			"stripe_customer_id":     user.StripeCustomerID,
			"stripe_subscription_id": user.StripeSubscriptionID,
			"version":                user.GetVersion() + 1,
			"updated_at":             user.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	user.IncrementVersion()
	return nil
}

// Ensure UserRepository implements the interface
var _ billing.UserRepository = (*UserRepository)(nil)
