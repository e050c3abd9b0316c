package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/share"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ShareRepository implements share.Repository using GORM
type ShareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *gorm.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create persists a new shared analysis
func (r *ShareRepository) Create(ctx context.Context, sa *share.SharedAnalysis) error {
	if err := r.db.WithContext(ctx).Create(sa).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByToken retrieves a shared analysis by its share token
func (r *ShareRepository) FindByToken(ctx context.Context, token string) (*share.SharedAnalysis, error) {
	var sa share.SharedAnalysis
	if err := r.db.WithContext(ctx).First(&sa, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sa, nil
}

// FindActiveByUser retrieves a user's shares that expire after now
func (r *ShareRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time, filter shared.Filter) ([]*share.SharedAnalysis, error) {
	var shares []*share.SharedAnalysis

	sortField := ValidateSortField(filter.OrderBy, ShareSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// IncrementViews adds one view in the database, so concurrent viewers never
// overwrite each other's counts
func (r *ShareRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&share.SharedAnalysis{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByIDAndUser deletes a share only when the user owns it. A miss, on
// either the ID or the owner, reads as not found.
func (r *ShareRepository) DeleteByIDAndUser(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&share.SharedAnalysis{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure ShareRepository implements the interface
var _ share.Repository = (*ShareRepository)(nil)
