package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// UsageRecordRepository implements billing.UsageRecordRepository using GORM.
// Records are written through UserRepository.SaveWithUsageRecord; this
// repository only reads the ledger.
type UsageRecordRepository struct {
	db *gorm.DB
}

// NewUsageRecordRepository creates a new usage record repository
func NewUsageRecordRepository(db *gorm.DB) *UsageRecordRepository {
	return &UsageRecordRepository{db: db}
}

// FindByID retrieves a usage record by ID
func (r *UsageRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UsageRecord, error) {
	var record billing.UsageRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByUserAndPeriod retrieves a user's records in the half-open window
// [start, end)
func (r *UsageRecordRepository) FindByUserAndPeriod(
	ctx context.Context,
	userID uuid.UUID,
	start, end time.Time,
	filter shared.Filter,
) ([]*billing.UsageRecord, error) {
	var records []*billing.UsageRecord

	sortField := ValidateSortField(filter.OrderBy, UsageRecordSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountByUserAndPeriod counts a user's records in [start, end)
func (r *UsageRecordRepository) CountByUserAndPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&billing.UsageRecord{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SumByUserAndPeriod totals cost and credits over [start, end). The sums run
// on the numeric column so they reconcile exactly with per-record costs.
func (r *UsageRecordRepository) SumByUserAndPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (billing.UsageTotals, error) {
	var totals billing.UsageTotals
	err := r.db.WithContext(ctx).
		Model(&billing.UsageRecord{}).
		Select("COALESCE(SUM(cost), 0) as total_cost, COALESCE(SUM(credits_used), 0) as total_credits, COUNT(*) as record_count").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Scan(&totals).Error
	if err != nil {
		return billing.UsageTotals{}, err
	}
	return totals, nil
}

// DistinctUserIDsInPeriod lists every user with at least one record in
// [start, end)
func (r *UsageRecordRepository) DistinctUserIDsInPeriod(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&billing.UsageRecord{}).
		Distinct("user_id").
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// Ensure UsageRecordRepository implements the interface
var _ billing.UsageRecordRepository = (*UsageRecordRepository)(nil)
