// Package share models public snapshots of analysis results. A share is
// addressed by an unguessable token instead of its row ID, expires after a
// configurable number of days, and counts how often it was viewed.
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
)

// DefaultTTLDays is the expiry applied when the caller does not pick one.
const DefaultTTLDays = 30

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// SharedAnalysis is a frozen copy of an analysis result published under a
// share token. AnalysisData and Settings are stored as the JSON the caller
// handed in; the snapshot never changes after creation. ViewCount only ever
// grows, and grows in the store so concurrent viewers cannot lose counts.
type SharedAnalysis struct {
	shared.BaseEntity
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Token        string    `gorm:"size:32;uniqueIndex;not null"`
	AnalysisData string    `gorm:"type:text;not null"`
	Settings     string    `gorm:"type:text"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	ViewCount    int64     `gorm:"not null;default:0"`
}

// TableName sets the GORM table name
func (SharedAnalysis) TableName() string {
	return "shared_analyses"
}

// NewToken generates a 128-bit share token as lowercase hex
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewSharedAnalysis publishes an analysis snapshot. A non-positive ttlDays
// falls back to DefaultTTLDays.
func NewSharedAnalysis(userID uuid.UUID, analysisData, settings string, ttlDays int) (*SharedAnalysis, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if analysisData == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "analysis data cannot be empty")
	}
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	base := shared.NewBaseEntity()
	return &SharedAnalysis{
		BaseEntity:   base,
		UserID:       userID,
		Token:        token,
		AnalysisData: analysisData,
		Settings:     settings,
		ExpiresAt:    base.CreatedAt.Add(time.Duration(ttlDays) * 24 * time.Hour),
		ViewCount:    0,
	}, nil
}

// IsValidToken reports whether s has the shape of a share token
func IsValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// Expired reports whether the share is past its expiry at the given instant
func (s *SharedAnalysis) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Repository persists shared analyses. IncrementViews must add exactly one to
// the stored count no matter how many viewers race.
type Repository interface {
	Create(ctx context.Context, sa *SharedAnalysis) error
	FindByToken(ctx context.Context, token string) (*SharedAnalysis, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time, filter shared.Filter) ([]*SharedAnalysis, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	DeleteByIDAndUser(ctx context.Context, id, userID uuid.UUID) error
}
