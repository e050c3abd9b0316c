// Package share contains the application service for publishing and viewing
// shared analysis snapshots.
package share

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/share"
	"github.com/resumeroast/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateShareInput describes an analysis snapshot to publish
type CreateShareInput struct {
	UserID       uuid.UUID
	AnalysisData string
	Settings     string

	// TTLDays bounds how long the share stays viewable. Zero means the
	// default expiry.
	TTLDays int
}

// ViewResult is what an anonymous viewer gets back
type ViewResult struct {
	Share     *share.SharedAnalysis
	ViewCount int64
}

// Service publishes analysis snapshots under unguessable tokens and serves
// anonymous views against them. Views on an expired share are refused; the
// view counter only moves on a successful view.
type Service struct {
	repo   share.Repository
	logger *zap.Logger
}

// NewService creates a new share Service
func NewService(repo share.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateShare publishes a snapshot and returns it with its token
func (s *Service) CreateShare(ctx context.Context, input CreateShareInput) (*share.SharedAnalysis, error) {
	sa, err := share.NewSharedAnalysis(input.UserID, input.AnalysisData, input.Settings, input.TTLDays)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sa); err != nil {
		return nil, err
	}

	s.logger.Info("Analysis shared",
		zap.String("share_id", sa.ID.String()),
		zap.String("user_id", sa.UserID.String()),
		zap.Time("expires_at", sa.ExpiresAt))
	return sa, nil
}

// ViewShare serves one anonymous view of a share. An unknown token reports
// ErrNotFound, an expired share ErrExpired. The returned count includes this
// view.
func (s *Service) ViewShare(ctx context.Context, token string) (*ViewResult, error) {
	if !share.IsValidToken(token) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "malformed share token")
	}

	sa, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sa.Expired(time.Now()) {
		return nil, shared.NewDomainError(shared.ErrExpired.Code, "share link has expired")
	}

	if err := s.repo.IncrementViews(ctx, sa.ID); err != nil {
		return nil, err
	}
	// The store added one to whatever count we read; reflect this view
	// without rereading the row.
	return &ViewResult{Share: sa, ViewCount: sa.ViewCount + 1}, nil
}

// ListShares lists a user's shares that have not expired yet
func (s *Service) ListShares(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*share.SharedAnalysis, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	return s.repo.FindActiveByUser(ctx, userID, time.Now(), filter)
}

// RevokeShare deletes a share. Only the owner can revoke; a share owned by
// someone else reads as not found.
func (s *Service) RevokeShare(ctx context.Context, shareID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if err := s.repo.DeleteByIDAndUser(ctx, shareID, userID); err != nil {
		return err
	}

	s.logger.Info("Share revoked",
		zap.String("share_id", shareID.String()),
		zap.String("user_id", userID.String()))
	return nil
}
