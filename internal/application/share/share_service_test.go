package share

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/share"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeShareRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]share.SharedAnalysis
	tokens map[string]uuid.UUID
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{
		byID:   make(map[uuid.UUID]share.SharedAnalysis),
		tokens: make(map[string]uuid.UUID),
	}
}

func (r *fakeShareRepo) Create(_ context.Context, sa *share.SharedAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[sa.Token]; exists {
		return shared.ErrAlreadyExists
	}
	r.byID[sa.ID] = *sa
	r.tokens[sa.Token] = sa.ID
	return nil
}

func (r *fakeShareRepo) FindByToken(_ context.Context, token string) (*share.SharedAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.tokens[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := r.byID[id]
	return &copied, nil
}

func (r *fakeShareRepo) FindActiveByUser(_ context.Context, userID uuid.UUID, now time.Time, _ shared.Filter) ([]*share.SharedAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*share.SharedAnalysis
	for _, sa := range r.byID {
		if sa.UserID == userID && now.Before(sa.ExpiresAt) {
			copied := sa
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sa, ok := r.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	sa.ViewCount++
	r.byID[id] = sa
	return nil
}

func (r *fakeShareRepo) DeleteByIDAndUser(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sa, ok := r.byID[id]
	if !ok || sa.UserID != userID {
		return shared.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.tokens, sa.Token)
	return nil
}

var _ share.Repository = (*fakeShareRepo)(nil)

func newTestService() (*Service, *fakeShareRepo) {
	repo := newFakeShareRepo()
	return NewService(repo, zap.NewNop()), repo
}

func publish(t *testing.T, svc *Service, userID uuid.UUID) *share.SharedAnalysis {
	t.Helper()
	sa, err := svc.CreateShare(context.Background(), CreateShareInput{
		UserID:       userID,
		AnalysisData: `{"score":42}`,
		Settings:     `{"expirationDays":30}`,
	})
	require.NoError(t, err)
	return sa
}

func TestService_CreateShare(t *testing.T) {
	svc, _ := newTestService()

	sa := publish(t, svc, uuid.New())

	assert.True(t, share.IsValidToken(sa.Token))
	assert.Equal(t, int64(0), sa.ViewCount)
}

func TestService_ViewShare(t *testing.T) {
	t.Run("each view bumps the count", func(t *testing.T) {
		svc, repo := newTestService()
		sa := publish(t, svc, uuid.New())

		first, err := svc.ViewShare(context.Background(), sa.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ViewCount)
		assert.Equal(t, sa.AnalysisData, first.Share.AnalysisData)

		second, err := svc.ViewShare(context.Background(), sa.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.ViewCount)

		stored, err := repo.FindByToken(context.Background(), sa.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.ViewCount)
	})

	t.Run("unknown token reads as not found", func(t *testing.T) {
		svc, _ := newTestService()
		token, err := share.NewToken()
		require.NoError(t, err)

		_, err = svc.ViewShare(context.Background(), token)
		assert.True(t, shared.ErrNotFound.Is(err))
	})

	t.Run("malformed token is rejected before the lookup", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.ViewShare(context.Background(), "../../etc/passwd")
		assert.True(t, shared.ErrInvalidInput.Is(err))
	})

	t.Run("expired share is refused without counting the view", func(t *testing.T) {
		svc, repo := newTestService()
		sa := publish(t, svc, uuid.New())

		expired := *sa
		expired.ExpiresAt = time.Now().Add(-time.Hour)
		repo.byID[sa.ID] = expired

		_, err := svc.ViewShare(context.Background(), sa.Token)
		assert.True(t, shared.ErrExpired.Is(err))

		stored, err := repo.FindByToken(context.Background(), sa.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.ViewCount)
	})

	t.Run("concurrent views all land", func(t *testing.T) {
		const viewers = 20

		svc, repo := newTestService()
		sa := publish(t, svc, uuid.New())

		var wg sync.WaitGroup
		for i := 0; i < viewers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.ViewShare(context.Background(), sa.Token)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := repo.FindByToken(context.Background(), sa.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(viewers), stored.ViewCount)
	})
}

func TestService_ListShares(t *testing.T) {
	svc, repo := newTestService()
	userID := uuid.New()

	active := publish(t, svc, userID)
	stale := publish(t, svc, userID)
	publish(t, svc, uuid.New())

	expired := repo.byID[stale.ID]
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	repo.byID[stale.ID] = expired

	shares, err := svc.ListShares(context.Background(), userID, shared.DefaultFilter())

	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, active.ID, shares[0].ID)
}

func TestService_RevokeShare(t *testing.T) {
	t.Run("owner revokes, link goes dark", func(t *testing.T) {
		svc, _ := newTestService()
		userID := uuid.New()
		sa := publish(t, svc, userID)

		require.NoError(t, svc.RevokeShare(context.Background(), sa.ID, userID))

		_, err := svc.ViewShare(context.Background(), sa.Token)
		assert.True(t, shared.ErrNotFound.Is(err))
	})

	t.Run("someone else's share reads as not found", func(t *testing.T) {
		svc, repo := newTestService()
		sa := publish(t, svc, uuid.New())

		err := svc.RevokeShare(context.Background(), sa.ID, uuid.New())
		assert.True(t, shared.ErrNotFound.Is(err))

		_, err = repo.FindByToken(context.Background(), sa.Token)
		assert.NoError(t, err, "the share survives a stranger's revoke")
	})
}
