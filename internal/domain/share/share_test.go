package share

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSharedAnalysis(t *testing.T) {
	t.Run("defaults the expiry to thirty days", func(t *testing.T) {
		sa, err := NewSharedAnalysis(uuid.New(), `{"score":42}`, "", 0)
		require.NoError(t, err)

		assert.True(t, IsValidToken(sa.Token))
		assert.Equal(t, int64(0), sa.ViewCount)
		assert.WithinDuration(t,
			sa.CreatedAt.Add(DefaultTTLDays*24*time.Hour), sa.ExpiresAt, time.Second)
	})

	t.Run("honors a custom ttl", func(t *testing.T) {
		sa, err := NewSharedAnalysis(uuid.New(), `{"score":42}`, `{"expirationDays":7}`, 7)
		require.NoError(t, err)

		assert.WithinDuration(t, sa.CreatedAt.Add(7*24*time.Hour), sa.ExpiresAt, time.Second)
	})

	t.Run("rejects empty analysis data", func(t *testing.T) {
		_, err := NewSharedAnalysis(uuid.New(), "", "", 0)
		assert.True(t, shared.ErrInvalidInput.Is(err))
	})

	t.Run("rejects a nil user", func(t *testing.T) {
		_, err := NewSharedAnalysis(uuid.Nil, `{"score":42}`, "", 0)
		assert.True(t, shared.ErrInvalidInput.Is(err))
	})

	t.Run("tokens are unique", func(t *testing.T) {
		first, err := NewSharedAnalysis(uuid.New(), `{}`, "", 0)
		require.NoError(t, err)
		second, err := NewSharedAnalysis(uuid.New(), `{}`, "", 0)
		require.NoError(t, err)

		assert.NotEqual(t, first.Token, second.Token)
	})
}

func TestSharedAnalysis_Expired(t *testing.T) {
	sa, err := NewSharedAnalysis(uuid.New(), `{}`, "", 1)
	require.NoError(t, err)

	assert.False(t, sa.Expired(sa.CreatedAt))
	assert.False(t, sa.Expired(sa.ExpiresAt.Add(-time.Second)))
	assert.True(t, sa.Expired(sa.ExpiresAt), "expiry boundary is exclusive")
	assert.True(t, sa.Expired(sa.ExpiresAt.Add(time.Hour)))
}

func TestIsValidToken(t *testing.T) {
	token, err := NewToken()
	require.NoError(t, err)

	assert.True(t, IsValidToken(token))
	assert.False(t, IsValidToken(""))
	assert.False(t, IsValidToken("not-a-token"))
	assert.False(t, IsValidToken("ABCDEF00112233445566778899AABBCC"), "uppercase is rejected")
}
