package document

import (
	"testing"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashContent(t *testing.T) {
	hash := HashContent([]byte("hello"))

	assert.Len(t, hash, 64)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
	assert.Equal(t, hash, HashContent([]byte("hello")), "same bytes, same hash")
	assert.NotEqual(t, hash, HashContent([]byte("Hello")))
}

func TestNewDocument(t *testing.T) {
	hash := HashContent([]byte("pdf bytes"))
	doc, err := NewDocument(nil, hash, "resume.pdf", 1024, "extracted text", 2,
		ExtractionBasic, valueobject.ZeroUSD())
	require.NoError(t, err)

	assert.Nil(t, doc.OwnerID)
	assert.Equal(t, hash, doc.FileHash)
	assert.Equal(t, ExtractionBasic, doc.ExtractionMethod)
	assert.NotZero(t, doc.ExtractedAt)
}

func TestNewDocument_Validation(t *testing.T) {
	hash := HashContent([]byte("x"))

	t.Run("malformed hash", func(t *testing.T) {
		_, err := NewDocument(nil, "not-a-hash", "a.pdf", 1, "", 0, ExtractionBasic, valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("uppercase hash rejected", func(t *testing.T) {
		upper := "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824"
		_, err := NewDocument(nil, upper, "a.pdf", 1, "", 0, ExtractionBasic, valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("empty file name", func(t *testing.T) {
		_, err := NewDocument(nil, hash, "", 1, "", 0, ExtractionBasic, valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := NewDocument(nil, hash, "a.pdf", 0, "", 0, ExtractionBasic, valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := NewDocument(nil, hash, "a.pdf", 1, "", 0, ExtractionMethod("OCR"), valueobject.ZeroUSD())
		assert.Error(t, err)
	})
}

func TestDocument_Claim(t *testing.T) {
	hash := HashContent([]byte("y"))
	owner := uuid.New()

	t.Run("claim anonymous document", func(t *testing.T) {
		doc, _ := NewDocument(nil, hash, "a.pdf", 1, "", 0, ExtractionAI, valueobject.ZeroUSD())
		require.NoError(t, doc.Claim(owner))
		assert.Equal(t, owner, *doc.OwnerID)
	})

	t.Run("reclaim by same owner is a no-op", func(t *testing.T) {
		doc, _ := NewDocument(&owner, hash, "a.pdf", 1, "", 0, ExtractionAI, valueobject.ZeroUSD())
		assert.NoError(t, doc.Claim(owner))
	})

	t.Run("claim of owned document rejected", func(t *testing.T) {
		doc, _ := NewDocument(&owner, hash, "a.pdf", 1, "", 0, ExtractionAI, valueobject.ZeroUSD())
		assert.Error(t, doc.Claim(uuid.New()))
	})
}
