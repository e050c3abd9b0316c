package document

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/document"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDocumentRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]document.Document
	byHash map[string]uuid.UUID

	// createErr forces the next Create to fail, simulating a lost race on
	// the unique hash index.
	createErr error

	// hideHashOnce makes the next FindByHash miss even when the hash exists,
	// so a concurrent insert can land between the miss and the Create.
	hideHashOnce bool
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		byID:   make(map[uuid.UUID]document.Document),
		byHash: make(map[string]uuid.UUID),
	}
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	if _, exists := r.byHash[doc.FileHash]; exists {
		return assert.AnError
	}
	r.byID[doc.ID] = *doc
	r.byHash[doc.FileHash] = doc.ID
	return nil
}

func (r *fakeDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *fakeDocumentRepo) FindByHash(_ context.Context, fileHash string) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideHashOnce {
		r.hideHashOnce = false
		return nil, shared.ErrNotFound
	}
	id, ok := r.byHash[fileHash]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := r.byID[id]
	return &copied, nil
}

func (r *fakeDocumentRepo) FindByOwner(_ context.Context, ownerID uuid.UUID, _ shared.Filter) ([]*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*document.Document
	for _, doc := range r.byID {
		if doc.OwnerID != nil && *doc.OwnerID == ownerID {
			copied := doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Save(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[doc.ID] = *doc
	return nil
}

var _ document.Repository = (*fakeDocumentRepo)(nil)

func newTestService() (*Service, *fakeDocumentRepo) {
	repo := newFakeDocumentRepo()
	return NewService(repo, zap.NewNop()), repo
}

func testInput(ownerID *uuid.UUID, content string) RegisterDocumentInput {
	return RegisterDocumentInput{
		OwnerID:       ownerID,
		Content:       []byte(content),
		FileName:      "resume.pdf",
		ExtractedText: "extracted",
		PageCount:     2,
		Method:        document.ExtractionBasic,
		Cost:          valueobject.ZeroUSD(),
	}
}

func TestService_RegisterDocument(t *testing.T) {
	t.Run("stores new content", func(t *testing.T) {
		svc, _ := newTestService()
		ownerID := uuid.New()

		result, err := svc.RegisterDocument(context.Background(), testInput(&ownerID, "resume bytes"))

		require.NoError(t, err)
		assert.False(t, result.Reused)
		assert.Equal(t, document.HashContent([]byte("resume bytes")), result.Document.FileHash)
		assert.Equal(t, int64(len("resume bytes")), result.Document.FileSize)
	})

	t.Run("same content is stored once", func(t *testing.T) {
		svc, _ := newTestService()
		ownerID := uuid.New()

		first, err := svc.RegisterDocument(context.Background(), testInput(&ownerID, "identical"))
		require.NoError(t, err)

		otherOwner := uuid.New()
		second, err := svc.RegisterDocument(context.Background(), testInput(&otherOwner, "identical"))
		require.NoError(t, err)

		assert.False(t, first.Reused)
		assert.True(t, second.Reused)
		assert.Equal(t, first.Document.ID, second.Document.ID)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.RegisterDocument(context.Background(), testInput(nil, ""))

		assert.True(t, shared.ErrInvalidInput.Is(err))
	})

	t.Run("losing the insert race resolves to reuse", func(t *testing.T) {
		svc, repo := newTestService()

		// Winner's row lands between our FindByHash miss and our Create.
		winner, err := document.NewDocument(nil,
			document.HashContent([]byte("raced")), "resume.pdf",
			int64(len("raced")), "extracted", 1,
			document.ExtractionBasic, valueobject.ZeroUSD())
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), winner))

		repo.hideHashOnce = true
		repo.createErr = assert.AnError

		result, err := svc.RegisterDocument(context.Background(), testInput(nil, "raced"))

		require.NoError(t, err)
		assert.True(t, result.Reused)
		assert.Equal(t, winner.ID, result.Document.ID)
	})
}

func TestService_ClaimDocument(t *testing.T) {
	t.Run("assigns an anonymous document", func(t *testing.T) {
		svc, _ := newTestService()

		registered, err := svc.RegisterDocument(context.Background(), testInput(nil, "anon upload"))
		require.NoError(t, err)
		require.Nil(t, registered.Document.OwnerID)

		ownerID := uuid.New()
		err = svc.ClaimDocument(context.Background(), registered.Document.ID, ownerID)
		require.NoError(t, err)

		doc, err := svc.GetDocument(context.Background(), registered.Document.ID)
		require.NoError(t, err)
		require.NotNil(t, doc.OwnerID)
		assert.Equal(t, ownerID, *doc.OwnerID)
	})

	t.Run("claiming someone else's document fails", func(t *testing.T) {
		svc, _ := newTestService()

		ownerID := uuid.New()
		registered, err := svc.RegisterDocument(context.Background(), testInput(&ownerID, "owned upload"))
		require.NoError(t, err)

		err = svc.ClaimDocument(context.Background(), registered.Document.ID, uuid.New())
		assert.True(t, shared.ErrInvalidState.Is(err))
	})

	t.Run("reclaim by the same owner is a no-op", func(t *testing.T) {
		svc, _ := newTestService()

		ownerID := uuid.New()
		registered, err := svc.RegisterDocument(context.Background(), testInput(&ownerID, "owned upload"))
		require.NoError(t, err)

		assert.NoError(t, svc.ClaimDocument(context.Background(), registered.Document.ID, ownerID))
	})
}

func TestService_ListDocuments(t *testing.T) {
	svc, _ := newTestService()
	ownerID := uuid.New()

	_, err := svc.RegisterDocument(context.Background(), testInput(&ownerID, "doc one"))
	require.NoError(t, err)
	_, err = svc.RegisterDocument(context.Background(), testInput(&ownerID, "doc two"))
	require.NoError(t, err)
	_, err = svc.RegisterDocument(context.Background(), testInput(nil, "anonymous doc"))
	require.NoError(t, err)

	docs, err := svc.ListDocuments(context.Background(), ownerID, shared.DefaultFilter())

	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
