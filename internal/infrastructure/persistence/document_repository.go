package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/document"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// DocumentRepository implements document.Repository using GORM
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create persists a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// FindByID retrieves a document by ID
func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByHash retrieves a document by its content hash, the dedup lookup
func (r *DocumentRepository) FindByHash(ctx context.Context, fileHash string) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).First(&doc, "file_hash = ?", fileHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByOwner retrieves a user's documents
func (r *DocumentRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]*document.Document, error) {
	var docs []*document.Document

	sortField := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Save updates an existing document
func (r *DocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Ensure DocumentRepository implements the interface
var _ document.Repository = (*DocumentRepository)(nil)
