// Package document contains the application service for registering and
// claiming uploaded documents.
package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/document"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// RegisterDocumentInput describes an upload plus its extraction result
type RegisterDocumentInput struct {
	OwnerID       *uuid.UUID
	Content       []byte
	FileName      string
	ExtractedText string
	PageCount     int
	Method        document.ExtractionMethod
	Cost          valueobject.Money
}

// RegisterDocumentResult reports whether the upload was new content or a
// duplicate of an earlier extraction
type RegisterDocumentResult struct {
	Document *document.Document
	Reused   bool
}

// Service registers documents with content-hash dedup and handles ownership
// claims for anonymous uploads.
type Service struct {
	repo   document.Repository
	logger *zap.Logger
}

// NewService creates a new document Service
func NewService(repo document.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// RegisterDocument stores an upload, reusing the existing document when the
// same content was extracted before. A concurrent duplicate insert loses to
// the unique hash index and resolves to a reuse of the winner's row.
func (s *Service) RegisterDocument(ctx context.Context, input RegisterDocumentInput) (*RegisterDocumentResult, error) {
	if len(input.Content) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "document content cannot be empty")
	}
	fileHash := document.HashContent(input.Content)

	existing, err := s.repo.FindByHash(ctx, fileHash)
	if err == nil {
		s.logger.Info("Document reused",
			zap.String("document_id", existing.ID.String()),
			zap.String("file_hash", fileHash))
		return &RegisterDocumentResult{Document: existing, Reused: true}, nil
	}
	if !shared.ErrNotFound.Is(err) {
		return nil, err
	}

	doc, err := document.NewDocument(input.OwnerID, fileHash, input.FileName,
		int64(len(input.Content)), input.ExtractedText, input.PageCount,
		input.Method, input.Cost)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		// Lost a race on the unique hash index
		if winner, findErr := s.repo.FindByHash(ctx, fileHash); findErr == nil {
			return &RegisterDocumentResult{Document: winner, Reused: true}, nil
		}
		return nil, err
	}

	s.logger.Info("Document registered",
		zap.String("document_id", doc.ID.String()),
		zap.String("file_hash", fileHash),
		zap.String("method", string(doc.ExtractionMethod)),
		zap.Int64("file_size", doc.FileSize))
	return &RegisterDocumentResult{Document: doc, Reused: false}, nil
}

// ClaimDocument assigns an anonymous document to a user
func (s *Service) ClaimDocument(ctx context.Context, documentID, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "owner ID cannot be empty")
	}

	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := doc.Claim(ownerID); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("Document claimed",
		zap.String("document_id", documentID.String()),
		zap.String("owner_id", ownerID.String()))
	return nil
}

// GetDocument loads a document by ID
func (s *Service) GetDocument(ctx context.Context, documentID uuid.UUID) (*document.Document, error) {
	return s.repo.FindByID(ctx, documentID)
}

// ListDocuments lists a user's documents
func (s *Service) ListDocuments(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]*document.Document, error) {
	return s.repo.FindByOwner(ctx, ownerID, filter)
}
