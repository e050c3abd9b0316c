// Package document models uploaded PDFs and their extracted text. Documents
// are deduplicated by content hash so re-uploading the same file reuses the
// earlier extraction instead of paying for it again.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// ExtractionMethod records how the text was pulled out of the PDF
type ExtractionMethod string

const (
	ExtractionBasic ExtractionMethod = "BASIC"
	ExtractionAI    ExtractionMethod = "AI"
)

// IsValid returns true if the method is a known extraction method
func (m ExtractionMethod) IsValid() bool {
	return m == ExtractionBasic || m == ExtractionAI
}

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Document is an uploaded file plus its extraction result. FileHash is the
// lowercase hex SHA-256 of the raw bytes and carries a unique index, so the
// same content is stored once regardless of who uploads it. OwnerID is
// nullable: anonymous uploads are kept and claimed on signup.
type Document struct {
	shared.BaseEntity
	OwnerID          *uuid.UUID `gorm:"type:uuid;index"`
	FileHash         string     `gorm:"size:64;uniqueIndex;not null"`
	FileName         string     `gorm:"size:256;not null"`
	FileSize         int64      `gorm:"not null"`
	ExtractedText    string     `gorm:"type:text"`
	PageCount        int
	ExtractionMethod ExtractionMethod  `gorm:"not null"`
	ExtractionCost   valueobject.Money `gorm:"type:numeric(12,6)"`
	ExtractedAt      time.Time         `gorm:"not null"`
}

// TableName sets the GORM table name
func (Document) TableName() string {
	return "documents"
}

// HashContent computes the dedup key for raw file bytes
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewDocument creates a document from an extraction result
func NewDocument(
	ownerID *uuid.UUID,
	fileHash, fileName string,
	fileSize int64,
	extractedText string,
	pageCount int,
	method ExtractionMethod,
	cost valueobject.Money,
) (*Document, error) {
	if !hashPattern.MatchString(fileHash) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			"file hash must be lowercase hex sha-256")
	}
	if fileName == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "file name cannot be empty")
	}
	if fileSize <= 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "file size must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "unknown extraction method")
	}
	if cost.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "extraction cost cannot be negative")
	}

	return &Document{
		BaseEntity:       shared.NewBaseEntity(),
		OwnerID:          ownerID,
		FileHash:         fileHash,
		FileName:         fileName,
		FileSize:         fileSize,
		ExtractedText:    extractedText,
		PageCount:        pageCount,
		ExtractionMethod: method,
		ExtractionCost:   cost,
		ExtractedAt:      time.Now().UTC(),
	}, nil
}

// Claim assigns an anonymous document to a user. Reclaiming by the same
// owner is a no-op; a document already owned by someone else stays theirs.
func (d *Document) Claim(ownerID uuid.UUID) error {
	if d.OwnerID != nil {
		if *d.OwnerID == ownerID {
			return nil
		}
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"document already belongs to another user")
	}
	d.OwnerID = &ownerID
	d.UpdatedAt = time.Now()
	return nil
}

// Repository persists documents
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByHash(ctx context.Context, fileHash string) (*Document, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]*Document, error)
	Save(ctx context.Context, doc *Document) error
}
