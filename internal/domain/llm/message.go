package llm

import (
	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// Message is a single turn within a conversation. MessageIndex is assigned by
// the owning Conversation aggregate so the per-conversation sequence is
// gapless and zero-based; messages are never created outside AppendMessage.
type Message struct {
	shared.BaseEntity
	ConversationID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_messages_conv_seq"`
	MessageIndex   int64             `gorm:"not null;uniqueIndex:idx_messages_conv_seq"`
	Role           MessageRole       `gorm:"not null"`
	Content        string            `gorm:"type:text;not null"`
	Model          string            `gorm:"size:128"`
	InputTokens    int64             `gorm:"not null;default:0"`
	OutputTokens   int64             `gorm:"not null;default:0"`
	Cost           valueobject.Money `gorm:"type:numeric(12,6)"`
	FinishReason   string            `gorm:"size:64"`
}

// TableName sets the GORM table name
func (Message) TableName() string {
	return "llm_messages"
}

// TotalTokens returns the combined token count of this turn
func (m *Message) TotalTokens() int64 {
	return m.InputTokens + m.OutputTokens
}

// MessageDraft is the caller-supplied part of a message before the aggregate
// assigns identity and sequence
type MessageDraft struct {
	Role         MessageRole
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
	Cost         valueobject.Money
	FinishReason string
}

func (d MessageDraft) validate() error {
	if !d.Role.IsValid() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "unknown message role")
	}
	if d.Content == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "message content cannot be empty")
	}
	if d.InputTokens < 0 || d.OutputTokens < 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "token counts cannot be negative")
	}
	if d.Cost.IsNegative() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "message cost cannot be negative")
	}
	return nil
}
