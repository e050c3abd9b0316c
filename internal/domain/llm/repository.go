package llm

import (
	"context"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
)

// ConversationRepository persists conversations and their messages.
//
// SaveWithMessage writes the aggregate's updated counters and the appended
// message in one transaction under optimistic locking; a stale aggregate
// version returns shared.ErrConcurrencyConflict. This is what keeps the
// message sequence gapless under concurrent appends.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*Conversation, error)
	SaveWithLock(ctx context.Context, conversation *Conversation) error
	SaveWithMessage(ctx context.Context, conversation *Conversation, message *Message) error

	FindMessages(ctx context.Context, conversationID uuid.UUID, filter shared.Filter) ([]*Message, error)
	CountMessages(ctx context.Context, conversationID uuid.UUID) (int64, error)
}
