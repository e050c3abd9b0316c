// Package llm contains application services for conversation tracking.
package llm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/llm"
	"github.com/resumeroast/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StartConversationInput describes a conversation to open
type StartConversationInput struct {
	UserID uuid.UUID
	Type   llm.ConversationType
	Title  string
	Model  string
}

// ConversationService tracks LLM conversations and their messages. Appends
// go through the aggregate so the sequence stays gapless; on a version
// conflict the append is recomputed against fresh state and retried.
type ConversationService struct {
	repo       llm.ConversationRepository
	logger     *zap.Logger
	maxRetries int
}

// ConversationServiceConfig contains configuration for ConversationService
type ConversationServiceConfig struct {
	MaxRetries int
}

// NewConversationService creates a new ConversationService
func NewConversationService(repo llm.ConversationRepository, logger *zap.Logger, config ConversationServiceConfig) *ConversationService {
	retries := config.MaxRetries
	if retries < 1 {
		retries = 3
	}
	return &ConversationService{
		repo:       repo,
		logger:     logger,
		maxRetries: retries,
	}
}

// StartConversation opens a new active conversation
func (s *ConversationService) StartConversation(ctx context.Context, input StartConversationInput) (*llm.Conversation, error) {
	conversation, err := llm.NewConversation(input.UserID, input.Type, input.Title, input.Model)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	s.logger.Info("Conversation started",
		zap.String("conversation_id", conversation.ID.String()),
		zap.String("user_id", input.UserID.String()),
		zap.String("type", string(input.Type)))
	return conversation, nil
}

// AppendMessage adds the next message to a conversation. The aggregate's
// counters and the message row commit together; a stale version is reloaded
// and the append is replayed so the assigned index reflects committed state.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID uuid.UUID, draft llm.MessageDraft) (*llm.Message, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		conversation, err := s.repo.FindByID(ctx, conversationID)
		if err != nil {
			return nil, err
		}

		message, err := conversation.AppendMessage(draft)
		if err != nil {
			return nil, err
		}

		err = s.repo.SaveWithMessage(ctx, conversation, message)
		if err == nil {
			s.logger.Debug("Message appended",
				zap.String("conversation_id", conversationID.String()),
				zap.Int64("message_index", message.MessageIndex),
				zap.String("role", string(message.Role)))
			return message, nil
		}
		if !shared.ErrConcurrencyConflict.Is(err) {
			return nil, err
		}
		lastErr = err
	}

	s.logger.Warn("Message append exhausted retries",
		zap.String("conversation_id", conversationID.String()),
		zap.Int("max_retries", s.maxRetries))
	return nil, lastErr
}

// Complete marks a conversation as successfully finished
func (s *ConversationService) Complete(ctx context.Context, conversationID uuid.UUID) error {
	return s.transition(ctx, conversationID, func(c *llm.Conversation) error {
		return c.Complete(time.Now())
	})
}

// Fail marks a conversation as failed
func (s *ConversationService) Fail(ctx context.Context, conversationID uuid.UUID, reason string) error {
	return s.transition(ctx, conversationID, func(c *llm.Conversation) error {
		return c.Fail(reason, time.Now())
	})
}

// Cancel marks a conversation as cancelled
func (s *ConversationService) Cancel(ctx context.Context, conversationID uuid.UUID) error {
	return s.transition(ctx, conversationID, func(c *llm.Conversation) error {
		return c.Cancel(time.Now())
	})
}

func (s *ConversationService) transition(ctx context.Context, conversationID uuid.UUID, apply func(*llm.Conversation) error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		conversation, err := s.repo.FindByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if err := apply(conversation); err != nil {
			return err
		}
		err = s.repo.SaveWithLock(ctx, conversation)
		if err == nil {
			return nil
		}
		if !shared.ErrConcurrencyConflict.Is(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// GetConversation loads a conversation by ID
func (s *ConversationService) GetConversation(ctx context.Context, conversationID uuid.UUID) (*llm.Conversation, error) {
	return s.repo.FindByID(ctx, conversationID)
}

// ListConversations lists a user's conversations
func (s *ConversationService) ListConversations(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*llm.Conversation, error) {
	return s.repo.FindByUser(ctx, userID, filter)
}

// ListMessages lists a conversation's messages in sequence order
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, filter shared.Filter) ([]*llm.Message, error) {
	return s.repo.FindMessages(ctx, conversationID, filter)
}
