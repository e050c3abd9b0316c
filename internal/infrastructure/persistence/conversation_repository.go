package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/llm"
	"github.com/resumeroast/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ConversationRepository implements llm.ConversationRepository using GORM
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create persists a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation *llm.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

// FindByID retrieves a conversation by ID
func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*llm.Conversation, error) {
	var conversation llm.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// FindByUser retrieves a user's conversations
func (r *ConversationRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*llm.Conversation, error) {
	var conversations []*llm.Conversation

	sortField := ValidateSortField(filter.OrderBy, ConversationSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// SaveWithLock persists status transitions with optimistic locking
func (r *ConversationRepository) SaveWithLock(ctx context.Context, conversation *llm.Conversation) error {
	return r.saveLocked(r.db.WithContext(ctx), conversation)
}

// SaveWithMessage persists the conversation's updated counters and the
// appended message atomically. The version check is what keeps the message
// sequence gapless: a concurrent append bumps the version first, the loser's
// update matches zero rows and the message insert never runs.
func (r *ConversationRepository) SaveWithMessage(ctx context.Context, conversation *llm.Conversation, message *llm.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveLocked(tx, conversation); err != nil {
			return err
		}
		return tx.Create(message).Error
	})
}

func (r *ConversationRepository) saveLocked(db *gorm.DB, conversation *llm.Conversation) error {
	result := db.Model(&llm.Conversation{}).
		Where("id = ? AND version = ?", conversation.ID, conversation.GetVersion()).
		Updates(map[string]interface{}{
			"status":              conversation.Status,
			"title":               conversation.Title,
			"message_count":       conversation.MessageCount,
			"total_input_tokens":  conversation.TotalInputTokens,
			"total_output_tokens": conversation.TotalOutputTokens,
			"total_cost":          conversation.TotalCost,
			"failure_reason":      conversation.FailureReason,
			"ended_at":            conversation.EndedAt,
			"version":             conversation.GetVersion() + 1,
			"updated_at":          conversation.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	conversation.IncrementVersion()
	return nil
}

// FindMessages retrieves a conversation's messages, by sequence by default
func (r *ConversationRepository) FindMessages(ctx context.Context, conversationID uuid.UUID, filter shared.Filter) ([]*llm.Message, error) {
	var messages []*llm.Message

	sortField := ValidateSortField(filter.OrderBy, MessageSortFields, "message_index")
	sortOrder := "ASC"
	if filter.OrderDir != "" {
		sortOrder = ValidateSortOrder(filter.OrderDir)
	}

	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountMessages counts a conversation's messages
func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&llm.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure ConversationRepository implements the interface
var _ llm.ConversationRepository = (*ConversationRepository)(nil)
