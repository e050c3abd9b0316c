package llm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/resumeroast/backend/internal/domain/shared/valueobject"
)

// Conversation is the aggregate root for one LLM exchange. It owns the
// message sequence counter and the running token and cost totals, so a
// conversation row alone answers "what did this exchange cost" without
// scanning messages.
//
// State machine: ACTIVE is the only non-terminal state. COMPLETED, FAILED and
// CANCELLED are terminal; re-applying the same terminal transition is a
// no-op, crossing between terminals is an invalid state error.
type Conversation struct {
	shared.BaseAggregateRoot
	UserID            uuid.UUID          `gorm:"type:uuid;not null;index"`
	Type              ConversationType   `gorm:"not null"`
	Status            ConversationStatus `gorm:"not null;default:ACTIVE"`
	Title             string             `gorm:"size:256"`
	Model             string             `gorm:"size:128"`
	MessageCount      int64              `gorm:"not null;default:0"`
	TotalInputTokens  int64              `gorm:"not null;default:0"`
	TotalOutputTokens int64              `gorm:"not null;default:0"`
	TotalCost         valueobject.Money  `gorm:"type:numeric(12,6)"`
	FailureReason     *string
	EndedAt           *time.Time
}

// TableName sets the GORM table name
func (Conversation) TableName() string {
	return "llm_conversations"
}

// NewConversation starts an active conversation for a user
func NewConversation(userID uuid.UUID, convType ConversationType, title, model string) (*Conversation, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if !convType.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("unknown conversation type %q", convType))
	}
	return &Conversation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Type:              convType,
		Status:            ConversationStatusActive,
		Title:             title,
		Model:             model,
		TotalCost:         valueobject.ZeroUSD(),
	}, nil
}

// AppendMessage materializes a draft into the next message of the sequence
// and folds its tokens and cost into the conversation totals. The returned
// message carries MessageIndex = previous MessageCount, so indices are
// zero-based and gapless as long as appends go through the aggregate.
func (c *Conversation) AppendMessage(draft MessageDraft) (*Message, error) {
	if c.Status.IsTerminal() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("cannot append to conversation in state %s", c.Status))
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}

	cost := draft.Cost
	if cost.Currency() == "" {
		cost = valueobject.ZeroUSD()
	}
	newTotal, err := c.TotalCost.Add(cost)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}

	msg := &Message{
		BaseEntity:     shared.NewBaseEntity(),
		ConversationID: c.ID,
		MessageIndex:   c.MessageCount,
		Role:           draft.Role,
		Content:        draft.Content,
		Model:          draft.Model,
		InputTokens:    draft.InputTokens,
		OutputTokens:   draft.OutputTokens,
		Cost:           cost,
		FinishReason:   draft.FinishReason,
	}

	c.MessageCount++
	c.TotalInputTokens += draft.InputTokens
	c.TotalOutputTokens += draft.OutputTokens
	c.TotalCost = newTotal
	c.UpdatedAt = time.Now()
	return msg, nil
}

// Complete marks the conversation as successfully finished
func (c *Conversation) Complete(now time.Time) error {
	return c.end(ConversationStatusCompleted, nil, now)
}

// Fail marks the conversation as failed, recording why
func (c *Conversation) Fail(reason string, now time.Time) error {
	return c.end(ConversationStatusFailed, &reason, now)
}

// Cancel marks the conversation as cancelled by the user
func (c *Conversation) Cancel(now time.Time) error {
	return c.end(ConversationStatusCancelled, nil, now)
}

func (c *Conversation) end(target ConversationStatus, reason *string, now time.Time) error {
	if c.Status == target {
		return nil
	}
	if c.Status.IsTerminal() {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("cannot move conversation from %s to %s", c.Status, target))
	}
	now = now.UTC()
	c.Status = target
	c.FailureReason = reason
	c.EndedAt = &now
	c.UpdatedAt = now
	return nil
}

// TotalTokens returns the combined token count across all messages
func (c *Conversation) TotalTokens() int64 {
	return c.TotalInputTokens + c.TotalOutputTokens
}

// IsActive returns true while the conversation still accepts messages
func (c *Conversation) IsActive() bool {
	return c.Status == ConversationStatusActive
}
