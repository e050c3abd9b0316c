package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/llm"
	"github.com/resumeroast/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockConversationRepository(t *testing.T) (*ConversationRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewConversationRepository(gormDB), mock, mockDB
}

func testConversationWithMessage(t *testing.T) (*llm.Conversation, *llm.Message) {
	t.Helper()
	conversation, err := llm.NewConversation(
		uuid.New(), llm.ConversationTypeResumeAnalysis, "Resume roast", "claude-sonnet-4-20250514")
	require.NoError(t, err)

	message, err := conversation.AppendMessage(llm.MessageDraft{
		Role:    llm.RoleUser,
		Content: "Roast my resume",
	})
	require.NoError(t, err)
	return conversation, message
}

func TestConversationRepository_SaveWithMessage(t *testing.T) {
	t.Run("commits counters and message together", func(t *testing.T) {
		repo, mock, mockDB := newMockConversationRepository(t)
		defer mockDB.Close()

		conversation, message := testConversationWithMessage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "llm_conversations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "llm_messages"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithMessage(context.Background(), conversation, message)

		assert.NoError(t, err)
		assert.Equal(t, 2, conversation.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back the message on a version conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockConversationRepository(t)
		defer mockDB.Close()

		conversation, message := testConversationWithMessage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "llm_conversations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithMessage(context.Background(), conversation, message)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, conversation.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConversationRepository_FindMessages(t *testing.T) {
	t.Run("orders by sequence ascending by default", func(t *testing.T) {
		repo, mock, mockDB := newMockConversationRepository(t)
		defer mockDB.Close()

		conversationID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "conversation_id", "message_index", "role", "content"})

		mock.ExpectQuery(`SELECT \* FROM "llm_messages" WHERE conversation_id = \$1 ORDER BY message_index ASC`).
			WithArgs(conversationID, 50).
			WillReturnRows(rows)

		messages, err := repo.FindMessages(context.Background(), conversationID, shared.Filter{Page: 1, PageSize: 50})

		assert.NoError(t, err)
		assert.Empty(t, messages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConversationRepository_CountMessages(t *testing.T) {
	repo, mock, mockDB := newMockConversationRepository(t)
	defer mockDB.Close()

	conversationID := uuid.New()
	rows := sqlmock.NewRows([]string{"count"}).AddRow(int64(4))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "llm_messages" WHERE conversation_id = \$1`).
		WithArgs(conversationID).
		WillReturnRows(rows)

	count, err := repo.CountMessages(context.Background(), conversationID)

	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
