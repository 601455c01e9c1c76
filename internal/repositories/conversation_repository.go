package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const conversationColumns = `id, created_at, updated_at, metadata`

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, creatorID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	UpdateMetadata(ctx context.Context, conversationID uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error)
	RecordMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateConversation creates the conversation and one participant row per member atomically.
func (r *ConversationRepo) CreateConversation(ctx context.Context, creatorID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ids := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		ids = append(ids, id.String())
	}

	var conversationID uuid.UUID
	if err = tx.GetContext(ctx, &conversationID, `SELECT create_conversation_with_participants($1, $2::uuid[], $3)`, creatorID, pq.StringArray(ids), metadata); err != nil {
		return models.Conversation{}, err
	}

	var conv models.Conversation
	if err = tx.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID); err != nil {
		return models.Conversation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversationsForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	query := `SELECT c.id, c.created_at, c.updated_at, c.metadata FROM conversations c
        INNER JOIN conversation_participants cp ON cp.conversation_id = c.id
        WHERE cp.user_id=$1
        ORDER BY c.updated_at DESC`
	convs := []models.Conversation{}
	err := r.db.SelectContext(ctx, &convs, query, userID)
	return convs, err
}

// UpdateMetadata replaces the metadata bag and bumps updated_at.
func (r *ConversationRepo) UpdateMetadata(ctx context.Context, conversationID uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `UPDATE conversations SET metadata=$2, updated_at=NOW() WHERE id=$1 RETURNING `+conversationColumns, conversationID, metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// RecordMessage patches the last-message preview and increments the message count in one statement.
func (r *ConversationRepo) RecordMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (models.Conversation, error) {
	query := `UPDATE conversations SET
            metadata = metadata || jsonb_build_object(
                'lastMessage', $2::text,
                'lastMessageTime', $3::timestamptz,
                'messageCount', COALESCE((metadata->>'messageCount')::int, 0) + 1),
            updated_at = NOW()
        WHERE id=$1
        RETURNING ` + conversationColumns
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, query, conversationID, preview, at.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}
