package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrDuplicateParticipant = errors.New("participant already exists")

const participantColumns = `id, conversation_id, user_id, joined_at, public_key`

// ParticipantRepository abstracts conversation membership persistence.
type ParticipantRepository interface {
	IsParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (bool, error)
	ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationParticipant, error)
	AddParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (models.ConversationParticipant, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`, conversationID, userID)
	return exists, err
}

// ListParticipants returns members ordered by join time.
func (r *ParticipantRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationParticipant, error) {
	participants := []models.ConversationParticipant{}
	err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+` FROM conversation_participants WHERE conversation_id=$1 ORDER BY joined_at ASC`, conversationID)
	return participants, err
}

// AddParticipant inserts the membership row and refreshes the conversation's participant count
// in the same transaction. The user's published public key is copied onto the new row.
func (r *ParticipantRepo) AddParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (models.ConversationParticipant, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ConversationParticipant{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var participant models.ConversationParticipant
	err = tx.GetContext(ctx, &participant, `INSERT INTO conversation_participants (conversation_id, user_id, public_key)
        VALUES ($1, $2, (SELECT public_key FROM user_keys WHERE user_id=$2))
        ON CONFLICT (conversation_id, user_id) DO NOTHING
        RETURNING `+participantColumns, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrDuplicateParticipant
		return models.ConversationParticipant{}, err
	}
	if err != nil {
		return models.ConversationParticipant{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE conversations SET
            metadata = metadata || jsonb_build_object('participantCount',
                (SELECT COUNT(*) FROM conversation_participants WHERE conversation_id=$1)),
            updated_at = NOW()
        WHERE id=$1`, conversationID); err != nil {
		return models.ConversationParticipant{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.ConversationParticipant{}, err
	}
	return participant, nil
}
