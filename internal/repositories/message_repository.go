package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, conversation_id, sender_id, encrypted_content, iv, encryption_metadata, encapsulated_keys, created_at, updated_at, metadata`

// NewMessage is the insert shape of a message.
type NewMessage struct {
	ConversationID     uuid.UUID
	SenderID           uuid.UUID
	EncryptedContent   string
	IV                 string
	EncryptionMetadata models.EncryptionMetadata
	EncapsulatedKeys   models.KeyMap
	Metadata           models.MessageMetadata
}

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg NewMessage) (models.Message, bool, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error)
	UpdateMetadata(ctx context.Context, messageID uuid.UUID, metadata models.MessageMetadata) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message. When the metadata carries a client id that was already
// used by the same sender in the conversation, the existing row is returned and created is false.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg NewMessage) (models.Message, bool, error) {
	var stored models.Message
	err := r.db.GetContext(ctx, &stored, `INSERT INTO messages (conversation_id, sender_id, encrypted_content, iv, encryption_metadata, encapsulated_keys, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT DO NOTHING
        RETURNING `+messageColumns,
		msg.ConversationID, msg.SenderID, msg.EncryptedContent, msg.IV, msg.EncryptionMetadata, msg.EncapsulatedKeys, msg.Metadata)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || msg.Metadata.ClientID == "" {
		return models.Message{}, false, err
	}

	err = r.db.GetContext(ctx, &stored, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 AND sender_id=$2 AND metadata->>'clientId'=$3`,
		msg.ConversationID, msg.SenderID, msg.Metadata.ClientID)
	if err != nil {
		return models.Message{}, false, err
	}
	return stored, false, nil
}

// ListMessages returns a page of messages newest first.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	query, args, err := psql.Select(messageColumns).
		From("messages").
		Where("conversation_id = ?", conversationID).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	msgs := []models.Message{}
	err = r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateMetadata replaces the receipt metadata of a message.
func (r *MessageRepo) UpdateMetadata(ctx context.Context, messageID uuid.UUID, metadata models.MessageMetadata) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `UPDATE messages SET metadata=$2, updated_at=NOW() WHERE id=$1 RETURNING `+messageColumns, messageID, metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
