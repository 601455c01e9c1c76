package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat between two or more participants.
type Conversation struct {
	ID        uuid.UUID            `db:"id" json:"id"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
	Metadata  ConversationMetadata `db:"metadata" json:"metadata"`
}

// ConversationMetadata is the denormalized display data kept on the conversation row.
type ConversationMetadata struct {
	Name             string     `json:"name,omitempty"`
	IsGroup          bool       `json:"isGroup,omitempty"`
	Avatar           string     `json:"avatar,omitempty"`
	LastMessage      string     `json:"lastMessage,omitempty"`
	LastMessageTime  *time.Time `json:"lastMessageTime,omitempty"`
	MessageCount     int        `json:"messageCount,omitempty"`
	ParticipantCount int        `json:"participantCount,omitempty"`
}

func (m *ConversationMetadata) Scan(src any) error { return scanJSON(src, m) }

func (m ConversationMetadata) Value() (driver.Value, error) { return jsonValue(m) }

// ConversationParticipant joins a user to a conversation.
type ConversationParticipant struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	JoinedAt       time.Time `db:"joined_at" json:"joined_at"`
	PublicKey      *string   `db:"public_key" json:"public_key"`
}
