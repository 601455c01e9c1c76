package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// Message is a stored, end-to-end encrypted chat message.
type Message struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	ConversationID     uuid.UUID          `db:"conversation_id" json:"conversation_id"`
	SenderID           uuid.UUID          `db:"sender_id" json:"sender_id"`
	EncryptedContent   string             `db:"encrypted_content" json:"encrypted_content"`
	IV                 string             `db:"iv" json:"iv"`
	EncryptionMetadata EncryptionMetadata `db:"encryption_metadata" json:"encryption_metadata"`
	EncapsulatedKeys   KeyMap             `db:"encapsulated_keys" json:"encapsulated_keys"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
	Metadata           MessageMetadata    `db:"metadata" json:"metadata"`
}

// EncryptionMetadata describes how EncryptedContent was produced.
type EncryptionMetadata struct {
	Algorithm        string `json:"algorithm,omitempty"`
	KeyEncapsulation string `json:"keyEncapsulation,omitempty"`
	KeySize          int    `json:"keySize,omitempty"`
	// UseFixedKey marks envelopes written by the old shared-key scheme.
	UseFixedKey bool `json:"useFixedKey,omitempty"`
}

func (m *EncryptionMetadata) Scan(src any) error { return scanJSON(src, m) }

func (m EncryptionMetadata) Value() (driver.Value, error) { return jsonValue(m) }

// MessageMetadata carries advisory receipt state and the client dedup id.
type MessageMetadata struct {
	IsRead      bool     `json:"isRead,omitempty"`
	ReadBy      []string `json:"readBy,omitempty"`
	DeliveredTo []string `json:"deliveredTo,omitempty"`
	ClientID    string   `json:"clientId,omitempty"`
}

func (m *MessageMetadata) Scan(src any) error { return scanJSON(src, m) }

func (m MessageMetadata) Value() (driver.Value, error) { return jsonValue(m) }

// EncryptedMessagePayload is what a client submits when sending.
type EncryptedMessagePayload struct {
	EncapsulatedKeys   map[string]string  `json:"encapsulatedKeys"`
	Message            EncryptedBody      `json:"message"`
	EncryptionMetadata EncryptionMetadata `json:"encryption_metadata"`
	Metadata           *PayloadMetadata   `json:"metadata,omitempty"`
}

// EncryptedBody is the ciphertext/nonce pair of a payload.
type EncryptedBody struct {
	EncryptedContent string `json:"encrypted_content"`
	IV               string `json:"iv"`
	Algorithm        string `json:"algorithm"`
}

// PayloadMetadata holds client-supplied send options.
type PayloadMetadata struct {
	ClientID string `json:"clientId,omitempty"`
}

// MetadataPatch is a partial receipt update.
type MetadataPatch struct {
	IsRead      *bool    `json:"isRead,omitempty"`
	ReadBy      []string `json:"readBy,omitempty"`
	DeliveredTo []string `json:"deliveredTo,omitempty"`
}
