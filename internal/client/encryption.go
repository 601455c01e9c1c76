package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"messaging-service/internal/e2ee"
	"messaging-service/internal/models"
)

// EnvelopeFromMessage extracts the encryption envelope of a stored message.
func EnvelopeFromMessage(msg models.Message) e2ee.Envelope {
	return e2ee.Envelope{
		Ciphertext:       msg.EncryptedContent,
		Nonce:            msg.IV,
		EncapsulatedKeys: map[string]string(msg.EncapsulatedKeys),
		Metadata: e2ee.Metadata{
			Algorithm:        msg.EncryptionMetadata.Algorithm,
			KeyEncapsulation: msg.EncryptionMetadata.KeyEncapsulation,
			KeySize:          msg.EncryptionMetadata.KeySize,
			UseFixedKey:      msg.EncryptionMetadata.UseFixedKey,
		},
	}
}

// PayloadFromEnvelope builds the send payload for env. clientID makes retries idempotent.
func PayloadFromEnvelope(env e2ee.Envelope, clientID string) models.EncryptedMessagePayload {
	payload := models.EncryptedMessagePayload{
		EncapsulatedKeys: env.EncapsulatedKeys,
		Message: models.EncryptedBody{
			EncryptedContent: env.Ciphertext,
			IV:               env.Nonce,
			Algorithm:        env.Metadata.Algorithm,
		},
		EncryptionMetadata: models.EncryptionMetadata{
			Algorithm:        env.Metadata.Algorithm,
			KeyEncapsulation: env.Metadata.KeyEncapsulation,
			KeySize:          env.Metadata.KeySize,
		},
	}
	if clientID != "" {
		payload.Metadata = &models.PayloadMetadata{ClientID: clientID}
	}
	return payload
}

// Recipients turns participant rows into encryption recipients.
func Recipients(parts []models.ConversationParticipant) []e2ee.Recipient {
	out := make([]e2ee.Recipient, 0, len(parts))
	for _, p := range parts {
		r := e2ee.Recipient{UserID: p.UserID.String()}
		if p.PublicKey != nil {
			r.PublicKey = *p.PublicKey
		}
		out = append(out, r)
	}
	return out
}

// adoptPageSize bounds how far back SendText looks for an existing key.
const adoptPageSize = 20

// SendText encrypts text for every current participant and sends it. A session
// that does not yet hold the conversation key first adopts it from the newest
// message encapsulated to it, so a conversation keeps one content key.
func (c *Client) SendText(ctx context.Context, session *e2ee.Session, conversationID uuid.UUID, text string) (models.Message, error) {
	if err := c.AdoptConversationKey(ctx, session, conversationID); err != nil {
		return models.Message{}, err
	}
	parts, err := c.ListParticipants(ctx, conversationID)
	if err != nil {
		return models.Message{}, fmt.Errorf("list participants: %w", err)
	}
	env, err := session.Encrypt(conversationID.String(), []byte(text), Recipients(parts))
	if err != nil {
		return models.Message{}, err
	}
	return c.SendMessage(ctx, conversationID, PayloadFromEnvelope(env, uuid.NewString()))
}

// AdoptConversationKey seeds session with the key of conversationID from the
// latest page of history. It is a no-op when the session already holds a key or
// no message carries one for this user.
func (c *Client) AdoptConversationKey(ctx context.Context, session *e2ee.Session, conversationID uuid.UUID) error {
	convKey := conversationID.String()
	if session.HasKey(convKey) {
		return nil
	}
	msgs, err := c.ListMessages(ctx, conversationID, adoptPageSize, 0)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	// pages are oldest first
	for i := len(msgs) - 1; i >= 0; i-- {
		if _, ok := msgs[i].EncapsulatedKeys[session.UserID()]; !ok {
			continue
		}
		if err := session.Adopt(convKey, EnvelopeFromMessage(msgs[i])); err == nil {
			return nil
		}
	}
	return nil
}

// DecryptText opens a stored message with session.
func DecryptText(session *e2ee.Session, msg models.Message) (string, error) {
	plaintext, err := session.Decrypt(msg.ConversationID.String(), EnvelopeFromMessage(msg))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
