package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

const (
	DefaultMessagePage = 50
	MaxMessagePage     = 200
)

// SendMessage stores an encrypted message from a current participant. A repeated
// client id returns the message stored by the first attempt.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, payload models.EncryptedMessagePayload) (models.Message, error) {
	if userID == uuid.Nil {
		return models.Message{}, ErrNotAuthenticated
	}
	if payload.Message.EncryptedContent == "" {
		return models.Message{}, invalid("encrypted_content is required")
	}
	if payload.EncryptionMetadata.UseFixedKey {
		return models.Message{}, invalid("fixed-key encryption is not accepted")
	}
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return models.Message{}, err
	}

	encryption := payload.EncryptionMetadata
	if encryption.Algorithm == "" {
		encryption.Algorithm = payload.Message.Algorithm
	}
	msg := repositories.NewMessage{
		ConversationID:     conversationID,
		SenderID:           userID,
		EncryptedContent:   payload.Message.EncryptedContent,
		IV:                 payload.Message.IV,
		EncryptionMetadata: encryption,
		EncapsulatedKeys:   models.KeyMap(payload.EncapsulatedKeys),
	}
	if payload.Metadata != nil {
		msg.Metadata.ClientID = payload.Metadata.ClientID
	}

	stored, created, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return models.Message{}, storeErr(err)
	}
	if !created {
		return stored, nil
	}
	observability.IncMessagesSent()

	s.recordPreview(ctx, userID, stored)
	s.notify.publish(ctx, MessageFeed(conversationID), tableMessages, realtime.Insert, stored)
	s.notify.emit(ctx, observability.EventMessageSent, userID, "message sent", map[string]any{
		"conversation_id": conversationID,
		"message_id":      stored.ID,
	})
	return stored, nil
}

// recordPreview patches the conversation's last-message preview. It is not
// transactional with the insert and its failure never reaches the sender.
func (s *ConversationService) recordPreview(ctx context.Context, senderID uuid.UUID, msg models.Message) {
	conv, err := s.conversations.RecordMessage(ctx, msg.ConversationID, s.preview(ctx, senderID), msg.CreatedAt)
	if err != nil {
		observability.IncMetadataPatchFailure()
		log.Warn().Err(err).
			Str("conversation_id", msg.ConversationID.String()).
			Str("message_id", msg.ID.String()).
			Msg("conversation preview update failed")
		return
	}
	s.broadcastConversation(ctx, conv, realtime.Update)
}

func (s *ConversationService) preview(ctx context.Context, senderID uuid.UUID) string {
	if s.directory != nil {
		if user, err := s.directory.FindUserByID(ctx, senderID); err == nil && user.Email != "" {
			return user.Email + ": New message"
		}
	}
	return "New encrypted message"
}

// ListMessages returns one page oldest first. Pages are read newest first, so
// offset 0 is the most recent page.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessagePage
	}
	if limit > MaxMessagePage {
		limit = MaxMessagePage
	}
	if offset < 0 {
		offset = 0
	}

	var page []models.Message
	err := s.retry.read(ctx, "list_messages", func() error {
		var err error
		page, err = s.messages.ListMessages(ctx, conversationID, limit, offset)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("listing messages failed, returning empty page")
		return []models.Message{}, nil
	}

	out := make([]models.Message, len(page))
	for i, m := range page {
		out[len(page)-1-i] = m
	}
	return out, nil
}

// UpdateMessageMetadata merges advisory receipt state into a message.
func (s *ConversationService) UpdateMessageMetadata(ctx context.Context, userID, messageID uuid.UUID, patch models.MetadataPatch) (models.Message, error) {
	if userID == uuid.Nil {
		return models.Message{}, ErrNotAuthenticated
	}

	var msg models.Message
	err := s.retry.read(ctx, "get_message", func() error {
		var err error
		msg, err = s.messages.GetMessage(ctx, messageID)
		return permanent(err)
	})
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, storeErr(err)
	}
	if err := s.requireParticipant(ctx, msg.ConversationID, userID); err != nil {
		return models.Message{}, err
	}

	metadata := mergeReceipts(msg.Metadata, patch)
	updated, err := s.messages.UpdateMetadata(ctx, messageID, metadata)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, storeErr(err)
	}

	s.notify.publish(ctx, MessageFeed(updated.ConversationID), tableMessages, realtime.Update, updated)
	return updated, nil
}

// MarkRead records the caller as a reader of the message.
func (s *ConversationService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (models.Message, error) {
	read := true
	return s.UpdateMessageMetadata(ctx, userID, messageID, models.MetadataPatch{
		IsRead: &read,
		ReadBy: []string{userID.String()},
	})
}

func mergeReceipts(current models.MessageMetadata, patch models.MetadataPatch) models.MessageMetadata {
	if patch.IsRead != nil {
		current.IsRead = *patch.IsRead
	}
	current.ReadBy = union(current.ReadBy, patch.ReadBy)
	current.DeliveredTo = union(current.DeliveredTo, patch.DeliveredTo)
	return current
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string{}, a...), b...) {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
