package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/identity"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// ConversationService is the store-access layer for conversations, participants and messages.
// Authorization and writes fail closed; list reads are retried and then fail open.
type ConversationService struct {
	conversations repositories.ConversationRepository
	participants  repositories.ParticipantRepository
	messages      repositories.MessageRepository
	directory     identity.Directory
	notify        notifier
	retry         RetryPolicy
}

func NewConversationService(
	conversations repositories.ConversationRepository,
	participants repositories.ParticipantRepository,
	messages repositories.MessageRepository,
	directory identity.Directory,
	broker realtime.Broker,
	audit *telemetry.AuditEmitter,
	retry RetryPolicy,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		directory:     directory,
		notify:        notifier{broker: broker, audit: audit},
		retry:         retry,
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *ConversationService) requireParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}
	ok, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrNotAParticipant
	}
	return nil
}

// ListConversations returns the caller's conversations, most recently active first.
// A read that keeps failing yields an empty list.
func (s *ConversationService) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	var convs []models.Conversation
	err := s.retry.read(ctx, "list_conversations", func() error {
		var err error
		convs, err = s.conversations.ListConversationsForUser(ctx, userID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("listing conversations failed, returning empty list")
		return []models.Conversation{}, nil
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (models.Conversation, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return models.Conversation{}, err
	}
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, storeErr(err)
	}
	return conv, nil
}

// CreateConversation creates a conversation between the caller and participantIDs.
// The caller is always a member and duplicate ids collapse to one participant.
func (s *ConversationService) CreateConversation(ctx context.Context, userID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	if userID == uuid.Nil {
		return models.Conversation{}, ErrNotAuthenticated
	}

	members := uniqueMembers(userID, participantIDs)
	if len(members) < 2 {
		return models.Conversation{}, invalid("a conversation needs at least one other participant")
	}
	metadata.IsGroup = metadata.IsGroup || len(members) > 2
	metadata.ParticipantCount = len(members)
	metadata.LastMessage = ""
	metadata.LastMessageTime = nil
	metadata.MessageCount = 0

	conv, err := s.conversations.CreateConversation(ctx, userID, members, metadata)
	if err != nil {
		return models.Conversation{}, storeErr(err)
	}

	for _, member := range members {
		s.notify.publish(ctx, ConversationFeed(member), tableConversations, realtime.Insert, conv)
	}
	s.notify.emit(ctx, observability.EventConversationCreated, userID, "conversation created", map[string]any{
		"conversation_id": conv.ID,
		"participants":    len(members),
	})
	return conv, nil
}

func uniqueMembers(creator uuid.UUID, ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{creator: {}}
	members := []uuid.UUID{creator}
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}

// UpdateConversationMetadata replaces the display fields. Counters and the
// last-message preview are owned by the service and are kept.
func (s *ConversationService) UpdateConversationMetadata(ctx context.Context, userID, conversationID uuid.UUID, patch models.ConversationMetadata) (models.Conversation, error) {
	conv, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}

	metadata := conv.Metadata
	metadata.Name = patch.Name
	metadata.Avatar = patch.Avatar
	metadata.IsGroup = patch.IsGroup || metadata.ParticipantCount > 2

	updated, err := s.conversations.UpdateMetadata(ctx, conversationID, metadata)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, storeErr(err)
	}
	s.broadcastConversation(ctx, updated, realtime.Update)
	return updated, nil
}

// ListParticipants returns the members and their published public keys. Senders
// encapsulate keys to this list, so failures are reported rather than emptied.
func (s *ConversationService) ListParticipants(ctx context.Context, userID, conversationID uuid.UUID) ([]models.ConversationParticipant, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	var participants []models.ConversationParticipant
	err := s.retry.read(ctx, "list_participants", func() error {
		var err error
		participants, err = s.participants.ListParticipants(ctx, conversationID)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return participants, nil
}

// AddParticipant resolves email with a single directory lookup and adds that user.
func (s *ConversationService) AddParticipant(ctx context.Context, userID, conversationID uuid.UUID, email string) (models.ConversationParticipant, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return models.ConversationParticipant{}, err
	}

	email = identity.NormalizeEmail(email)
	if email == "" {
		return models.ConversationParticipant{}, invalid("email is required")
	}

	user, err := s.directory.FindUserByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return models.ConversationParticipant{}, ErrUserNotFound
	}
	if err != nil {
		return models.ConversationParticipant{}, storeErr(err)
	}

	participant, err := s.participants.AddParticipant(ctx, conversationID, user.ID)
	if errors.Is(err, repositories.ErrDuplicateParticipant) {
		return models.ConversationParticipant{}, ErrAlreadyParticipant
	}
	if err != nil {
		return models.ConversationParticipant{}, storeErr(err)
	}

	if conv, err := s.conversations.GetConversation(ctx, conversationID); err == nil {
		s.notify.publish(ctx, ConversationFeed(user.ID), tableConversations, realtime.Insert, conv)
		s.broadcastConversation(ctx, conv, realtime.Update, user.ID)
	} else {
		log.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("participant added but conversation reload failed")
	}
	s.notify.emit(ctx, observability.EventParticipantAdded, userID, "participant added", map[string]any{
		"conversation_id": conversationID,
		"user_id":         user.ID,
	})
	return participant, nil
}

// broadcastConversation notifies every member's conversation feed, skipping except.
func (s *ConversationService) broadcastConversation(ctx context.Context, conv models.Conversation, typ realtime.ChangeType, except ...uuid.UUID) {
	if s.notify.broker == nil {
		return
	}
	members, err := s.participants.ListParticipants(ctx, conv.ID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("cannot resolve members for notification")
		return
	}
	for _, m := range members {
		if contains(except, m.UserID) {
			continue
		}
		s.notify.publish(ctx, ConversationFeed(m.UserID), tableConversations, typ, conv)
	}
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// permanent stops retries for errors that a second attempt cannot fix.
func permanent(err error) error {
	if errors.Is(err, repositories.ErrMessageNotFound) || errors.Is(err, repositories.ErrConversationNotFound) {
		return backoff.Permanent(err)
	}
	return err
}
