package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateConversation(ctx context.Context, creatorID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, participantIDs, metadata)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) UpdateMetadata(ctx context.Context, conversationID uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, metadata)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) RecordMessage(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, preview, at)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ParticipantRepositoryMock) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationParticipant, error) {
	args := m.Called(ctx, conversationID)
	var list []models.ConversationParticipant
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationParticipant)
	}
	return list, args.Error(1)
}

func (m *ParticipantRepositoryMock) AddParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (models.ConversationParticipant, error) {
	args := m.Called(ctx, conversationID, userID)
	var p models.ConversationParticipant
	if val := args.Get(0); val != nil {
		p = val.(models.ConversationParticipant)
	}
	return p, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg repositories.NewMessage) (models.Message, bool, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateMetadata(ctx context.Context, messageID uuid.UUID, metadata models.MessageMetadata) (models.Message, error) {
	args := m.Called(ctx, messageID, metadata)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ContactRepositoryMock struct {
	mock.Mock
}

func (m *ContactRepositoryMock) ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error) {
	args := m.Called(ctx, userID, status)
	var list []models.Contact
	if val := args.Get(0); val != nil {
		list = val.([]models.Contact)
	}
	return list, args.Error(1)
}

func (m *ContactRepositoryMock) AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, userID, contactUserID)
	var c models.Contact
	if val := args.Get(0); val != nil {
		c = val.(models.Contact)
	}
	return c, args.Error(1)
}

func (m *ContactRepositoryMock) UpdateStatus(ctx context.Context, contactID, ownerID uuid.UUID, status models.ContactStatus) (models.Contact, error) {
	args := m.Called(ctx, contactID, ownerID, status)
	var c models.Contact
	if val := args.Get(0); val != nil {
		c = val.(models.Contact)
	}
	return c, args.Error(1)
}

func (m *ContactRepositoryMock) DeleteContact(ctx context.Context, contactID, ownerID uuid.UUID) error {
	args := m.Called(ctx, contactID, ownerID)
	return args.Error(0)
}

type KeyRepositoryMock struct {
	mock.Mock
}

func (m *KeyRepositoryMock) StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey, algorithm string) (int64, error) {
	args := m.Called(ctx, userID, publicKey, algorithm)
	return args.Get(0).(int64), args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) FindUserByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	args := m.Called(ctx, email)
	var u models.UserProfile
	if val := args.Get(0); val != nil {
		u = val.(models.UserProfile)
	}
	return u, args.Error(1)
}

func (m *DirectoryMock) FindUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	args := m.Called(ctx, userID)
	var u models.UserProfile
	if val := args.Get(0); val != nil {
		u = val.(models.UserProfile)
	}
	return u, args.Error(1)
}

type BrokerMock struct {
	mock.Mock
}

func (m *BrokerMock) Publish(ctx context.Context, filter realtime.Filter, change realtime.Change) error {
	args := m.Called(ctx, filter, change)
	return args.Error(0)
}

func (m *BrokerMock) Subscribe(ctx context.Context, filter realtime.Filter, handler func(realtime.Change)) (realtime.Subscription, error) {
	args := m.Called(ctx, filter, handler)
	var sub realtime.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(realtime.Subscription)
	}
	return sub, args.Error(1)
}

func (m *BrokerMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
