package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
)

type ConversationServiceMock struct {
	mock.Mock
}

func (m *ConversationServiceMock) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationServiceMock) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, userID, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationServiceMock) CreateConversation(ctx context.Context, userID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	args := m.Called(ctx, userID, participantIDs, metadata)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationServiceMock) UpdateConversationMetadata(ctx context.Context, userID, conversationID uuid.UUID, patch models.ConversationMetadata) (models.Conversation, error) {
	args := m.Called(ctx, userID, conversationID, patch)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationServiceMock) ListParticipants(ctx context.Context, userID, conversationID uuid.UUID) ([]models.ConversationParticipant, error) {
	args := m.Called(ctx, userID, conversationID)
	var list []models.ConversationParticipant
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationParticipant)
	}
	return list, args.Error(1)
}

func (m *ConversationServiceMock) AddParticipant(ctx context.Context, userID, conversationID uuid.UUID, email string) (models.ConversationParticipant, error) {
	args := m.Called(ctx, userID, conversationID, email)
	var part models.ConversationParticipant
	if val := args.Get(0); val != nil {
		part = val.(models.ConversationParticipant)
	}
	return part, args.Error(1)
}

func (m *ConversationServiceMock) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, payload models.EncryptedMessagePayload) (models.Message, error) {
	args := m.Called(ctx, userID, conversationID, payload)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationServiceMock) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, userID, conversationID, limit, offset)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *ConversationServiceMock) UpdateMessageMetadata(ctx context.Context, userID, messageID uuid.UUID, patch models.MetadataPatch) (models.Message, error) {
	args := m.Called(ctx, userID, messageID, patch)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationServiceMock) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, userID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ContactServiceMock struct {
	mock.Mock
}

func (m *ContactServiceMock) ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error) {
	args := m.Called(ctx, userID, status)
	var list []models.Contact
	if val := args.Get(0); val != nil {
		list = val.([]models.Contact)
	}
	return list, args.Error(1)
}

func (m *ContactServiceMock) FindUserByEmail(ctx context.Context, userID uuid.UUID, email string) (models.UserProfile, error) {
	args := m.Called(ctx, userID, email)
	var user models.UserProfile
	if val := args.Get(0); val != nil {
		user = val.(models.UserProfile)
	}
	return user, args.Error(1)
}

func (m *ContactServiceMock) AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, userID, contactUserID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactServiceMock) UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (models.Contact, error) {
	args := m.Called(ctx, userID, contactID, status)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactServiceMock) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	args := m.Called(ctx, userID, contactID)
	return args.Error(0)
}

type KeyServiceMock struct {
	mock.Mock
}

func (m *KeyServiceMock) StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey string) (int64, error) {
	args := m.Called(ctx, userID, publicKey)
	return args.Get(0).(int64), args.Error(1)
}
