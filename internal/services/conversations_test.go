package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/e2ee"
	"messaging-service/internal/identity"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
	"messaging-service/internal/services"
	"messaging-service/internal/telemetry"
)

type fixture struct {
	convs  *mocks.ConversationRepositoryMock
	parts  *mocks.ParticipantRepositoryMock
	msgs   *mocks.MessageRepositoryMock
	dir    *mocks.DirectoryMock
	broker *realtime.MemoryBroker
	svc    *services.ConversationService
}

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newFixture(audit *telemetry.AuditEmitter) *fixture {
	f := &fixture{
		convs:  new(mocks.ConversationRepositoryMock),
		parts:  new(mocks.ParticipantRepositoryMock),
		msgs:   new(mocks.MessageRepositoryMock),
		dir:    new(mocks.DirectoryMock),
		broker: realtime.NewMemoryBroker(),
	}
	f.svc = services.NewConversationService(f.convs, f.parts, f.msgs, f.dir, f.broker, audit, fastRetry())
	return f
}

func collect(t *testing.T, b realtime.Broker, filter realtime.Filter) *[]realtime.Change {
	t.Helper()
	var got []realtime.Change
	sub, err := b.Subscribe(context.Background(), filter, func(c realtime.Change) { got = append(got, c) })
	require.NoError(t, err)
	t.Cleanup(func() { sub.Unsubscribe() })
	return &got
}

func envelopeOf(m models.Message) e2ee.Envelope {
	return e2ee.Envelope{
		Ciphertext:       m.EncryptedContent,
		Nonce:            m.IV,
		EncapsulatedKeys: m.EncapsulatedKeys,
		Metadata: e2ee.Metadata{
			Algorithm:        m.EncryptionMetadata.Algorithm,
			KeyEncapsulation: m.EncryptionMetadata.KeyEncapsulation,
			KeySize:          m.EncryptionMetadata.KeySize,
			UseFixedKey:      m.EncryptionMetadata.UseFixedKey,
		},
	}
}

func TestCreateConversationSendAndDecrypt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	alice, bob := uuid.New(), uuid.New()
	convID := uuid.New()

	aliceSession, err := e2ee.NewSession(alice.String())
	require.NoError(t, err)
	bobSession, err := e2ee.NewSession(bob.String())
	require.NoError(t, err)
	aliceKey, bobKey := aliceSession.PublicKey(), bobSession.PublicKey()

	bobFeed := collect(t, f.broker, services.ConversationFeed(bob))
	messageFeed := collect(t, f.broker, services.MessageFeed(convID))

	conv := models.Conversation{ID: convID, Metadata: models.ConversationMetadata{Name: "B", ParticipantCount: 2}}
	f.convs.On("CreateConversation", mock.Anything, alice, []uuid.UUID{alice, bob}, mock.MatchedBy(func(md models.ConversationMetadata) bool {
		return md.Name == "B" && md.ParticipantCount == 2 && !md.IsGroup
	})).Return(conv, nil).Once()

	created, err := f.svc.CreateConversation(ctx, alice, []uuid.UUID{bob, bob}, models.ConversationMetadata{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, convID, created.ID)
	require.Len(t, *bobFeed, 1)
	assert.Equal(t, realtime.Insert, (*bobFeed)[0].Type)

	members := []models.ConversationParticipant{
		{ConversationID: convID, UserID: alice, PublicKey: &aliceKey},
		{ConversationID: convID, UserID: bob, PublicKey: &bobKey},
	}
	f.parts.On("IsParticipant", mock.Anything, convID, alice).Return(true, nil)
	f.parts.On("IsParticipant", mock.Anything, convID, bob).Return(true, nil)
	f.parts.On("ListParticipants", mock.Anything, convID).Return(members, nil)

	participants, err := f.svc.ListParticipants(ctx, alice, convID)
	require.NoError(t, err)
	recipients := make([]e2ee.Recipient, 0, len(participants))
	for _, p := range participants {
		recipients = append(recipients, e2ee.Recipient{UserID: p.UserID.String(), PublicKey: *p.PublicKey})
	}
	env, err := aliceSession.Encrypt(convID.String(), []byte("hi"), recipients)
	require.NoError(t, err)

	stored := models.Message{
		ID:               uuid.New(),
		ConversationID:   convID,
		SenderID:         alice,
		EncryptedContent: env.Ciphertext,
		IV:               env.Nonce,
		EncryptionMetadata: models.EncryptionMetadata{
			Algorithm:        env.Metadata.Algorithm,
			KeyEncapsulation: env.Metadata.KeyEncapsulation,
			KeySize:          env.Metadata.KeySize,
		},
		EncapsulatedKeys: env.EncapsulatedKeys,
		CreatedAt:        time.Now(),
		Metadata:         models.MessageMetadata{ClientID: "c-1"},
	}
	f.msgs.On("CreateMessage", mock.Anything, mock.MatchedBy(func(in repositories.NewMessage) bool {
		return in.ConversationID == convID && in.SenderID == alice &&
			in.EncryptedContent == env.Ciphertext && in.IV == env.Nonce &&
			len(in.EncapsulatedKeys) == 2 && in.Metadata.ClientID == "c-1"
	})).Return(stored, true, nil).Once()
	f.dir.On("FindUserByID", mock.Anything, alice).Return(models.UserProfile{ID: alice, Email: "a@example.com"}, nil)

	var preview string
	f.convs.On("RecordMessage", mock.Anything, convID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { preview = args.String(2) }).
		Return(models.Conversation{ID: convID, Metadata: models.ConversationMetadata{Name: "B", LastMessage: "a@example.com: New message", MessageCount: 1}}, nil).Once()

	sent, err := f.svc.SendMessage(ctx, alice, convID, models.EncryptedMessagePayload{
		EncapsulatedKeys: env.EncapsulatedKeys,
		Message:          models.EncryptedBody{EncryptedContent: env.Ciphertext, IV: env.Nonce, Algorithm: env.Metadata.Algorithm},
		EncryptionMetadata: models.EncryptionMetadata{
			Algorithm:        env.Metadata.Algorithm,
			KeyEncapsulation: env.Metadata.KeyEncapsulation,
			KeySize:          env.Metadata.KeySize,
		},
		Metadata: &models.PayloadMetadata{ClientID: "c-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, alice, sent.SenderID)
	assert.Equal(t, "c-1", sent.Metadata.ClientID)
	assert.NotEmpty(t, preview)
	require.Len(t, *messageFeed, 1)
	require.Len(t, *bobFeed, 2)

	var pushed models.Message
	require.NoError(t, json.Unmarshal((*messageFeed)[0].Record, &pushed))
	assert.Equal(t, sent.ID, pushed.ID)

	f.msgs.On("ListMessages", mock.Anything, convID, services.DefaultMessagePage, 0).Return([]models.Message{stored}, nil).Once()
	page, err := f.svc.ListMessages(ctx, bob, convID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)

	plain, err := bobSession.Decrypt(convID.String(), envelopeOf(page[0]))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(plain))

	f.convs.AssertExpectations(t)
	f.msgs.AssertExpectations(t)
}

func TestCreateConversationRequiresAnotherMember(t *testing.T) {
	f := newFixture(nil)
	alice := uuid.New()

	_, err := f.svc.CreateConversation(context.Background(), alice, []uuid.UUID{alice}, models.ConversationMetadata{})
	require.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = f.svc.CreateConversation(context.Background(), uuid.Nil, []uuid.UUID{alice}, models.ConversationMetadata{})
	require.ErrorIs(t, err, services.ErrNotAuthenticated)
	f.convs.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateConversationStoreFailure(t *testing.T) {
	f := newFixture(nil)
	alice, bob := uuid.New(), uuid.New()
	f.convs.On("CreateConversation", mock.Anything, alice, mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := f.svc.CreateConversation(context.Background(), alice, []uuid.UUID{bob}, models.ConversationMetadata{})
	require.ErrorIs(t, err, services.ErrStoreUnavailable)
}

func TestAddParticipantTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	alice, carol := uuid.New(), uuid.New()
	convID := uuid.New()
	carolFeed := collect(t, f.broker, services.ConversationFeed(carol))

	f.parts.On("IsParticipant", mock.Anything, convID, alice).Return(true, nil)
	f.dir.On("FindUserByEmail", mock.Anything, "carol@example.com").Return(models.UserProfile{ID: carol, Email: "carol@example.com"}, nil).Twice()
	f.parts.On("AddParticipant", mock.Anything, convID, carol).Return(models.ConversationParticipant{ConversationID: convID, UserID: carol}, nil).Once()
	f.parts.On("AddParticipant", mock.Anything, convID, carol).Return(nil, repositories.ErrDuplicateParticipant).Once()
	f.convs.On("GetConversation", mock.Anything, convID).Return(models.Conversation{ID: convID, Metadata: models.ConversationMetadata{ParticipantCount: 3}}, nil).Once()
	f.parts.On("ListParticipants", mock.Anything, convID).Return([]models.ConversationParticipant{{UserID: alice}, {UserID: carol}}, nil)

	p, err := f.svc.AddParticipant(ctx, alice, convID, "  Carol@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, carol, p.UserID)
	require.Len(t, *carolFeed, 1)
	assert.Equal(t, realtime.Insert, (*carolFeed)[0].Type)

	_, err = f.svc.AddParticipant(ctx, alice, convID, "carol@example.com")
	require.ErrorIs(t, err, services.ErrAlreadyParticipant)

	f.parts.AssertNumberOfCalls(t, "AddParticipant", 2)
	f.dir.AssertNumberOfCalls(t, "FindUserByEmail", 2)
}

func TestAddParticipantErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	alice, mallory := uuid.New(), uuid.New()
	convID := uuid.New()

	f.parts.On("IsParticipant", mock.Anything, convID, mallory).Return(false, nil)
	_, err := f.svc.AddParticipant(ctx, mallory, convID, "x@example.com")
	require.ErrorIs(t, err, services.ErrNotAParticipant)

	f.parts.On("IsParticipant", mock.Anything, convID, alice).Return(true, nil)
	f.dir.On("FindUserByEmail", mock.Anything, "ghost@example.com").Return(nil, identity.ErrUserNotFound).Once()
	_, err = f.svc.AddParticipant(ctx, alice, convID, "ghost@example.com")
	require.ErrorIs(t, err, services.ErrUserNotFound)

	_, err = f.svc.AddParticipant(ctx, alice, convID, "   ")
	require.ErrorIs(t, err, services.ErrInvalidArgument)

	f.parts.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestListConversationsFailsOpen(t *testing.T) {
	f := newFixture(nil)
	user := uuid.New()
	f.convs.On("ListConversationsForUser", mock.Anything, user).Return(nil, assert.AnError)

	convs, err := f.svc.ListConversations(context.Background(), user)
	require.NoError(t, err)
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
	f.convs.AssertNumberOfCalls(t, "ListConversationsForUser", 3)
}

func TestListConversationsRecoversFromTransientFailure(t *testing.T) {
	f := newFixture(nil)
	user := uuid.New()
	want := []models.Conversation{{ID: uuid.New()}}
	f.convs.On("ListConversationsForUser", mock.Anything, user).Return(nil, assert.AnError).Once()
	f.convs.On("ListConversationsForUser", mock.Anything, user).Return(want, nil).Once()

	convs, err := f.svc.ListConversations(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, want, convs)
}

func TestListConversationsZeroMemberships(t *testing.T) {
	f := newFixture(nil)
	user := uuid.New()
	f.convs.On("ListConversationsForUser", mock.Anything, user).Return([]models.Conversation{}, nil).Once()

	convs, err := f.svc.ListConversations(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestGetConversationRequiresMembership(t *testing.T) {
	f := newFixture(nil)
	user, convID := uuid.New(), uuid.New()
	f.parts.On("IsParticipant", mock.Anything, convID, user).Return(false, nil).Once()

	_, err := f.svc.GetConversation(context.Background(), user, convID)
	require.ErrorIs(t, err, services.ErrNotAParticipant)
	f.convs.AssertNotCalled(t, "GetConversation", mock.Anything, mock.Anything)
}

func TestUpdateConversationMetadataKeepsCounters(t *testing.T) {
	f := newFixture(nil)
	user, convID := uuid.New(), uuid.New()
	current := models.Conversation{ID: convID, Metadata: models.ConversationMetadata{Name: "old", MessageCount: 4, LastMessage: "x: New message", ParticipantCount: 2}}

	f.parts.On("IsParticipant", mock.Anything, convID, user).Return(true, nil)
	f.parts.On("ListParticipants", mock.Anything, convID).Return([]models.ConversationParticipant{{UserID: user}}, nil)
	f.convs.On("GetConversation", mock.Anything, convID).Return(current, nil).Once()
	f.convs.On("UpdateMetadata", mock.Anything, convID, mock.MatchedBy(func(md models.ConversationMetadata) bool {
		return md.Name == "new" && md.MessageCount == 4 && md.LastMessage == "x: New message"
	})).Return(current, nil).Once()

	_, err := f.svc.UpdateConversationMetadata(context.Background(), user, convID, models.ConversationMetadata{Name: "new", MessageCount: 99})
	require.NoError(t, err)
	f.convs.AssertExpectations(t)
}

func TestListParticipantsFailsClosed(t *testing.T) {
	f := newFixture(nil)
	user, convID := uuid.New(), uuid.New()
	key := "cHVibGlj"
	f.parts.On("IsParticipant", mock.Anything, convID, user).Return(true, nil)
	f.parts.On("ListParticipants", mock.Anything, convID).
		Return([]models.ConversationParticipant{{ConversationID: convID, UserID: user, PublicKey: &key}}, nil).Once()

	parts, err := f.svc.ListParticipants(context.Background(), user, convID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, key, *parts[0].PublicKey)

	f.parts.On("ListParticipants", mock.Anything, convID).Return(nil, assert.AnError)
	parts, err = f.svc.ListParticipants(context.Background(), user, convID)
	require.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.Nil(t, parts)
}
