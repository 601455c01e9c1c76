package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestMessagesDuplicateAndOutOfOrder(t *testing.T) {
	convID := uuid.New()
	base := time.Now()
	first := models.Message{ID: uuid.New(), ConversationID: convID, CreatedAt: base, UpdatedAt: base}
	second := models.Message{ID: uuid.New(), ConversationID: convID, CreatedAt: base.Add(time.Second), UpdatedAt: base.Add(time.Second)}

	tl := NewMessages(convID)
	tl.Upsert(second)
	tl.Upsert(first)
	tl.Upsert(second)
	tl.Upsert(first, second)

	list := tl.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestMessagesIgnoresOtherConversationsAndStaleUpdates(t *testing.T) {
	convID := uuid.New()
	now := time.Now()
	msg := models.Message{ID: uuid.New(), ConversationID: convID, CreatedAt: now, UpdatedAt: now.Add(time.Minute)}
	msg.Metadata.IsRead = true

	tl := NewMessages(convID)
	assert.False(t, tl.Upsert(models.Message{ID: uuid.New(), ConversationID: uuid.New()}))
	assert.True(t, tl.Upsert(msg))

	stale := msg
	stale.UpdatedAt = now
	stale.Metadata.IsRead = false
	assert.False(t, tl.Upsert(stale))

	require.Equal(t, 1, tl.Len())
	assert.True(t, tl.List()[0].Metadata.IsRead)
}

func TestConversationsOrderedByActivity(t *testing.T) {
	now := time.Now()
	a := models.Conversation{ID: uuid.New(), UpdatedAt: now}
	b := models.Conversation{ID: uuid.New(), UpdatedAt: now.Add(-time.Hour)}

	tl := NewConversations()
	tl.Upsert(a, b)

	bumped := b
	bumped.UpdatedAt = now.Add(time.Minute)
	bumped.Metadata.LastMessage = "x: New message"
	tl.Upsert(bumped)
	tl.Upsert(b)

	list := tl.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, "x: New message", list[0].Metadata.LastMessage)

	got, ok := tl.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)
}
