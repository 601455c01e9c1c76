// Package timeline keeps client-side conversation and message lists consistent
// under duplicate and out-of-order change notifications.
package timeline

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"messaging-service/internal/models"
)

// Messages is the ordered message list of one open conversation.
type Messages struct {
	mu             sync.RWMutex
	conversationID uuid.UUID
	byID           map[uuid.UUID]models.Message
}

func NewMessages(conversationID uuid.UUID) *Messages {
	return &Messages{conversationID: conversationID, byID: make(map[uuid.UUID]models.Message)}
}

// Upsert inserts or replaces a message by id. Messages of other conversations
// are ignored. It reports whether the list changed.
func (t *Messages) Upsert(msgs ...models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := false
	for _, m := range msgs {
		if m.ConversationID != t.conversationID {
			continue
		}
		if prev, ok := t.byID[m.ID]; ok && m.UpdatedAt.Before(prev.UpdatedAt) {
			continue
		}
		t.byID[m.ID] = m
		changed = true
	}
	return changed
}

// List returns the messages oldest first.
func (t *Messages) List() []models.Message {
	t.mu.RLock()
	out := make([]models.Message, 0, len(t.byID))
	for _, m := range t.byID {
		out = append(out, m)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (t *Messages) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Conversations is a user's conversation list.
type Conversations struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]models.Conversation
}

func NewConversations() *Conversations {
	return &Conversations{byID: make(map[uuid.UUID]models.Conversation)}
}

// Upsert inserts or replaces conversations by id, keeping the most recently updated copy.
func (t *Conversations) Upsert(convs ...models.Conversation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := false
	for _, c := range convs {
		if prev, ok := t.byID[c.ID]; ok && c.UpdatedAt.Before(prev.UpdatedAt) {
			continue
		}
		t.byID[c.ID] = c
		changed = true
	}
	return changed
}

// List returns conversations most recently updated first.
func (t *Conversations) List() []models.Conversation {
	t.mu.RLock()
	out := make([]models.Conversation, 0, len(t.byID))
	for _, c := range t.byID {
		out = append(out, c)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (t *Conversations) Get(id uuid.UUID) (models.Conversation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byID[id]
	return c, ok
}
