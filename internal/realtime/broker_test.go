package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerRoutesByFilter(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()
	mine := Filter{Table: "messages", Column: "conversation_id", Value: "c1"}
	other := Filter{Table: "messages", Column: "conversation_id", Value: "c2"}

	var got []Change
	sub, err := b.Subscribe(ctx, mine, func(c Change) { got = append(got, c) })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	change, err := NewChange("messages", Insert, map[string]string{"id": "m1"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, mine, change))
	require.NoError(t, b.Publish(ctx, other, change))

	require.Len(t, got, 1)
	assert.Equal(t, Insert, got[0].Type)
	assert.JSONEq(t, `{"id":"m1"}`, string(got[0].Record))
}

func TestMemoryBrokerUnsubscribe(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()
	f := Filter{Table: "conversation_participants", Column: "user_id", Value: "u1"}

	calls := 0
	sub, err := b.Subscribe(ctx, f, func(Change) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers(f))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 0, b.Subscribers(f))

	require.NoError(t, b.Publish(ctx, f, Change{Table: "conversations", Type: Update}))
	assert.Zero(t, calls)
}

func TestHandlerMayUnsubscribeDuringDelivery(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()
	f := Filter{Table: "messages", Column: "conversation_id", Value: "c1"}

	var sub Subscription
	sub, err := b.Subscribe(ctx, f, func(Change) { sub.Unsubscribe() })
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, f, Change{}))
	assert.Equal(t, 0, b.Subscribers(f))
}

func TestSubjectNaming(t *testing.T) {
	f := Filter{Table: "messages", Column: "conversation_id", Value: "abc"}
	assert.Equal(t, "changes.messages.conversation_id.abc", subject(f))
}
