package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/timeline"
)

// Feed is an open change-feed subscription. Closing it ends the server-side
// subscription as well.
type Feed struct {
	conn    *websocket.Conn
	changes chan realtime.Change
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	err     error
}

// SubscribeConversations follows changes to the caller's conversation list.
func (c *Client) SubscribeConversations(ctx context.Context) (*Feed, error) {
	return c.subscribe(ctx, "/ws/conversations")
}

// SubscribeMessages follows new and updated messages of one conversation.
func (c *Client) SubscribeMessages(ctx context.Context, conversationID uuid.UUID) (*Feed, error) {
	return c.subscribe(ctx, "/ws/conversations/"+conversationID.String()+"/messages")
}

func (c *Client) subscribe(ctx context.Context, path string) (*Feed, error) {
	target := c.baseURL + path
	switch {
	case strings.HasPrefix(target, "https://"):
		target = "wss://" + strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		target = "ws://" + strings.TrimPrefix(target, "http://")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	f := &Feed{conn: conn, changes: make(chan realtime.Change, 16), done: make(chan struct{}), stopped: make(chan struct{})}
	go f.read()
	return f, nil
}

func (f *Feed) read() {
	defer close(f.stopped)
	defer close(f.changes)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			f.err = err
			return
		}
		var change realtime.Change
		if err := json.Unmarshal(data, &change); err != nil {
			continue
		}
		select {
		case f.changes <- change:
		case <-f.done:
			return
		}
	}
}

// Err reports why the feed ended once Changes is closed.
func (f *Feed) Err() error {
	return f.err
}

// Changes yields notifications until the feed is closed.
func (f *Feed) Changes() <-chan realtime.Change {
	return f.changes
}

// Close ends the subscription and waits for the reader to exit. Undelivered
// changes are discarded.
func (f *Feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		_ = f.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = f.conn.Close()
		<-f.stopped
	})
	return err
}

// ApplyMessageChange upserts a message notification into tl.
func ApplyMessageChange(tl *timeline.Messages, change realtime.Change) (bool, error) {
	if change.Table != "messages" {
		return false, nil
	}
	var msg models.Message
	if err := json.Unmarshal(change.Record, &msg); err != nil {
		return false, err
	}
	return tl.Upsert(msg), nil
}

// ApplyConversationChange upserts a conversation notification into tl.
func ApplyConversationChange(tl *timeline.Conversations, change realtime.Change) (bool, error) {
	if change.Table != "conversations" {
		return false, nil
	}
	var conv models.Conversation
	if err := json.Unmarshal(change.Record, &conv); err != nil {
		return false, err
	}
	return tl.Upsert(conv), nil
}
