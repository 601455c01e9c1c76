package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Hub owns one change-feed subscription per websocket connection. The
// subscription lives exactly as long as the socket.
type Hub struct {
	broker  realtime.Broker
	clients map[string]*client
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	info ConnInfo
	sub  realtime.Subscription
	send chan []byte
	once sync.Once

	// guards send against enqueue after detach
	sendMu sync.Mutex
	closed bool
}

// NewHub creates an empty hub on top of broker.
func NewHub(broker realtime.Broker) *Hub {
	return &Hub{broker: broker, clients: make(map[string]*client)}
}

// Attach subscribes conn to filter and starts pumping changes to it. It returns
// once the connection is closed by either side.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn, info ConnInfo, filter realtime.Filter) error {
	cl := &client{conn: conn, info: info, send: make(chan []byte, sendBufferSize)}

	sub, err := h.broker.Subscribe(ctx, filter, func(change realtime.Change) {
		payload, err := json.Marshal(change)
		if err != nil {
			return
		}
		cl.enqueue(payload)
	})
	if err != nil {
		return err
	}
	cl.sub = sub

	h.mu.Lock()
	h.clients[info.ConnID] = cl
	h.mu.Unlock()

	observability.IncWSActive(info.Kind)
	observability.IncWSEvent(info.Kind, "ws_connect")
	publishWSEvent(ctx, info, "ws_connect", "")

	go h.writePump(cl)
	reason := h.readPump(cl)
	h.detach(cl, reason)
	return nil
}

// Active reports the number of attached connections of kind.
func (h *Hub) Active(kind string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, cl := range h.clients {
		if cl.info.Kind == kind {
			count++
		}
	}
	return count
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(writeWait))
		cl.conn.Close()
	}
}

func (h *Hub) detach(cl *client, reason string) {
	cl.once.Do(func() {
		if err := cl.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("conn_id", cl.info.ConnID).Msg("unsubscribe failed")
		}

		h.mu.Lock()
		delete(h.clients, cl.info.ConnID)
		h.mu.Unlock()

		cl.closeSend()
		cl.conn.Close()

		observability.DecWSActive(cl.info.Kind)
		observability.IncWSEvent(cl.info.Kind, "ws_disconnect")
		publishWSEvent(context.Background(), cl.info, "ws_disconnect", reason)
	})
}

func (h *Hub) readPump(cl *client) string {
	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(cl.info.Kind, "ws_error")
				publishWSEvent(context.Background(), cl.info, "ws_error", err.Error())
			}
			return err.Error()
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-cl.send:
			if !ok {
				return
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Str("conn_id", cl.info.ConnID).Msg("websocket write error")
				cl.conn.Close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		}
	}
}

// enqueue never blocks the broker. A client that cannot keep up loses the
// notification and refetches on its next list read.
func (cl *client) enqueue(payload []byte) bool {
	cl.sendMu.Lock()
	defer cl.sendMu.Unlock()
	if cl.closed {
		return false
	}
	select {
	case cl.send <- payload:
		return true
	default:
		observability.IncWSEvent(cl.info.Kind, "ws_dropped")
		return false
	}
}

func (cl *client) closeSend() {
	cl.sendMu.Lock()
	defer cl.sendMu.Unlock()
	if !cl.closed {
		cl.closed = true
		close(cl.send)
	}
}

func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string) {
	durationMS := int64(0)
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        info.Kind,
			"resource_id": info.ResourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	_ = observability.PublishEvent(ctx, wsRoutingKey(info.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func wsRoutingKey(kind string) string {
	if kind == KindMessages {
		return "ws_events.messages"
	}
	return "ws_events.conversations"
}
