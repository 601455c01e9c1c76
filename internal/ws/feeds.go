package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
	"messaging-service/internal/services"
)

const (
	KindConversations = "conversations"
	KindMessages      = "messages"
)

// MembershipChecker reports whether a user participates in a conversation.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID uuid.UUID, userID uuid.UUID) (bool, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedHandler serves the realtime change feeds. Callers are authenticated by
// the auth middleware before the upgrade.
type FeedHandler struct {
	hub     *Hub
	members MembershipChecker
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(hub *Hub, members MembershipChecker) *FeedHandler {
	return &FeedHandler{hub: hub, members: members}
}

// Conversations streams changes to the caller's conversation list.
func (h *FeedHandler) Conversations(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	h.serve(c, KindConversations, userID, userID.String(), services.ConversationFeed(userID))
}

// Messages streams new and updated messages of one conversation.
func (h *FeedHandler) Messages(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	member, err := h.members.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}
	h.serve(c, KindMessages, userID, conversationID.String(), services.MessageFeed(conversationID))
}

func (h *FeedHandler) serve(c *gin.Context, kind string, userID uuid.UUID, resourceID string, filter realtime.Filter) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	traceID := span.SpanContext().TraceID().String()
	span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        kind,
		ResourceID:  resourceID,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	if err := h.hub.Attach(ctx, conn, info, filter); err != nil {
		log.Error().Err(err).Str("kind", kind).Str("resource_id", resourceID).Msg("feed subscription failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"), time.Now().Add(writeWait))
		conn.Close()
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
