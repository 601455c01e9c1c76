package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
)

// ListMessages returns one page of a conversation, oldest first.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), currentUser(c), conversationID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores an encrypted message. The server never sees plaintext.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	var payload models.EncryptedMessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), currentUser(c), conversationID, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ConversationHandler) UpdateMessageMetadata(c *gin.Context) {
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	var patch models.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.service.UpdateMessageMetadata(c.Request.Context(), currentUser(c), messageID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkRead records the caller in the message's read receipts.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	msg, err := h.service.MarkRead(c.Request.Context(), currentUser(c), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
