package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/models"
)

// ConversationService is the conversation and message surface the HTTP layer serves.
type ConversationService interface {
	ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (models.Conversation, error)
	CreateConversation(ctx context.Context, userID uuid.UUID, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error)
	UpdateConversationMetadata(ctx context.Context, userID, conversationID uuid.UUID, patch models.ConversationMetadata) (models.Conversation, error)
	ListParticipants(ctx context.Context, userID, conversationID uuid.UUID) ([]models.ConversationParticipant, error)
	AddParticipant(ctx context.Context, userID, conversationID uuid.UUID, email string) (models.ConversationParticipant, error)
	SendMessage(ctx context.Context, userID, conversationID uuid.UUID, payload models.EncryptedMessagePayload) (models.Message, error)
	ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	UpdateMessageMetadata(ctx context.Context, userID, messageID uuid.UUID, patch models.MetadataPatch) (models.Message, error)
	MarkRead(ctx context.Context, userID, messageID uuid.UUID) (models.Message, error)
}

// ConversationHandler serves conversation endpoints.
type ConversationHandler struct {
	service ConversationService
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(service ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.service.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	conv, err := h.service.GetConversation(c.Request.Context(), currentUser(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// CreateConversation opens a conversation between the caller and participant_ids.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req struct {
		ParticipantIDs []uuid.UUID                  `json:"participant_ids" binding:"required"`
		Metadata       *models.ConversationMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var metadata models.ConversationMetadata
	if req.Metadata != nil {
		metadata = *req.Metadata
	}
	conv, err := h.service.CreateConversation(c.Request.Context(), currentUser(c), req.ParticipantIDs, metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (h *ConversationHandler) UpdateConversationMetadata(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	var patch models.ConversationMetadata
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.service.UpdateConversationMetadata(c.Request.Context(), currentUser(c), conversationID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// ListParticipants returns participant rows including their public keys.
func (h *ConversationHandler) ListParticipants(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	parts, err := h.service.ListParticipants(c.Request.Context(), currentUser(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": parts})
}

// AddParticipant adds the user registered under email.
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	conversationID, ok := uuidParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	part, err := h.service.AddParticipant(c.Request.Context(), currentUser(c), conversationID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participant": part})
}
