package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/models"
)

// ContactService is the contact-book surface the HTTP layer serves.
type ContactService interface {
	ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error)
	FindUserByEmail(ctx context.Context, userID uuid.UUID, email string) (models.UserProfile, error)
	AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error)
	UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (models.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error
}

// KeyService stores a user's long-term public key.
type KeyService interface {
	StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey string) (int64, error)
}

// ContactHandler serves contact and key endpoints.
type ContactHandler struct {
	contacts ContactService
	keys     KeyService
}

// NewContactHandler builds a ContactHandler.
func NewContactHandler(contacts ContactService, keys KeyService) *ContactHandler {
	return &ContactHandler{contacts: contacts, keys: keys}
}

func (h *ContactHandler) ListContacts(c *gin.Context) {
	status := models.ContactStatus(c.Query("status"))
	contacts, err := h.contacts.ListContacts(c.Request.Context(), currentUser(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// LookupUser resolves ?email= to a profile with its public key.
func (h *ContactHandler) LookupUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	user, err := h.contacts.FindUserByEmail(c.Request.Context(), currentUser(c), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *ContactHandler) AddContact(c *gin.Context) {
	var req struct {
		ContactUserID uuid.UUID `json:"contact_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := h.contacts.AddContact(c.Request.Context(), currentUser(c), req.ContactUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

func (h *ContactHandler) UpdateContactStatus(c *gin.Context) {
	contactID, ok := uuidParam(c, "contact_id")
	if !ok {
		return
	}
	var req struct {
		Status models.ContactStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := h.contacts.UpdateContactStatus(c.Request.Context(), currentUser(c), contactID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	contactID, ok := uuidParam(c, "contact_id")
	if !ok {
		return
	}
	if err := h.contacts.DeleteContact(c.Request.Context(), currentUser(c), contactID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StorePublicKey publishes the caller's public key and refreshes it on
// every conversation they participate in.
func (h *ContactHandler) StorePublicKey(c *gin.Context) {
	var req struct {
		PublicKey string `json:"public_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.keys.StorePublicKey(c.Request.Context(), currentUser(c), req.PublicKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_participants": updated})
}
