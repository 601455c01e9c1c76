package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/services"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrNotAuthenticated, http.StatusUnauthorized},
	{services.ErrNotAParticipant, http.StatusForbidden},
	{services.ErrInvalidArgument, http.StatusBadRequest},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrConversationNotFound, http.StatusNotFound},
	{services.ErrMessageNotFound, http.StatusNotFound},
	{services.ErrContactNotFound, http.StatusNotFound},
	{services.ErrAlreadyParticipant, http.StatusConflict},
	{services.ErrContactExists, http.StatusConflict},
	{services.ErrStoreUnavailable, http.StatusServiceUnavailable},
}

// respondError maps a service error onto a status code and a client-safe message.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		msg := e.err.Error()
		if e.err == services.ErrInvalidArgument {
			msg = err.Error()
		}
		c.JSON(e.status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func currentUser(c *gin.Context) uuid.UUID {
	if val, ok := c.Get("userID"); ok {
		if id, ok := val.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
