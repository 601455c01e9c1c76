package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// RequestID attaches the caller's X-Request-ID (or a fresh one) to the request
// context, where audit records and domain events pick it up, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestIDFromContext(c)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), id))
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) *string {
	if id := currentUser(c); id != uuid.Nil {
		value := id.String()
		return &value
	}
	return nil
}
