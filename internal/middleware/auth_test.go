package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type staticValidator struct {
	token string
	id    uuid.UUID
}

func (s staticValidator) ValidateToken(token string) (uuid.UUID, error) {
	if token != s.token {
		return uuid.Nil, errors.New("bad token")
	}
	return s.id, nil
}

func newRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(v))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet("userID").(uuid.UUID).String())
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	id := uuid.New()
	r := newRouter(staticValidator{token: "good", id: id})

	cases := []struct {
		name   string
		url    string
		header  string
		upgrade bool
		status  int
	}{
		{"missing", "/me", "", false, http.StatusUnauthorized},
		{"malformed header", "/me", "Token good", false, http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", false, http.StatusUnauthorized},
		{"header", "/me", "Bearer good", false, http.StatusOK},
		{"query on plain request", "/me?token=good", "", false, http.StatusUnauthorized},
		{"query on websocket upgrade", "/me?token=good", "", true, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, id.String(), w.Body.String())
			}
		})
	}
}
