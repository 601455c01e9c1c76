package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	routingKey string
	message    interface{}
	headers    map[string]string
	err        error
}

func (r *recordingPublisher) PublishJSON(_ context.Context, routingKey string, message interface{}, headers map[string]string) error {
	r.routingKey = routingKey
	r.message = message
	r.headers = headers
	return r.err
}

func TestEmitDomainEvent(t *testing.T) {
	pub := &recordingPublisher{}
	SetPublisher(pub)
	defer SetPublisher(nil)

	ctx := WithRequestID(context.Background(), "req-1")
	require.NoError(t, EmitDomainEvent(ctx, EventMessageSent, map[string]string{"id": "m1"}))

	assert.Equal(t, "messaging.message.sent", pub.routingKey)
	assert.Equal(t, "req-1", pub.headers["x-request-id"])
	envelope, ok := pub.message.(EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, EventMessageSent, envelope.EventName)
}

func TestPublishEventWithoutPublisher(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "x", nil, nil))
}

func TestPublishEventError(t *testing.T) {
	SetPublisher(&recordingPublisher{err: errors.New("closed")})
	defer SetPublisher(nil)
	assert.Error(t, PublishEvent(context.Background(), "x", nil, nil))
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	assert.Equal(t, "10.0.0.9", IPFromRequest(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", IPFromRequest(req))
}

func TestRequestIDFromRequestPrefersContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "from-header")
	assert.Equal(t, "from-header", RequestIDFromRequest(req))

	req = req.WithContext(WithRequestID(req.Context(), "from-context"))
	assert.Equal(t, "from-context", RequestIDFromRequest(req))
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/identity.v1.Directory/FindUserByEmail")
	assert.Equal(t, "identity.v1.Directory", service)
	assert.Equal(t, "FindUserByEmail", method)
}
