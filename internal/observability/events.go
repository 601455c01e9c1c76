package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

const (
	EventConversationCreated = "conversation.created"
	EventParticipantAdded    = "conversation.participant_added"
	EventMessageSent         = "message.sent"
	EventContactAdded        = "contact.added"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// TraceIDFromContext returns the active span's trace id, if any.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

type requestIDKey struct{}

// WithRequestID stores the inbound request id for downstream event headers.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// EmitDomainEvent publishes a domain event envelope with request and trace headers.
func EmitDomainEvent(ctx context.Context, name string, payload interface{}) error {
	envelope := EventEnvelope{EventType: "domain_event", EventName: name, Payload: payload}
	headers := BuildHeaders(RequestIDFromContext(ctx), TraceIDFromContext(ctx))
	return PublishEvent(ctx, "messaging."+name, envelope, headers)
}
