package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
	"messaging-service/internal/telemetry"
)

const (
	tableConversations = "conversations"
	tableParticipants  = "conversation_participants"
	tableMessages      = "messages"
)

// ConversationFeed is the filter of a user's conversation list subscription.
func ConversationFeed(userID uuid.UUID) realtime.Filter {
	return realtime.Filter{Table: tableParticipants, Column: "user_id", Value: userID.String()}
}

// MessageFeed is the filter of a conversation's message subscription.
func MessageFeed(conversationID uuid.UUID) realtime.Filter {
	return realtime.Filter{Table: tableMessages, Column: "conversation_id", Value: conversationID.String()}
}

// notifier publishes change notifications and audit records. Failures are logged only.
type notifier struct {
	broker realtime.Broker
	audit  *telemetry.AuditEmitter
}

func (n notifier) publish(ctx context.Context, filter realtime.Filter, table string, typ realtime.ChangeType, record any) {
	if n.broker == nil {
		return
	}
	change, err := realtime.NewChange(table, typ, record)
	if err == nil {
		err = n.broker.Publish(ctx, filter, change)
	}
	if err != nil {
		observability.IncRealtimePublishError()
		log.Warn().Err(err).Str("topic", filter.Topic()).Msg("change notification dropped")
	}
}

func (n notifier) emit(ctx context.Context, event string, userID uuid.UUID, text string, payload any) {
	uid := userID.String()
	n.audit.Emit(ctx, "INFO", text, observability.RequestIDFromContext(ctx), &uid)
	if err := observability.EmitDomainEvent(ctx, event, payload); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("domain event not published")
	}
}
