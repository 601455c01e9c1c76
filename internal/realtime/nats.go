package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "changes"

// NATSBroker publishes changes on core NATS subjects so every service replica
// can serve any websocket.
type NATSBroker struct {
	nc *nats.Conn
}

// NewNATSBroker connects to the NATS server at url.
func NewNATSBroker(url string) (*NATSBroker, error) {
	nc, err := nats.Connect(url, nats.Name("messaging-service"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSBroker{nc: nc}, nil
}

func subject(filter Filter) string {
	return subjectPrefix + "." + filter.Topic()
}

func (b *NATSBroker) Publish(_ context.Context, filter Filter, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.nc.Publish(subject(filter), data); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", subject(filter), err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(_ context.Context, filter Filter, handler func(Change)) (Subscription, error) {
	sub, err := b.nc.Subscribe(subject(filter), func(m *nats.Msg) {
		var change Change
		if err := json.Unmarshal(m.Data, &change); err != nil {
			log.Warn().Err(err).Str("subject", m.Subject).Msg("dropping malformed change")
			return
		}
		handler(change)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject '%s': %w", subject(filter), err)
	}
	return sub, nil
}

func (b *NATSBroker) Close() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}
