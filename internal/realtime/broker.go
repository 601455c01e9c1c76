// Package realtime fans out row-level change notifications to scoped subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
)

// Filter selects the changes of one table whose column equals value.
type Filter struct {
	Table  string
	Column string
	Value  string
}

// Topic is the routing key for the filter.
func (f Filter) Topic() string {
	return fmt.Sprintf("%s.%s.%s", f.Table, f.Column, f.Value)
}

// Change is a whole-row snapshot after an insert or update.
type Change struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	Record json.RawMessage `json:"record"`
}

// NewChange marshals record into a change notification.
func NewChange(table string, typ ChangeType, record any) (Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Change{}, err
	}
	return Change{Table: table, Type: typ, Record: raw}, nil
}

// Subscription is released exactly once by its owner.
type Subscription interface {
	Unsubscribe() error
}

// Broker delivers changes published on a filter to every handler subscribed to it.
// Delivery is at-least-once at best; receivers upsert by identity.
type Broker interface {
	Publish(ctx context.Context, filter Filter, change Change) error
	Subscribe(ctx context.Context, filter Filter, handler func(Change)) (Subscription, error)
	Close() error
}

// MemoryBroker is an in-process Broker.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(Change)
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[uint64]func(Change))}
}

func (b *MemoryBroker) Publish(_ context.Context, filter Filter, change Change) error {
	b.mu.RLock()
	handlers := make([]func(Change), 0, len(b.subs[filter.Topic()]))
	for _, h := range b.subs[filter.Topic()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, filter Filter, handler func(Change)) (Subscription, error) {
	topic := filter.Topic()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]func(Change))
	}
	b.subs[topic][id] = handler

	return &memorySubscription{broker: b, topic: topic, id: id}, nil
}

// Subscribers reports the number of live handlers on filter.
func (b *MemoryBroker) Subscribers(filter Filter) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[filter.Topic()])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.subs = make(map[string]map[uint64]func(Change))
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroker) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.subs[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, topic)
		}
	}
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	id     uint64
	once   sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() { s.broker.remove(s.topic, s.id) })
	return nil
}
