// Package changefeed broadcasts entity change notifications to in-process
// subscribers such as a UI adapter or the backup writer.
package changefeed

import (
	"fmt"
	"log/slog"
	"sync"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message describes one change to one record.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Subscription receives messages on C until Close is called.
type Subscription struct {
	C    <-chan Message
	ch   chan Message
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub fans messages out to subscribers. A nil *Hub is valid and drops everything.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	ch := make(chan Message, buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
	h.mu.Unlock()
}

// Publish delivers msg to every subscriber without blocking.
func (h *Hub) Publish(msg Message) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			// Subscriber buffer full; drop the message.
			h.logger.Debug("changefeed subscriber full, dropping", "type", msg.Type)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
