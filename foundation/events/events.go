// Package events fans out node events to subscribers such as websocket
// clients. Events are plain strings raised through the event handler of the
// blockchain packages, prefixed by the component raising them
// (ex. "worker: runMiningOperation: MINING: completed").
package events

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Set of errors returned by the hub.
var (
	ErrClosed     = errors.New("events hub is closed")
	ErrSubscribed = errors.New("subscriber already exists")
	ErrUnknown    = errors.New("subscriber does not exist")
)

// subscriberBuffer is the number of events a subscriber can fall behind
// before events start being dropped for it.
const subscriberBuffer = 100

// Topic returns the component that raised the event, the text before the
// first colon. An event without a colon has no topic.
func Topic(event string) string {
	topic, _, found := strings.Cut(event, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(topic)
}

// =============================================================================

type subscriber struct {
	ch      chan string
	topics  map[string]struct{}
	dropped int
}

func (sub *subscriber) wants(event string) bool {
	if len(sub.topics) == 0 {
		return true
	}
	_, exists := sub.topics[Topic(event)]
	return exists
}

// Hub maintains the set of subscribers keyed by a unique id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

// New constructs a hub ready to accept subscribers.
func New() *Hub {
	return &Hub{
		subs: make(map[string]*subscriber),
	}
}

// Subscribe registers the id and returns the channel its events are delivered
// on. With topics provided only events raised by those components are
// delivered.
func (h *Hub) Subscribe(id string, topics ...string) (<-chan string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	if _, exists := h.subs[id]; exists {
		return nil, fmt.Errorf("id %q: %w", id, ErrSubscribed)
	}

	sub := subscriber{
		ch:     make(chan string, subscriberBuffer),
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			sub.topics[topic] = struct{}{}
		}
	}

	h.subs[id] = &sub
	return sub.ch, nil
}

// Unsubscribe closes the channel of the id and returns the number of events
// the subscriber missed because it was not keeping up.
func (h *Hub) Unsubscribe(id string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, exists := h.subs[id]
	if !exists {
		return 0, fmt.Errorf("id %q: %w", id, ErrUnknown)
	}

	delete(h.subs, id)
	close(sub.ch)

	return sub.dropped, nil
}

// Publish delivers the event to every interested subscriber. Publish never
// blocks, a subscriber with a full buffer misses the event.
func (h *Hub) Publish(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if !sub.wants(event) {
			continue
		}

		select {
		case sub.ch <- event:
		default:
			sub.dropped++
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Close closes every subscriber channel and stops accepting new subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
