// Package broadcast distributes committed sample events to presentation
// subscribers. The engine publishes every merged sample; any number of
// consumers (TUI, progress printers) subscribe with their own buffered
// channel. Sends never block a worker: a full subscriber channel drops
// the event, which only delays that subscriber's view of a cell until
// the next sample refreshes it.
package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// DefaultBuffer is the per-subscriber channel capacity used when a
// subscriber asks for none.
const DefaultBuffer = 1024

// Subscriber is one consumer of the sample event stream.
type Subscriber struct {
	ID     string
	Events chan types.SampleEvent
}

// Broadcaster fans sample events out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a new consumer with the given channel buffer.
// Returns nil if the broadcaster is already closed.
func (b *Broadcaster) Subscribe(buffer int) *Subscriber {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan types.SampleEvent, buffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify delivers an event to every subscriber without blocking.
func (b *Broadcaster) Notify(ev types.SampleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- ev:
		default:
			// Subscriber is behind; drop.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel and rejects further use.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}
