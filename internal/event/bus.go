package event

import (
	"log/slog"
	"sync"
)

// Bus is an in-process publish/subscribe fan-out. Delivery is best-effort:
// a subscriber with a full buffer misses the event rather than blocking
// the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe returns a channel receiving every event published after the
// call. buffer bounds how far behind the subscriber may fall.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped, subscriber behind", "kind", ev.Kind, "event_id", ev.ID)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
