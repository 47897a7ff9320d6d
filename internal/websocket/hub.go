// Package websocket streams domain events to connected family devices so
// a guardian's approval shows up on the dependent's screen without polling.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ho8ae/growpromise-sub001/internal/event"
)

// Hub fans events out to every connected client. Events arrive from the
// bus subscription started by Run.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	bus     *event.Bus
	logger  *slog.Logger
}

func NewHub(bus *event.Bus, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		bus:     bus,
		logger:  logger,
	}
}

// Run consumes the event bus and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ch := h.bus.Subscribe(64)
	for {
		select {
		case ev := <-ch:
			h.broadcast(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "kind", ev.Kind, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; drop rather than stall the rest
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
