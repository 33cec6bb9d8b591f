// Package events fans change notifications out to connected clients.
package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types.
const (
	BookingsChanged = "bookings-changed"
)

// Event is the wire payload sent to clients.
type Event struct {
	Type   string `json:"type"`
	Origin string `json:"origin,omitempty"`
}

// Relay forwards locally raised events to other processes.
type Relay interface {
	Publish(Event) error
}

// Observer receives hub counters. Nil-safe.
type Observer interface {
	ClientsChanged(n int)
	Broadcasted(eventType string)
	Dropped(eventType string)
}

// Client is one registered connection.
type Client struct {
	ID   uuid.UUID
	Kind string
	Send chan []byte
}

// Hub is a registry of live connections keyed by connection id. It is safe
// for concurrent use.
type Hub struct {
	log    *zap.Logger
	nodeID string
	buffer int

	mu       sync.RWMutex
	clients  map[uuid.UUID]*Client
	relay    Relay
	observer Observer
}

// NewHub builds an empty hub. buffer is the per-client queue length.
func NewHub(log *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		log:     log.With(zap.String("component", "events")),
		nodeID:  uuid.NewString(),
		buffer:  buffer,
		clients: make(map[uuid.UUID]*Client),
	}
}

// NodeID identifies this hub on a shared relay channel.
func (h *Hub) NodeID() string { return h.nodeID }

// SetRelay attaches a cross-process relay.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// SetObserver attaches a metrics observer.
func (h *Hub) SetObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = o
}

// Register adds a new connection and returns its client handle.
func (h *Hub) Register(kind string) *Client {
	c := &Client{ID: uuid.New(), Kind: kind, Send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	obs := h.observer
	h.mu.Unlock()

	if obs != nil {
		obs.ClientsChanged(n)
	}
	h.log.Debug("client registered", zap.String("client", c.ID.String()), zap.String("kind", kind), zap.Int("clients", n))
	return c
}

// Unregister removes a connection and closes its queue. Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
		close(c.Send)
	}
	n := len(h.clients)
	obs := h.observer
	h.mu.Unlock()

	if ok {
		if obs != nil {
			obs.ClientsChanged(n)
		}
		h.log.Debug("client unregistered", zap.String("client", c.ID.String()), zap.Int("clients", n))
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers an event of eventType to every local client and hands
// it to the relay, if any.
func (h *Hub) Broadcast(eventType string) {
	ev := Event{Type: eventType, Origin: h.nodeID}
	h.deliver(ev)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Publish(ev); err != nil {
			h.log.Warn("relay publish failed", zap.String("type", eventType), zap.Error(err))
		}
	}
}

// deliverRemote handles an event received from the relay. Echoes of this
// hub's own events are ignored since they were delivered locally already.
func (h *Hub) deliverRemote(ev Event) {
	if ev.Origin == h.nodeID {
		return
	}
	h.deliver(ev)
}

// deliver writes without blocking. A client whose queue is full misses the event.
func (h *Hub) deliver(ev Event) {
	payload, err := json.Marshal(Event{Type: ev.Type})
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.Send <- payload:
		default:
			h.log.Warn("client queue full, dropping event", zap.String("client", id.String()), zap.String("type", ev.Type))
			if h.observer != nil {
				h.observer.Dropped(ev.Type)
			}
		}
	}
	if h.observer != nil {
		h.observer.Broadcasted(ev.Type)
	}
}

// CloseAll unregisters every connection. Streams see their queue closed and return.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.Send)
	}
	obs := h.observer
	h.mu.Unlock()

	if obs != nil {
		obs.ClientsChanged(0)
	}
}
