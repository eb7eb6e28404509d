package handlers

import (
	"sync"
	"sync/atomic"

	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/sirupsen/logrus"
)

// Client is one live websocket connection as seen by the hub.
type Client struct {
	ID      string
	OutChan chan race.Event
	// Evict closes the underlying connection. It must not block.
	Evict func()

	overflowed atomic.Bool
}

// NewClient allocates a client with a bounded outbound buffer.
func NewClient(id string, buffer int, evict func()) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{ID: id, OutChan: make(chan race.Event, buffer), Evict: evict}
}

// Overflowed reports whether the hub evicted c for falling behind.
func (c *Client) Overflowed() bool {
	return c.overflowed.Load()
}

// Hub routes outbound events to connections and keeps the per-room channel
// subscriptions. It implements race.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
	log     logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
		log:     logger,
	}
}

// Register makes c reachable by SendTo and room broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister forgets connID and drops any subscriptions it still holds.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for roomID, subs := range h.rooms {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Subscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]struct{})
		h.rooms[roomID] = subs
	}
	subs[connID] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, connID)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) SendTo(connID string, ev race.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliver(c, ev)
	}
}

func (h *Hub) Broadcast(roomID string, ev race.Event) {
	h.BroadcastExcept(roomID, "", ev)
}

func (h *Hub) BroadcastExcept(roomID, exceptConnID string, ev race.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		if connID == exceptConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			h.deliver(c, ev)
		}
	}
}

// Subscribers reports the connections currently on roomID's channel.
func (h *Hub) Subscribers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		out = append(out, connID)
	}
	return out
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver never blocks. A client whose buffer is full is evicted instead of
// silently losing the event.
func (h *Hub) deliver(c *Client, ev race.Event) {
	select {
	case c.OutChan <- ev:
	default:
		if !c.overflowed.CompareAndSwap(false, true) {
			return
		}
		h.log.WithFields(logrus.Fields{"conn": c.ID, "event": ev.Type}).Warn("outbound buffer full, closing connection")
		if c.Evict != nil {
			c.Evict()
		}
	}
}
