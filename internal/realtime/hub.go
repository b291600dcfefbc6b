package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSendBuffer is the per-client outbound buffer used when none is configured
const DefaultSendBuffer = 64

// Client is one registered connection. Messages queued for it are read from
// Send by the connection's writer; the channel is closed on Unregister.
type Client struct {
	ID          string
	ConnectedAt time.Time

	send chan []byte
}

// Send returns the outbound message channel
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub is the connection registry. It is the only owner of the client map.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	sendBuffer int

	totalConnections atomic.Uint64
	delivered        atomic.Uint64
	dropped          atomic.Uint64

	logger *slog.Logger
}

// NewHub creates an empty hub. sendBuffer bounds each client's outbound queue.
func NewHub(sendBuffer int, logger *slog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		clients:    make(map[string]*Client),
		sendBuffer: sendBuffer,
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Register adds a new client with a fresh id
func (h *Hub) Register() *Client {
	client := &Client{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now().UTC(),
		send:        make(chan []byte, h.sendBuffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	active := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	h.logger.Info("client connected", "client_id", client.ID, "active_clients", active)
	return client
}

// Unregister removes the client and closes its outbound channel. Tasks the
// client owns are not touched. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(client.send)
	}
	active := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("client disconnected", "client_id", id, "active_clients", active)
	}
}

// Deliver queues msg for the client without blocking. It returns false, and
// counts the message as dropped, when the client is not connected or its
// buffer is full.
func (h *Hub) Deliver(clientID string, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		h.dropped.Add(1)
		return false
	}

	select {
	case client.send <- msg:
		h.delivered.Add(1)
		return true
	default:
		h.dropped.Add(1)
		h.logger.Warn("client send buffer full, dropping message", "client_id", clientID)
		return false
	}
}

// Connected reports whether a client with id is registered
func (h *Hub) Connected(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}

// ActiveClients returns the number of registered clients
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConnections returns the number of clients ever registered
func (h *Hub) TotalConnections() uint64 {
	return h.totalConnections.Load()
}

// Delivered returns the number of messages queued to clients
func (h *Hub) Delivered() uint64 {
	return h.delivered.Load()
}

// Dropped returns the number of messages that could not be queued
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close unregisters every client, which makes their sessions wind down
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}
