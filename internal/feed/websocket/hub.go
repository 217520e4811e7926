package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
)

// Message types.
const (
	MessageTypeAlarm        = "alarm"
	MessageTypeRecentAlarms = "recent_alarms"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// broadcastBuffer is the number of pending broadcasts before new ones are dropped.
const broadcastBuffer = 256

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub maintains the active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Serve must run for clients to be attached.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Serve runs the hub until ctx is canceled, then disconnects every client.
func (h *Hub) Serve(ctx context.Context) error {
	ctx = logger.WithName(ctx, "websocket-hub")

	defer h.stopOnce.Do(func() {
		h.closeAllClients(ctx)
		close(h.done)
	})

	for {
		// Shutdown wins over pending work.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			metrics.WSConnections.Inc()
			logger.DebugKV(ctx, "Websocket client connected", "client_id", client.id, "total_clients", total)
		case client := <-h.unregister:
			h.remove(ctx, client)
		case message := <-h.broadcast:
			h.broadcastToClients(ctx, message)
		}
	}
}

// String names the hub in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// Deliver queues an alarm for every client. It never blocks: when the
// broadcast buffer is full the message is dropped.
func (h *Hub) Deliver(ctx context.Context, fired alarm.Alarm) error {
	h.Broadcast(ctx, Message{Type: MessageTypeAlarm, Data: fired})

	return nil
}

// Broadcast queues a message for every client without blocking.
func (h *Hub) Broadcast(ctx context.Context, message Message) {
	select {
	case h.broadcast <- message:
	default:
		logger.WarnKV(ctx, "Broadcast channel full, dropping message", "message_type", message.Type)
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// attach hands a client to the hub. It fails once the hub stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// detach removes a client, a no-op once the hub stopped.
func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(ctx context.Context, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)
	metrics.WSConnections.Dec()
	logger.DebugKV(ctx, "Websocket client disconnected", "client_id", client.id, "total_clients", len(h.clients))
}

func (h *Hub) broadcastToClients(ctx context.Context, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Slow client: disconnect rather than block everyone else.
			close(client.send)
			delete(h.clients, client)
			metrics.WSConnections.Dec()
			logger.WarnKV(ctx, "Websocket client too slow, disconnected", "client_id", client.id)
		}
	}
}

func (h *Hub) closeAllClients(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}

	logger.InfoKV(ctx, "Websocket hub stopped", "clients_closed", len(clients))
}

// sortedClients returns the clients in connection order. Callers hold mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	return clients
}
