package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"fretus-backend/internal/models"

	"go.uber.org/zap"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	logger *zap.Logger
	mu     sync.RWMutex
}

// Message represents a message to broadcast to a specific user
type Message struct {
	UserID string
	Data   interface{}
}

// Envelope is the frame written to clients for every domain event.
type Envelope struct {
	Type string       `json:"type"`
	Data models.Event `json:"data"`
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client {
				close(old.send)
			}
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("✅ [WEBSOCKET] client connected",
				zap.String("user_id", client.UserID),
				zap.String("role", client.UserRole),
				zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
				close(client.send)
				h.logger.Info("🔴 [WEBSOCKET] client disconnected",
					zap.String("user_id", client.UserID),
					zap.Int("remaining", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				h.logger.Error("❌ failed to marshal message", zap.Error(err))
				continue
			}
			h.mu.Lock()
			if client, ok := h.clients[message.UserID]; ok {
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, client.UserID)
					h.logger.Warn("⚠️ client buffer full, disconnecting", zap.String("user_id", message.UserID))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUser sends a message to a specific user. Messages sent after
// the hub has stopped are dropped.
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	select {
	case h.broadcast <- &Message{UserID: userID, Data: data}:
	case <-h.done:
	}
}

// BroadcastToRole sends a message to all users with a specific role
func (h *Hub) BroadcastToRole(role string, data interface{}) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("❌ failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserRole == role {
			select {
			case client.send <- dataBytes:
			default:
			}
		}
	}
}

// Notify pushes an event to the driver and company involved and to every
// connected admin.
func (h *Hub) Notify(_ context.Context, event models.Event) {
	frame := Envelope{Type: string(event.Type), Data: event}
	if event.DriverID != "" {
		h.BroadcastToUser(event.DriverID, frame)
	}
	if event.CompanyID != "" {
		h.BroadcastToUser(event.CompanyID, frame)
	}
	h.BroadcastToRole(models.RoleAdmin, frame)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
