package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// NewClient returns a client with a buffered event channel.
func NewClient(id, userID string) *Client {
	return &Client{ID: id, UserID: userID, Events: make(chan Event, 64)}
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	zap.L().Debug("sse client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a client from the hub and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		zap.L().Debug("sse client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)))
	}
}

// Connected number of open streams.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser delivers event to every stream of userID. Full buffers drop the event.
func (h *Hub) SendToUser(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Events <- event:
			sent++
		default:
			zap.L().Warn("sse buffer full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("event", event.EventType))
		}
	}
	return sent
}

// PublishToUser marshals payload as JSON and sends it to the user's streams.
func (h *Hub) PublishToUser(userID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("sse payload marshal failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	h.SendToUser(userID, Event{EventType: eventType, Data: string(data)})
}
