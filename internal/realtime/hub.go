package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event types pushed to connected clients.
const (
	EventTimeLogStarted      = "time_log_started"
	EventTimeLogStopped      = "time_log_stopped"
	EventTimeLogPaused       = "time_log_paused"
	EventDailySummaryUpdated = "daily_summary_updated"
	EventTaskCreated         = "task_created"
	EventTaskUpdated         = "task_updated"
	EventTaskDeleted         = "task_deleted"
)

// Event is the JSON envelope written to websocket clients.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active user connections and broadcasts events to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub()
	})
	return hubInstance
}

func NewHub() *Hub {
	return &Hub{userIDToClients: make(map[string]map[Client]struct{})}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Clients returns how many connections the user has open.
func (h *Hub) Clients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIDToClients[userID])
}

// Broadcast sends a message to all clients of a user. Failed writes are left
// for the owning handler to clean up.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.userIDToClients[userID]))
	for c := range h.userIDToClients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(message)
	}
}

// Publish encodes an event and broadcasts it to the user.
func (h *Hub) Publish(userID, eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		log.Printf("realtime: encode %s event: %v", eventType, err)
		return
	}
	h.Broadcast(userID, msg)
}
