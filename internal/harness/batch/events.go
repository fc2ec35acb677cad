package batch

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventHub fans out batch-run progress events to connected websocket
// clients, grounded on the teacher's internal/gateway ws_control_plane.go
// hub-of-connections shape, trimmed to one-way broadcast (no client->server
// control frames beyond ping/pong).
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewEventHub constructs an EventHub ready to accept connections at its
// ServeHTTP handler.
func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast target
// until it disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Event is one progress update broadcast to every connected client.
type Event struct {
	Type         string `json:"type"` // "task_start" | "task_complete" | "run_complete"
	ExperimentID string `json:"experiment_id"`
	Trial        int    `json:"trial,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
	Resolved     bool   `json:"resolved,omitempty"`
}

// Broadcast sends event to every connected client, dropping any connection
// that fails to accept the write.
func (h *EventHub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
