// Package monitor implements the read-only dashboard that surfaces a
// translate_volume run's live state over HTTP and WebSocket: gin for
// the HTTP surface, gorilla/websocket for the live push, golang-jwt for
// session auth (internal/security), and internal/storage for run
// history. It never mutates orchestrator state directly — the one
// exception is an authenticated "retry volume" action that shells out
// to the translate CLI, the same way an operator would from a
// terminal.
package monitor

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.lnmtl/internal/orchestrator"
)

// Client is one connected dashboard WebSocket session.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub fans out live progress snapshots to every connected dashboard
// client. Adapted from the teacher's pkg/websocket.Hub: the teacher
// hub reacted to an internal event bus; this hub has nothing to react
// to (the orchestrator doesn't publish events), so it polls
// orchestrator.Progress() on a ticker instead and pushes a snapshot
// whenever one changes.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	orch     *orchestrator.Orchestrator
	interval time.Duration
}

// NewHub creates a hub that polls orch's live progress every interval.
func NewHub(orch *orchestrator.Orchestrator, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		orch:       orch,
		interval:   interval,
	}
}

// Run drives client (de)registration and the progress-poll broadcast
// loop. Blocks; call in its own goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastPercent float64 = -1
	var lastStatus string

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case <-ticker.C:
			tracker := h.orch.Progress()
			if tracker == nil {
				continue
			}
			snapshot := tracker.Snapshot()
			if snapshot.PercentComplete == lastPercent && snapshot.Status == lastStatus {
				continue
			}
			lastPercent = snapshot.PercentComplete
			lastStatus = snapshot.Status

			data, err := json.Marshal(snapshot)
			if err != nil {
				continue
			}
			h.Broadcast(data)
		}
	}
}

// Register admits a client to the broadcast set.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes a client from the broadcast set.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Broadcast pushes message to every connected client, dropping it for
// any client whose send buffer is full rather than blocking the hub.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// ClientCount reports how many dashboard sessions are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReadPump drains client-originated frames purely to detect
// disconnects; the dashboard protocol is push-only.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// WritePump drains c.Send to the socket, coalescing any messages
// queued behind the first into one WebSocket frame.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		if _, err := w.Write(message); err != nil {
			return
		}

		n := len(c.Send)
		for i := 0; i < n; i++ {
			if _, err := w.Write([]byte{'\n'}); err != nil {
				return
			}
			if _, err := w.Write(<-c.Send); err != nil {
				return
			}
		}

		if err := w.Close(); err != nil {
			return
		}
	}
}
