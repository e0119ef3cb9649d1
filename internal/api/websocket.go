package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomw/ptt/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	levelInterval  = 50 * time.Millisecond
	clientBuffer   = 32
	maxMessageSize = 512
)

// Event is a message pushed to websocket clients
type Event struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	Duration float64 `json:"duration_seconds,omitempty"`
	Error    string  `json:"error,omitempty"`
	State    string  `json:"state,omitempty"`
	Level    float64 `json:"level,omitempty"`
}

// Hub broadcasts dictation events and periodic level updates to websocket
// clients. It implements the controller's Events interface.
type Hub struct {
	status   StatusFunc
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a websocket hub
func NewHub(status StatusFunc, log *logger.Logger) *Hub {
	return &Hub{
		status: status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The server only binds to loopback
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.Named("ws-hub"),
		clients: make(map[*client]struct{}),
	}
}

// Run pushes level updates to clients until the context is done. Should be
// started once alongside the HTTP server.
func (h *Hub) Run(done <-chan struct{}) {
	ticker := time.NewTicker(levelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.closeAll()
			return
		case <-ticker.C:
			if h.clientCount() == 0 {
				continue
			}
			st := h.status()
			h.broadcast(Event{Type: "level", State: st.State, Level: st.Level})
		}
	}
}

// ServeWS upgrades the connection and registers the client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, clientBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected",
		logger.String("remote_addr", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop serializes all writes for one client
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(event); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards inbound messages and detects disconnects
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends an event to every connected client, dropping it for
// clients whose send buffer is full.
func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
		}
	}
}

// Controller event hooks.

func (h *Hub) RecordingStarted() {
	h.broadcast(Event{Type: "recording_started"})
}

func (h *Hub) RecordingStopped(duration time.Duration) {
	h.broadcast(Event{Type: "recording_stopped", Duration: duration.Seconds()})
}

func (h *Hub) RecordingTooShort(duration time.Duration) {
	h.broadcast(Event{Type: "recording_too_short", Duration: duration.Seconds()})
}

func (h *Hub) RecordingError(err error) {
	h.broadcast(Event{Type: "recording_error", Error: err.Error()})
}

func (h *Hub) TranscriptionResult(text string, duration time.Duration) {
	h.broadcast(Event{Type: "transcription", Text: text, Duration: duration.Seconds()})
}

func (h *Hub) TranscriptionError(err error) {
	h.broadcast(Event{Type: "transcription_error", Error: err.Error()})
}
