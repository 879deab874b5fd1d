package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"iotinerary/pkg/model"
	"iotinerary/pkg/notify"
	"iotinerary/pkg/session"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamBuffer     = 64
)

// StreamMessage is one websocket frame to observers.
type StreamMessage struct {
	Type   string             `json:"type"` // "state" or "notice"
	Kind   session.ChangeKind `json:"kind,omitempty"`
	State  *session.Snapshot  `json:"state,omitempty"`
	Notice *model.Notice      `json:"notice,omitempty"`
}

// StreamHandler pushes state changes and notices to websocket observers.
// Slow observers are dropped rather than blocking the publisher.
type StreamHandler struct {
	upgrader websocket.Upgrader
	store    *session.Manager
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	unsubs  []func()
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewStreamHandler subscribes to store and notices.
func NewStreamHandler(store *session.Manager, notices *notify.Center) *StreamHandler {
	h := &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		store:   store,
		logger:  slog.With("component", "stream"),
		clients: make(map[*streamClient]struct{}),
	}
	h.unsubs = append(h.unsubs,
		store.Subscribe(func(ch session.Change) {
			snap := ch.Snapshot
			h.broadcast(StreamMessage{Type: "state", Kind: ch.Kind, State: &snap})
		}),
		notices.Subscribe(func(n model.Notice) {
			h.broadcast(StreamMessage{Type: "notice", Notice: &n})
		}),
	)
	return h
}

// ServeHTTP upgrades the connection and sends the current state first.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Upgrade failed", "error", err)
		return
	}
	c := &streamClient{conn: conn, send: make(chan []byte, streamBuffer), done: make(chan struct{})}

	snap := h.store.Snapshot()
	if data, err := json.Marshal(StreamMessage{Type: "state", State: &snap}); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Clients returns the number of connected observers.
func (h *StreamHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes and disconnects every observer.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (h *StreamHandler) broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode stream message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow observer", "remote", c.conn.RemoteAddr().String())
			c.close()
			delete(h.clients, c)
		}
	}
}

// readPump only watches for close and pong frames.
func (h *StreamHandler) readPump(c *streamClient) {
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
