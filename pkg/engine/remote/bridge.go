// Package remote drives a MapLibre page over a websocket. The page renders;
// this side keeps a mirror of the map state so reads never block on the
// network.
package remote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/logging"
	"iotinerary/pkg/tracker"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// ErrBusy is returned when a map is requested while another one is still live.
var ErrBusy = errors.New("bridge already hosts a map")

// Poster runs work on the view's event loop.
type Poster interface {
	Post(fn func()) bool
}

// Bridge is an engine.Factory backed by a single browser page. Commands
// issued before the page attaches are replayed from the mirror when it does.
// A newly attached page replaces the previous one.
type Bridge struct {
	post     Poster
	logger   *slog.Logger
	upgrader websocket.Upgrader
	stats    *tracker.Tracker

	// OnResize is called on the event loop when the page reports a
	// container resize.
	OnResize func()

	mu      sync.Mutex
	current *Map
	client  *client
}

// NewBridge creates a bridge that delivers page events through post.
func NewBridge(post Poster) *Bridge {
	return &Bridge{
		post:   post,
		logger: slog.With("component", "engine-bridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		stats: tracker.New(),
	}
}

// New implements engine.Factory.
func (b *Bridge) New(container string, opts engine.Options) (engine.Map, error) {
	if container == "" {
		return nil, engine.ErrNoContainer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil && !b.current.removed {
		return nil, ErrBusy
	}
	m := newMap(b, container, opts)
	b.current = m
	b.sendLocked(m.constructLocked())
	return m, nil
}

// Connected reports whether a page is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client != nil
}

// Stats returns per-command counters.
func (b *Bridge) Stats() map[string]tracker.OpStats {
	return b.stats.Snapshot()
}

// ServeHTTP upgrades the request and attaches the page.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("Upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.client != nil {
		b.logger.Info("Replacing attached page", "remote", b.client.conn.RemoteAddr().String())
		b.client.close()
	}
	b.client = c
	replayed := 0
	if b.current != nil && !b.current.removed {
		for _, cmd := range b.current.attachLocked() {
			b.sendLocked(cmd)
			replayed++
		}
	}
	b.mu.Unlock()

	b.logger.Info("Page attached", "remote", conn.RemoteAddr().String(), "replayed", replayed)
	go c.writePump()
	b.readPump(c)

	b.mu.Lock()
	if b.client == c {
		b.client = nil
	}
	b.mu.Unlock()
	c.close()
	b.logger.Info("Page detached", "remote", conn.RemoteAddr().String())
}

// sendLocked queues cmd for the attached page. Without a page the command
// is dropped; the mirror already holds its effect. b.mu must be held.
func (b *Bridge) sendLocked(cmd command) {
	b.stats.TrackIssued(cmd.Op)
	if b.client == nil {
		return
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		b.stats.TrackFailed(cmd.Op)
		b.logger.Error("Failed to encode command", "op", cmd.Op, "error", err)
		return
	}
	logging.Trace(b.logger, "Command", "op", cmd.Op, "id", cmd.ID)
	select {
	case b.client.send <- data:
	default:
		b.stats.TrackFailed(cmd.Op)
		b.logger.Warn("Page too slow, dropping connection")
		b.client.close()
		b.client = nil
	}
}

func (b *Bridge) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("Page read failed", "error", err)
			}
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("Ignoring malformed page event", "error", err)
			continue
		}
		logging.Trace(b.logger, "Event", "event", msg.Event)
		if !b.post.Post(func() { b.dispatch(msg) }) {
			return
		}
	}
}

// dispatch runs on the event loop.
func (b *Bridge) dispatch(msg message) {
	b.mu.Lock()
	m := b.current
	if m == nil || m.removed {
		b.mu.Unlock()
		return
	}
	for _, cmd := range m.applyLocked(msg) {
		b.sendLocked(cmd)
	}
	b.mu.Unlock()

	switch msg.Event {
	case eventCommandError:
		b.stats.TrackFailed(msg.Op)
		b.logger.Warn("Page rejected command", "op", msg.Op, "id", msg.ID, "error", msg.Error)
	case eventMarkerClick:
		if click := m.clickHandler(msg.MarkerID); click != nil {
			click()
		}
	case eventContainerResize:
		if b.OnResize != nil {
			b.OnResize()
		}
	default:
		m.emitter.Emit(msg.engineEvent())
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
