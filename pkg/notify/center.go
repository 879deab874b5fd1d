// Package notify delivers user-facing notices on the info, success and error
// channels and keeps a short history for late subscribers.
package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"iotinerary/pkg/logging"
	"iotinerary/pkg/model"
)

const defaultHistory = 50

// Center fans notices out to subscribers.
type Center struct {
	mu      sync.RWMutex
	history []model.Notice
	max     int
	subs    map[int]func(model.Notice)
	nextSub int
	now     func() time.Time
}

// NewCenter keeps up to history notices.
func NewCenter(history int) *Center {
	if history <= 0 {
		history = defaultHistory
	}
	return &Center{
		max:  history,
		subs: make(map[int]func(model.Notice)),
		now:  time.Now,
	}
}

// Info posts on the informational channel.
func (c *Center) Info(msg string) model.Notice { return c.Post(model.NoticeInfo, msg) }

// Success posts on the success channel.
func (c *Center) Success(msg string) model.Notice { return c.Post(model.NoticeSuccess, msg) }

// Error posts on the error channel.
func (c *Center) Error(msg string) model.Notice { return c.Post(model.NoticeError, msg) }

// Post records and delivers a notice. Empty messages are dropped.
func (c *Center) Post(level model.NoticeLevel, msg string) model.Notice {
	if msg == "" {
		return model.Notice{}
	}
	n := model.Notice{
		Level:   level,
		Message: msg,
		Time:    c.now(),
	}

	c.mu.Lock()
	// v7 ids are time ordered; minting them under the lock keeps history
	// sorted by id.
	n.ID = uuid.Must(uuid.NewV7()).String()
	c.history = append(c.history, n)
	if over := len(c.history) - c.max; over > 0 {
		c.history = append([]model.Notice(nil), c.history[over:]...)
	}
	subs := make([]func(model.Notice), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	slog.Debug("Notice posted", "component", "notify", "level", n.Level, "message", n.Message)
	logging.LogEvent(&n)

	for _, s := range subs {
		s(n)
	}
	return n
}

// History returns the retained notices, oldest first.
func (c *Center) History() []model.Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Notice(nil), c.history...)
}

// Since returns the retained notices posted after the notice with id. Ids
// are ordered, so a cursor whose notice already left the history still
// yields only newer notices. An empty or malformed id returns the whole
// history.
func (c *Center) Since(id string) []model.Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, err := uuid.Parse(id)
	if err != nil {
		return append([]model.Notice(nil), c.history...)
	}
	cursor := u.String()
	i := sort.Search(len(c.history), func(i int) bool { return c.history[i].ID > cursor })
	return append([]model.Notice(nil), c.history[i:]...)
}

// Subscribe registers fn; the returned func unsubscribes.
func (c *Center) Subscribe(fn func(model.Notice)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
