// Package apisession tracks per-client read cursors for polling endpoints.
// Clients identify themselves with an opaque id, typically a UUID generated
// client-side; the cursor is the id of the last notice the client received.
package apisession

import (
	"sync"
	"time"
)

// cleanupInterval is how many Swap calls pass between lazy evictions.
const cleanupInterval = 100

type cursor struct {
	lastID     string
	lastAccess time.Time
}

// Cursors maps client ids to their last-seen notice id.
type Cursors struct {
	mu      sync.Mutex
	entries map[string]*cursor
	ttl     time.Duration
	now     func() time.Time
	calls   int
}

// New creates a store that forgets clients idle longer than ttl.
func New(ttl time.Duration) *Cursors {
	return &Cursors{
		entries: make(map[string]*cursor),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Swap records lastID for client and returns the previous cursor.
// An unknown client gets "" so it receives the full history once.
func (s *Cursors) Swap(client, lastID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%cleanupInterval == 0 {
		s.cleanupLocked()
	}

	c, ok := s.entries[client]
	if !ok {
		c = &cursor{}
		s.entries[client] = c
	}
	prev := c.lastID
	if lastID != "" {
		c.lastID = lastID
	}
	c.lastAccess = s.now()
	return prev
}

// Peek returns the cursor of client without refreshing it.
func (s *Cursors) Peek(client string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[client]
	if !ok {
		return "", false
	}
	return c.lastID, true
}

// Cleanup evicts idle clients and returns how many were removed.
func (s *Cursors) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

func (s *Cursors) cleanupLocked() int {
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, c := range s.entries {
		if c.lastAccess.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (s *Cursors) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
