package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker counts engine commands per operation.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*OpStats
}

// OpStats holds counters for a single operation.
// Fields are accessed atomically.
type OpStats struct {
	Issued int64 `json:"issued"`
	Failed int64 `json:"failed"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*OpStats),
	}
}

// getStats returns the stats object for an operation, creating it if needed.
func (t *Tracker) getStats(op string) *OpStats {
	t.mu.RLock()
	s, ok := t.stats[op]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[op]; ok {
		return s
	}
	s = &OpStats{}
	t.stats[op] = s
	return s
}

// TrackIssued increments the issued counter.
func (t *Tracker) TrackIssued(op string) {
	atomic.AddInt64(&t.getStats(op).Issued, 1)
}

// TrackFailed increments the failure counter.
func (t *Tracker) TrackFailed(op string) {
	atomic.AddInt64(&t.getStats(op).Failed, 1)
}

// Issued returns how often op was issued.
func (t *Tracker) Issued(op string) int64 {
	t.mu.RLock()
	s, ok := t.stats[op]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&s.Issued)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]OpStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]OpStats)
	for k, v := range t.stats {
		result[k] = OpStats{
			Issued: atomic.LoadInt64(&v.Issued),
			Failed: atomic.LoadInt64(&v.Failed),
		}
	}
	return result
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*OpStats)
}
