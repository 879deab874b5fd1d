// Package viewport republishes the map pose to shared state.
package viewport

import (
	"sync"
	"time"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/model"
)

// Sink receives settled poses. Each call replaces the previous pose wholesale.
type Sink interface {
	SetViewport(p model.Pose)
}

// LiveSink receives poses while the camera is moving.
type LiveSink interface {
	SetLivePose(p model.Pose)
}

// Publisher samples the pose on settle events.
type Publisher struct {
	sink Sink

	mu    sync.Mutex
	last  model.Pose
	count int
}

// NewPublisher creates a publisher writing to sink.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Sample reads center, zoom, bearing and pitch and writes them as one pose.
func (p *Publisher) Sample(src engine.PoseReader) model.Pose {
	pose := engine.PoseOf(src)
	p.sink.SetViewport(pose)

	p.mu.Lock()
	p.last = pose
	p.count++
	p.mu.Unlock()
	return pose
}

// Last returns the most recent published pose and how many were published.
func (p *Publisher) Last() (model.Pose, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.count
}

// Tracker republishes the live pose on continuous movement events, at most
// once per interval. Settled poses go through Publisher instead.
type Tracker struct {
	sink     LiveSink
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	lastAt time.Time
}

// NewTracker creates a tracker. A zero interval publishes every event.
func NewTracker(sink LiveSink, interval time.Duration) *Tracker {
	return &Tracker{sink: sink, interval: interval, now: time.Now}
}

// Update publishes the pose unless the last publish is within the interval.
func (t *Tracker) Update(src engine.PoseReader) bool {
	now := t.now()
	t.mu.Lock()
	if t.interval > 0 && !t.lastAt.IsZero() && now.Sub(t.lastAt) < t.interval {
		t.mu.Unlock()
		return false
	}
	t.lastAt = now
	t.mu.Unlock()

	t.sink.SetLivePose(engine.PoseOf(src))
	return true
}

// Flush publishes unconditionally so the live pose ends on the resting pose.
func (t *Tracker) Flush(src engine.PoseReader) {
	t.mu.Lock()
	t.lastAt = t.now()
	t.mu.Unlock()
	t.sink.SetLivePose(engine.PoseOf(src))
}
