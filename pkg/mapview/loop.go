package mapview

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned when work is posted to a stopped loop.
var ErrLoopStopped = errors.New("event loop stopped")

// Dispatcher runs work on the goroutine that owns the view.
type Dispatcher interface {
	Post(fn func()) bool
}

// Inline runs work immediately on the caller's goroutine.
type Inline struct{}

// Post runs fn.
func (Inline) Post(fn func()) bool {
	fn()
	return true
}

// Loop serializes work on a single goroutine. Engine events, timers and
// HTTP-originated commands all pass through it, so view state needs no locks.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with a queue of the given size.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run processes work until ctx is cancelled. Pending work is dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post enqueues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
