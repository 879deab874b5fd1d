package mockengine

import (
	"errors"
	"sync"
	"time"

	"iotinerary/pkg/engine"
)

// Factory builds mock maps. With AutoLoad set, each map emits style.load and
// load after the delay, delivered through Post.
type Factory struct {
	AutoLoad time.Duration
	// Post delivers auto-load events onto the owner's event loop.
	Post func(func())
	// FailWith makes construction fail.
	FailWith error

	mu   sync.Mutex
	maps []*Map
}

// New implements engine.Factory.
func (f *Factory) New(container string, opts engine.Options) (engine.Map, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	if container == "" {
		return nil, engine.ErrNoContainer
	}

	m := New(container, opts)
	f.mu.Lock()
	f.maps = append(f.maps, m)
	f.mu.Unlock()

	if f.AutoLoad > 0 {
		post := f.Post
		if post == nil {
			post = func(fn func()) { fn() }
		}
		time.AfterFunc(f.AutoLoad, func() {
			post(func() {
				if m.Removed() {
					return
				}
				m.StartStyle()
				m.CompleteLoad()
			})
		})
	}
	return m, nil
}

// Last returns the most recently built map.
func (f *Factory) Last() (*Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.maps) == 0 {
		return nil, errors.New("no map constructed")
	}
	return f.maps[len(f.maps)-1], nil
}

// Count returns the number of maps built.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.maps)
}
