package engine

import (
	"sync"

	"github.com/google/uuid"
)

type listener struct {
	id   ListenerID
	typ  EventType
	h    Handler
	once bool
}

// Emitter is a listener registry shared by engine adapters.
// Handlers are invoked outside the lock, in registration order.
type Emitter struct {
	mu        sync.Mutex
	listeners []listener
}

// On registers h for t.
func (e *Emitter) On(t EventType, h Handler) ListenerID {
	return e.add(t, h, false)
}

// Once registers h for the next t only.
func (e *Emitter) Once(t EventType, h Handler) ListenerID {
	return e.add(t, h, true)
}

func (e *Emitter) add(t EventType, h Handler, once bool) ListenerID {
	id := ListenerID(uuid.NewString())
	e.mu.Lock()
	e.listeners = append(e.listeners, listener{id: id, typ: t, h: h, once: once})
	e.mu.Unlock()
	return id
}

// Off removes a listener. Unknown ids are ignored.
func (e *Emitter) Off(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to current listeners of ev.Type.
// A handler removed by an earlier handler of the same emission is skipped,
// and a Once handler runs at most once even under nested emissions.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	var batch []listener
	for _, l := range e.listeners {
		if l.typ == ev.Type {
			batch = append(batch, l)
		}
	}
	e.mu.Unlock()

	for _, l := range batch {
		if !e.claim(l) {
			continue
		}
		l.h(ev)
	}
}

// claim reports whether l is still registered, removing it if it is a
// Once listener.
func (e *Emitter) claim(l listener) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, cur := range e.listeners {
		if cur.id != l.id {
			continue
		}
		if l.once {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
		}
		return true
	}
	return false
}

// Count returns the number of registered listeners.
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Clear removes every listener.
func (e *Emitter) Clear() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}
