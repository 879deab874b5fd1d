package mockengine

import (
	"iotinerary/pkg/engine"
	"iotinerary/pkg/model"
	"iotinerary/pkg/tracker"
)

// StartStyle marks the style as loaded and emits style.load.
func (m *Map) StartStyle() {
	m.mu.Lock()
	m.styleLoaded = true
	m.mu.Unlock()
	m.Emit(engine.Event{Type: engine.EventStyleLoad})
}

// CompleteLoad emits load.
func (m *Map) CompleteLoad() {
	m.Emit(engine.Event{Type: engine.EventLoad})
}

// Fail emits an error event.
func (m *Map) Fail(err error) {
	m.Emit(engine.Event{Type: engine.EventError, Err: err})
}

// Emit delivers an arbitrary event to registered handlers.
func (m *Map) Emit(ev engine.Event) {
	m.emitter.Emit(ev)
}

// JumpTo moves the camera as a user gesture would, emitting the continuous
// events followed by the settle events.
func (m *Map) JumpTo(p model.Pose) {
	m.mu.Lock()
	prev := m.pose
	m.pose = p
	m.mu.Unlock()

	m.Emit(engine.Event{Type: engine.EventMove})
	if prev.Zoom != p.Zoom {
		m.Emit(engine.Event{Type: engine.EventZoom})
	}
	if prev.Bearing != p.Bearing {
		m.Emit(engine.Event{Type: engine.EventRotate})
	}
	if prev.Pitch != p.Pitch {
		m.Emit(engine.Event{Type: engine.EventPitch})
	}
	m.Emit(engine.Event{Type: engine.EventMoveEnd})
	if prev.Zoom != p.Zoom {
		m.Emit(engine.Event{Type: engine.EventZoomEnd})
	}
}

// SetSize changes the canvas size used for Bounds.
func (m *Map) SetSize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
}

// DeferSources makes AddSource queue registrations until FlushSources.
func (m *Map) DeferSources(on bool) {
	m.mu.Lock()
	m.deferSrc = on
	m.mu.Unlock()
}

// FlushSources registers queued sources and emits a data event for each.
func (m *Map) FlushSources() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	for _, p := range pending {
		m.sources[p.id] = p.spec
	}
	m.mu.Unlock()

	for _, p := range pending {
		m.Emit(engine.Event{Type: engine.EventData, SourceID: p.id})
	}
}

// Container returns the container the map was created in.
func (m *Map) Container() string { return m.container }

// Options returns the construction options.
func (m *Map) Options() engine.Options { return m.opts }

// Removed reports whether Remove was called.
func (m *Map) Removed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

// ListenerCount returns the number of registered handlers.
func (m *Map) ListenerCount() int { return m.emitter.Count() }

// Stats exposes per-command counters.
func (m *Map) Stats() *tracker.Tracker { return m.stats }

// Calls returns how often op was issued.
func (m *Map) Calls(op string) int64 { return m.stats.Issued(op) }

// Flights returns every FlyTo call in order.
func (m *Map) Flights() []FlyToCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FlyToCall(nil), m.flights...)
}

// Marker returns a placed marker by id.
func (m *Map) Marker(id string) (*Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[id]
	return mk, ok
}

// MarkerCount returns the number of placed markers.
func (m *Map) MarkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

// ModelIDs returns the ids of placed models.
func (m *Map) ModelIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.models))
	for id := range m.models {
		ids = append(ids, id)
	}
	return ids
}
