// Package mockengine is a deterministic in-process map engine.
// Events are delivered synchronously on the goroutine that triggers them.
package mockengine

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/geo"
	"iotinerary/pkg/model"
	"iotinerary/pkg/tracker"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800
)

// FlyToCall records a camera command.
type FlyToCall struct {
	Target model.Pose
	Opts   engine.FlyToOptions
}

// Map implements engine.Map without rendering anything.
type Map struct {
	mu          sync.Mutex
	container   string
	opts        engine.Options
	pose        model.Pose
	width       int
	height      int
	sources     map[string]engine.SourceSpec
	pending     []pendingSource
	deferSrc    bool
	terrain     *engine.TerrainSpec
	styleLoaded bool
	removed     bool
	markers     map[string]*Marker
	models      map[string]engine.ModelSpec
	flights     []FlyToCall

	emitter engine.Emitter
	stats   *tracker.Tracker
}

type pendingSource struct {
	id   string
	spec engine.SourceSpec
}

// New creates a map positioned at the options' initial pose.
func New(container string, opts engine.Options) *Map {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	return &Map{
		container: container,
		opts:      opts,
		pose: model.Pose{
			Center:  opts.Center,
			Zoom:    opts.Zoom,
			Bearing: opts.Bearing,
			Pitch:   opts.Pitch,
		},
		width:   w,
		height:  h,
		sources: make(map[string]engine.SourceSpec),
		markers: make(map[string]*Marker),
		models:  make(map[string]engine.ModelSpec),
		stats:   tracker.New(),
	}
}

// AddSource registers a source, or queues it while sources are deferred.
func (m *Map) AddSource(id string, spec engine.SourceSpec) error {
	m.stats.TrackIssued("addSource")
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removed {
		m.stats.TrackFailed("addSource")
		return engine.ErrRemoved
	}
	if _, ok := m.sources[id]; ok {
		m.stats.TrackFailed("addSource")
		return fmt.Errorf("%w: %s", engine.ErrDuplicateSource, id)
	}
	for _, p := range m.pending {
		if p.id == id {
			m.stats.TrackFailed("addSource")
			return fmt.Errorf("%w: %s", engine.ErrDuplicateSource, id)
		}
	}
	if m.deferSrc {
		m.pending = append(m.pending, pendingSource{id: id, spec: spec})
		return nil
	}
	m.sources[id] = spec
	return nil
}

// GetSource returns a registered source.
func (m *Map) GetSource(id string) (engine.SourceSpec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	return s, ok
}

// SetTerrain attaches or detaches terrain.
func (m *Map) SetTerrain(spec *engine.TerrainSpec) error {
	m.stats.TrackIssued("setTerrain")
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removed {
		m.stats.TrackFailed("setTerrain")
		return engine.ErrRemoved
	}
	if spec == nil {
		m.terrain = nil
		return nil
	}
	if _, ok := m.sources[spec.Source]; !ok {
		m.stats.TrackFailed("setTerrain")
		return fmt.Errorf("%w: %s", engine.ErrSourceNotFound, spec.Source)
	}
	cp := *spec
	m.terrain = &cp
	return nil
}

// GetTerrain returns the attached terrain or nil.
func (m *Map) GetTerrain() *engine.TerrainSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terrain == nil {
		return nil
	}
	cp := *m.terrain
	return &cp
}

// FlyTo lands exactly on target and emits move then moveend.
func (m *Map) FlyTo(target model.Pose, opts engine.FlyToOptions) {
	m.stats.TrackIssued("flyTo")
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}
	m.flights = append(m.flights, FlyToCall{Target: target, Opts: opts})
	m.mu.Unlock()

	m.JumpTo(target)
}

func (m *Map) Center() model.LngLat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pose.Center
}

func (m *Map) Zoom() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pose.Zoom
}

func (m *Map) Bearing() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pose.Bearing
}

func (m *Map) Pitch() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pose.Pitch
}

// Bounds approximates the visible rectangle for the current pose and canvas size.
func (m *Map) Bounds() orb.Bound {
	m.mu.Lock()
	defer m.mu.Unlock()
	return geo.ViewportBounds(m.pose, m.width, m.height)
}

func (m *Map) IsStyleLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.styleLoaded
}

func (m *Map) On(t engine.EventType, h engine.Handler) engine.ListenerID {
	return m.emitter.On(t, h)
}

func (m *Map) Once(t engine.EventType, h engine.Handler) engine.ListenerID {
	return m.emitter.Once(t, h)
}

func (m *Map) Off(id engine.ListenerID) {
	m.emitter.Off(id)
}

// AddMarker validates and places a marker.
func (m *Map) AddMarker(spec engine.MarkerSpec) (engine.Marker, error) {
	m.stats.TrackIssued("addMarker")
	if err := spec.Validate(); err != nil {
		m.stats.TrackFailed("addMarker")
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		m.stats.TrackFailed("addMarker")
		return nil, engine.ErrRemoved
	}
	mk := &Marker{spec: spec, owner: m}
	m.markers[spec.ID] = mk
	return mk, nil
}

func (m *Map) AddModel(spec engine.ModelSpec) error {
	m.stats.TrackIssued("addModel")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		m.stats.TrackFailed("addModel")
		return engine.ErrRemoved
	}
	m.models[spec.ID] = spec
	return nil
}

func (m *Map) RemoveModel(id string) {
	m.stats.TrackIssued("removeModel")
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models, id)
}

func (m *Map) Resize() {
	m.stats.TrackIssued("resize")
}

// Remove disposes the map. Listeners are left in place so tests can detect
// handlers the owner failed to deregister.
func (m *Map) Remove() {
	m.stats.TrackIssued("remove")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	m.terrain = nil
	m.markers = make(map[string]*Marker)
	m.models = make(map[string]engine.ModelSpec)
}

// Marker is a placed marker that tests can click.
type Marker struct {
	spec  engine.MarkerSpec
	owner *Map
}

func (mk *Marker) ID() string { return mk.spec.ID }

// Spec returns the descriptor the marker was created from.
func (mk *Marker) Spec() engine.MarkerSpec { return mk.spec }

func (mk *Marker) Remove() {
	mk.owner.stats.TrackIssued("removeMarker")
	mk.owner.mu.Lock()
	defer mk.owner.mu.Unlock()
	delete(mk.owner.markers, mk.spec.ID)
}

// Click runs the marker's click handler.
func (mk *Marker) Click() {
	if mk.spec.OnClick != nil {
		mk.spec.OnClick()
	}
}
