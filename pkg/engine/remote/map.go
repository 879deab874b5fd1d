package remote

import (
	"fmt"

	"github.com/paulmach/orb"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/geo"
	"iotinerary/pkg/model"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800
)

// Map implements engine.Map on top of the bridge. Mirror state is guarded
// by the bridge mutex so replay and live commands never interleave.
type Map struct {
	b         *Bridge
	container string
	opts      engine.Options

	pose        model.Pose
	bounds      orb.Bound
	hasBounds   bool
	width       int
	height      int
	sources     map[string]engine.SourceSpec
	sourceOrder []string
	terrain     *engine.TerrainSpec
	styleLoaded bool
	removed     bool
	markers     map[string]*Marker
	models      map[string]engine.ModelSpec
	modelOrder  []string
	pendingFly  *command

	emitter engine.Emitter
}

func newMap(b *Bridge, container string, opts engine.Options) *Map {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	return &Map{
		b:         b,
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
	}
}

func (m *Map) constructLocked() command {
	pose := m.pose
	return command{
		Op:        opConstruct,
		Container: m.container,
		Style:     m.opts.StyleURL,
		Pose:      &pose,
		MinZoom:   m.opts.MinZoom,
		MaxZoom:   m.opts.MaxZoom,
	}
}

// attachLocked resets the mirror for a freshly attached page and returns
// what can be sent before its style loads. Sources, terrain and models wait
// for the page's style.load.
func (m *Map) attachLocked() []command {
	m.styleLoaded = false
	cmds := []command{m.constructLocked()}
	for _, mk := range m.markers {
		spec := mk.spec
		cmds = append(cmds, command{Op: opAddMarker, ID: spec.ID, Marker: &spec})
	}
	if m.pendingFly != nil {
		cmds = append(cmds, *m.pendingFly)
		m.pendingFly = nil
	}
	return cmds
}

// styledLocked returns the mirror state that needs a loaded style.
func (m *Map) styledLocked() []command {
	var cmds []command
	for _, id := range m.sourceOrder {
		spec := m.sources[id]
		cmds = append(cmds, command{Op: opAddSource, ID: id, Source: &spec})
	}
	if m.terrain != nil {
		t := *m.terrain
		cmds = append(cmds, command{Op: opSetTerrain, Terrain: &t})
	}
	for _, id := range m.modelOrder {
		spec := m.models[id]
		cmds = append(cmds, command{Op: opAddModel, ID: id, Model: &spec})
	}
	return cmds
}

// sendStyledLocked sends cmd only once the page style is loaded. Before
// that the mirror holds its effect until styledLocked replays it.
func (m *Map) sendStyledLocked(cmd command) {
	if !m.styleLoaded {
		m.b.stats.TrackIssued(cmd.Op)
		return
	}
	m.b.sendLocked(cmd)
}

// applyLocked folds a page event into the mirror and returns the commands
// to replay when the page style has just loaded.
func (m *Map) applyLocked(msg message) []command {
	if msg.Pose != nil {
		m.pose = *msg.Pose
	}
	if b, ok := msg.bound(); ok {
		m.bounds = b
		m.hasBounds = true
	}
	switch msg.Event {
	case string(engine.EventStyleLoad), string(engine.EventLoad):
		if !m.styleLoaded {
			m.styleLoaded = true
			return m.styledLocked()
		}
	case eventContainerResize:
		if msg.Width > 0 && msg.Height > 0 {
			m.width, m.height = msg.Width, msg.Height
			m.hasBounds = false
		}
	case eventCommandError:
		m.rejectLocked(msg.Op, msg.ID)
	}
	return nil
}

// rejectLocked drops the mirror effect of a command the page refused, so
// GetSource and GetTerrain report what the page actually has and the
// terrain machine retries on its next evaluation.
func (m *Map) rejectLocked(op, id string) {
	switch op {
	case opSetTerrain:
		m.terrain = nil
	case opAddSource:
		if _, ok := m.sources[id]; !ok {
			return
		}
		delete(m.sources, id)
		for i, sid := range m.sourceOrder {
			if sid == id {
				m.sourceOrder = append(m.sourceOrder[:i], m.sourceOrder[i+1:]...)
				break
			}
		}
		if m.terrain != nil && m.terrain.Source == id {
			m.terrain = nil
		}
	}
}

func (m *Map) clickHandler(id string) func() {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	mk, ok := m.markers[id]
	if !ok {
		return nil
	}
	return mk.spec.OnClick
}

// AddSource implements engine.Map.
func (m *Map) AddSource(id string, spec engine.SourceSpec) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if _, ok := m.sources[id]; ok {
		return fmt.Errorf("%w: %s", engine.ErrDuplicateSource, id)
	}
	m.sources[id] = spec
	m.sourceOrder = append(m.sourceOrder, id)
	m.sendStyledLocked(command{Op: opAddSource, ID: id, Source: &spec})
	return nil
}

// GetSource implements engine.Map.
func (m *Map) GetSource(id string) (engine.SourceSpec, bool) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	s, ok := m.sources[id]
	return s, ok
}

// SetTerrain implements engine.Map.
func (m *Map) SetTerrain(spec *engine.TerrainSpec) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if spec == nil {
		m.terrain = nil
		m.sendStyledLocked(command{Op: opSetTerrain})
		return nil
	}
	if _, ok := m.sources[spec.Source]; !ok {
		m.b.stats.TrackFailed(opSetTerrain)
		return fmt.Errorf("%w: %s", engine.ErrSourceNotFound, spec.Source)
	}
	t := *spec
	m.terrain = &t
	m.sendStyledLocked(command{Op: opSetTerrain, Terrain: &t})
	return nil
}

// GetTerrain implements engine.Map.
func (m *Map) GetTerrain() *engine.TerrainSpec {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.terrain == nil {
		return nil
	}
	t := *m.terrain
	return &t
}

// FlyTo implements engine.Map. The mirror pose follows the page's moveend
// report; without a page the flight is kept for replay.
func (m *Map) FlyTo(target model.Pose, opts engine.FlyToOptions) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return
	}
	cmd := command{
		Op:        opFlyTo,
		Pose:      &target,
		Duration:  opts.Duration.Milliseconds(),
		Essential: opts.Essential,
	}
	if m.b.client == nil {
		m.pendingFly = &cmd
		m.pose = target
		m.hasBounds = false
	}
	m.b.sendLocked(cmd)
}

// Center implements engine.Map.
func (m *Map) Center() model.LngLat {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.pose.Center
}

// Zoom implements engine.Map.
func (m *Map) Zoom() float64 {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.pose.Zoom
}

// Bearing implements engine.Map.
func (m *Map) Bearing() float64 {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.pose.Bearing
}

// Pitch implements engine.Map.
func (m *Map) Pitch() float64 {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.pose.Pitch
}

// Bounds returns the bounds last reported by the page, or an estimate from
// the mirrored pose.
func (m *Map) Bounds() orb.Bound {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.hasBounds {
		return m.bounds
	}
	return geo.ViewportBounds(m.pose, m.width, m.height)
}

// IsStyleLoaded implements engine.Map.
func (m *Map) IsStyleLoaded() bool {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.styleLoaded && !m.removed
}

// On implements engine.Map.
func (m *Map) On(t engine.EventType, h engine.Handler) engine.ListenerID {
	return m.emitter.On(t, h)
}

// Once implements engine.Map.
func (m *Map) Once(t engine.EventType, h engine.Handler) engine.ListenerID {
	return m.emitter.Once(t, h)
}

// Off implements engine.Map.
func (m *Map) Off(id engine.ListenerID) {
	m.emitter.Off(id)
}

// ListenerCount returns the number of registered handlers.
func (m *Map) ListenerCount() int {
	return m.emitter.Count()
}

// AddMarker implements engine.Map.
func (m *Map) AddMarker(spec engine.MarkerSpec) (engine.Marker, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return nil, engine.ErrRemoved
	}
	mk := &Marker{m: m, spec: spec}
	m.markers[spec.ID] = mk
	m.b.sendLocked(command{Op: opAddMarker, ID: spec.ID, Marker: &spec})
	return mk, nil
}

// AddModel implements engine.Map.
func (m *Map) AddModel(spec engine.ModelSpec) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return engine.ErrRemoved
	}
	if _, ok := m.models[spec.ID]; !ok {
		m.modelOrder = append(m.modelOrder, spec.ID)
	}
	m.models[spec.ID] = spec
	m.sendStyledLocked(command{Op: opAddModel, ID: spec.ID, Model: &spec})
	return nil
}

// RemoveModel implements engine.Map.
func (m *Map) RemoveModel(id string) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if _, ok := m.models[id]; !ok || m.removed {
		return
	}
	delete(m.models, id)
	for i, mid := range m.modelOrder {
		if mid == id {
			m.modelOrder = append(m.modelOrder[:i], m.modelOrder[i+1:]...)
			break
		}
	}
	m.sendStyledLocked(command{Op: opRemoveModel, ID: id})
}

// Resize implements engine.Map.
func (m *Map) Resize() {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if m.removed {
		return
	}
	m.b.sendLocked(command{Op: opResize})
}

// Remove implements engine.Map. Handlers are dropped with the instance.
func (m *Map) Remove() {
	m.b.mu.Lock()
	if m.removed {
		m.b.mu.Unlock()
		return
	}
	m.removed = true
	m.styleLoaded = false
	m.b.sendLocked(command{Op: opRemove})
	if m.b.current == m {
		m.b.current = nil
	}
	m.b.mu.Unlock()
	m.emitter.Clear()
}

// Marker is a marker placed through the bridge.
type Marker struct {
	m    *Map
	spec engine.MarkerSpec
}

// ID implements engine.Marker.
func (mk *Marker) ID() string { return mk.spec.ID }

// Remove implements engine.Marker.
func (mk *Marker) Remove() {
	m := mk.m
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if cur, ok := m.markers[mk.spec.ID]; !ok || cur != mk {
		return
	}
	delete(m.markers, mk.spec.ID)
	if !m.removed {
		m.b.sendLocked(command{Op: opRemoveMarker, ID: mk.spec.ID})
	}
}
