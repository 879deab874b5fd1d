// Package mapview owns the map instance: construction, readiness, resize and
// teardown, and the wiring of engine events to the terrain machine, camera
// animator and viewport publisher.
package mapview

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"iotinerary/pkg/camera"
	"iotinerary/pkg/engine"
	"iotinerary/pkg/model"
	"iotinerary/pkg/models"
	"iotinerary/pkg/notify"
	"iotinerary/pkg/overlay"
	"iotinerary/pkg/session"
	"iotinerary/pkg/terrain"
	"iotinerary/pkg/viewport"
)

// ErrNotReady is returned by commands that need a constructed map.
var ErrNotReady = errors.New("map not initialized")

// MsgLoadFailed is the user-facing notice for engine errors.
const MsgLoadFailed = "Failed to load map"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfter(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// Deps are the collaborators of a view.
type Deps struct {
	Factory    engine.Factory
	Region     terrain.Geofence
	Store      *session.Manager
	Notices    *notify.Center
	Models     *models.Layer
	Dispatcher Dispatcher
	// After defaults to time.AfterFunc.
	After AfterFunc
}

// Settings are the static parameters of a view.
type Settings struct {
	Options        engine.Options
	TerrainSource  engine.SourceSpec
	Terrain        engine.TerrainSpec
	Marker         engine.MarkerSpec
	MarkerSpotID   string
	Camera         model.CameraTarget
	LoadingTimeout time.Duration
	LiveInterval   time.Duration
}

// Status is a snapshot of the view for observers.
type Status struct {
	ID          string                `json:"id"`
	Container   string                `json:"container,omitempty"`
	Lifecycle   model.LifecycleStatus `json:"lifecycle"`
	Error       string                `json:"error,omitempty"`
	Terrain     terrain.State         `json:"terrain"`
	Inputs      terrain.Inputs        `json:"terrainInputs"`
	Listeners   int                   `json:"listeners"`
	MarkerShown bool                  `json:"markerShown"`
	ModelsBound bool                  `json:"modelsBound"`
}

// View controls one map instance. Every method must run on the dispatcher's
// goroutine; engine handlers and the fallback timer are routed there too.
type View struct {
	id       string
	deps     Deps
	settings Settings
	logger   *slog.Logger

	terrain   *terrain.Machine
	animator  *camera.Animator
	publisher *viewport.Publisher
	tracker   *viewport.Tracker

	// per-instance state, reset on teardown
	gen       int
	started   bool
	container string
	m         engine.Map
	status    model.LifecycleStatus
	errMsg    string
	listeners []engine.ListenerID
	timer     Timer
	marker    engine.Marker
}

// New validates settings and creates a view. The map is built by Initialize.
func New(deps Deps, s Settings) (*View, error) {
	if deps.Factory == nil || deps.Region == nil || deps.Store == nil || deps.Notices == nil || deps.Models == nil {
		return nil, errors.New("mapview: missing dependency")
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = Inline{}
	}
	if deps.After == nil {
		deps.After = realAfter
	}
	if s.LoadingTimeout <= 0 {
		return nil, fmt.Errorf("mapview: loading timeout must be positive, got %v", s.LoadingTimeout)
	}

	animator, err := camera.NewAnimator(s.Camera)
	if err != nil {
		return nil, err
	}
	if err := s.Marker.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &View{
		id:        id,
		deps:      deps,
		settings:  s,
		logger:    slog.With("component", "mapview", "view", id[:8]),
		terrain:   terrain.NewMachine(s.Terrain, deps.Region),
		animator:  animator,
		publisher: viewport.NewPublisher(deps.Store),
		tracker:   viewport.NewTracker(deps.Store, s.LiveInterval),
		status:    model.StatusInitializing,
	}, nil
}

// ID identifies the view.
func (v *View) ID() string { return v.id }

// Initialize constructs the map in container. Calls while a map exists, or
// after construction failed, are no-ops. A construction error moves the view
// to Errored and is returned.
func (v *View) Initialize(container string) error {
	if v.started {
		return nil
	}
	v.started = true
	v.gen++
	v.container = container
	v.status = model.StatusInitializing
	v.errMsg = ""

	v.deps.Store.SetStatus(model.StatusInitializing, "")
	v.deps.Store.SetError(session.SubsystemMap, "")
	v.deps.Store.SetLoading(session.SubsystemMap, true)

	m, err := v.deps.Factory.New(container, v.settings.Options)
	if err != nil {
		v.fail(err.Error(), err.Error())
		return fmt.Errorf("failed to construct map: %w", err)
	}
	v.m = m

	v.on(engine.EventError, v.onError)
	v.on(engine.EventLoad, v.onLoad)
	v.on(engine.EventStyleLoad, v.onStyleLoad)
	for _, t := range engine.SettleEvents {
		v.on(t, v.onSettle)
	}
	v.on(engine.EventData, v.onData)
	for _, t := range engine.ContinuousEvents {
		v.on(t, v.onMove)
	}

	gen := v.gen
	v.timer = v.deps.After(v.settings.LoadingTimeout, func() {
		v.deps.Dispatcher.Post(func() { v.onTimeout(gen) })
	})

	v.logger.Info("Map initializing", "container", container, "timeout", v.settings.LoadingTimeout)
	return nil
}

// on registers a handler that is dropped once the instance it was registered
// for is gone.
func (v *View) on(t engine.EventType, h func(engine.Event)) {
	gen := v.gen
	id := v.m.On(t, func(ev engine.Event) {
		if v.gen != gen || v.m == nil {
			return
		}
		h(ev)
	})
	v.listeners = append(v.listeners, id)
}

func (v *View) onError(ev engine.Event) {
	v.cancelTimer()
	v.deps.Store.SetLoading(session.SubsystemMap, false)

	msg := "Unknown error"
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	if v.status == model.StatusErrored {
		v.logger.Debug("Engine error after failure", "error", msg)
		return
	}
	v.fail("Map error: "+msg, MsgLoadFailed)
}

// fail moves to Errored. Errored is absorbing for the instance.
func (v *View) fail(msg, notice string) {
	v.status = model.StatusErrored
	v.errMsg = msg
	v.deps.Store.SetLoading(session.SubsystemMap, false)
	v.deps.Store.SetError(session.SubsystemMap, msg)
	v.deps.Store.SetStatus(model.StatusErrored, msg)
	v.deps.Notices.Error(notice)
	v.logger.Error("Map failed", "error", msg)
}

func (v *View) onLoad(engine.Event) {
	if v.status == model.StatusErrored {
		return
	}
	v.cancelTimer()
	v.ensureTerrainSource()
	v.ensureMarker()

	if v.status == model.StatusInitializing {
		v.status = model.StatusLoaded
		v.deps.Store.SetLoading(session.SubsystemMap, false)
		v.deps.Store.SetError(session.SubsystemMap, "")
		v.deps.Store.SetStatus(model.StatusLoaded, "")
		v.logger.Info("Map loaded")
	}
	v.reconcile()
	v.publisher.Sample(v.m)
}

func (v *View) onStyleLoad(engine.Event) {
	if v.status == model.StatusErrored {
		return
	}
	v.ensureTerrainSource()
	v.reconcile()
}

func (v *View) onSettle(engine.Event) {
	v.publisher.Sample(v.m)
	v.tracker.Flush(v.m)
	v.evaluateTerrain()
}

func (v *View) onData(engine.Event) {
	v.evaluateTerrain()
}

func (v *View) onMove(engine.Event) {
	v.tracker.Update(v.m)
}

// onTimeout clears the loading state without an error. The map may still
// become interactive later; a late load event is still honoured.
func (v *View) onTimeout(gen int) {
	if gen != v.gen || v.m == nil {
		return
	}
	v.timer = nil
	if v.status != model.StatusInitializing {
		return
	}
	v.status = model.StatusLoaded
	v.deps.Store.SetLoading(session.SubsystemMap, false)
	v.deps.Store.SetStatus(model.StatusLoaded, "")
	v.logger.Info("Map load event not received in time, clearing loading state", "timeout", v.settings.LoadingTimeout)
}

func (v *View) cancelTimer() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *View) ensureTerrainSource() {
	id := v.settings.Terrain.Source
	if _, ok := v.m.GetSource(id); ok {
		return
	}
	if err := v.m.AddSource(id, v.settings.TerrainSource); err != nil && !errors.Is(err, engine.ErrDuplicateSource) {
		v.logger.Warn("Failed to add terrain source", "source", id, "error", err)
		v.deps.Store.SetError(session.SubsystemTerrain, err.Error())
	}
}

func (v *View) ensureMarker() {
	if v.marker != nil {
		return
	}
	spec := v.settings.Marker
	spec.OnClick = func() {
		if err := v.ClickMarker(); err != nil {
			v.logger.Debug("Marker click ignored", "error", err)
		}
	}
	mk, err := v.m.AddMarker(spec)
	if err != nil {
		v.logger.Warn("Failed to add marker", "marker", spec.ID, "error", err)
		return
	}
	v.marker = mk
}

// reconcile brings the model layer and terrain in line with the toggles.
func (v *View) reconcile() {
	if v.m == nil || v.status == model.StatusErrored {
		return
	}
	want := v.deps.Store.Overlays().ModelsEnabled && v.m.IsStyleLoaded()
	var target engine.Map
	if want {
		target = v.m
	}
	if err := v.deps.Models.Bind(target); err != nil {
		v.logger.Warn("Model layer incomplete", "error", err)
		v.deps.Store.SetError(session.SubsystemModels, err.Error())
	}
	v.evaluateTerrain()
}

func (v *View) evaluateTerrain() {
	if v.m == nil {
		return
	}
	v.terrain.Evaluate(v.m, v.deps.Store.Overlays().TerrainEnabled)
}

// ApplyOverlay runs a toggle action through the arbiter, posts its notice and
// re-evaluates the overlays on the live map.
func (v *View) ApplyOverlay(a overlay.Action) (model.OverlayToggles, overlay.Notice) {
	next, notice := v.deps.Store.DispatchOverlay(a)
	v.deps.Notices.Post(notice.Level, notice.Message)
	v.reconcile()
	return next, notice
}

// ClickMarker flies to the configured target and opens the spot panel.
func (v *View) ClickMarker() error {
	if v.m == nil {
		return ErrNotReady
	}
	v.animator.Trigger(v.m)
	v.deps.Store.OpenSpotPanel(v.settings.MarkerSpotID)
	return nil
}

// Resize forwards a container resize to the canvas.
func (v *View) Resize() error {
	if v.m == nil {
		return ErrNotReady
	}
	v.m.Resize()
	return nil
}

// Teardown deregisters listeners in reverse order, cancels the fallback
// timer, removes the marker and model binding, then releases the map.
// Repeated calls are no-ops.
func (v *View) Teardown() {
	if !v.started {
		return
	}
	m := v.m
	for i := len(v.listeners) - 1; i >= 0; i-- {
		m.Off(v.listeners[i])
	}
	v.listeners = nil
	v.cancelTimer()

	if v.marker != nil {
		v.marker.Remove()
		v.marker = nil
	}
	if err := v.deps.Models.Bind(nil); err != nil {
		v.logger.Debug("Model unbind failed", "error", err)
	}
	if m != nil {
		m.Remove()
	}

	v.m = nil
	v.started = false
	v.gen++
	v.logger.Info("Map torn down")
}

// Status returns a snapshot of the view.
func (v *View) Status() Status {
	return Status{
		ID:          v.id,
		Container:   v.container,
		Lifecycle:   v.status,
		Error:       v.errMsg,
		Terrain:     v.terrain.State(),
		Inputs:      v.terrain.LastInputs(),
		Listeners:   len(v.listeners),
		MarkerShown: v.marker != nil,
		ModelsBound: v.deps.Models.Active(),
	}
}

// Map returns the live map or nil.
func (v *View) Map() engine.Map { return v.m }

// Camera returns the configured camera target.
func (v *View) Camera() model.CameraTarget { return v.animator.Target() }
