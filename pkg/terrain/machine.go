// Package terrain keeps the engine's 3D terrain attachment equal to the value
// derived from the toggle, the geofence and source readiness.
package terrain

import (
	"log/slog"

	"github.com/paulmach/orb"

	"iotinerary/pkg/engine"
)

// State is the attachment state.
type State string

const (
	Detached State = "detached"
	Attached State = "attached"
)

// Geofence decides whether a viewport intersects the region of interest.
type Geofence interface {
	InsideRegion(viewport orb.Bound) bool
}

// Inputs are read fresh on every evaluation.
type Inputs struct {
	Enabled      bool `json:"enabled"`
	InsideRegion bool `json:"insideRegion"`
	SourceReady  bool `json:"sourceReady"`
}

// Desired is the derived attachment value.
func (in Inputs) Desired() bool {
	return in.Enabled && in.InsideRegion && in.SourceReady
}

// Machine reconciles terrain attachment. It is not safe for concurrent use;
// the owning view calls it from its event loop.
type Machine struct {
	spec   engine.TerrainSpec
	fence  Geofence
	logger *slog.Logger

	last  Inputs
	state State
}

// NewMachine creates a machine attaching spec when the derived value holds.
func NewMachine(spec engine.TerrainSpec, fence Geofence) *Machine {
	return &Machine{
		spec:   spec,
		fence:  fence,
		logger: slog.With("component", "terrain"),
		state:  Detached,
	}
}

// Evaluate reads the current inputs from m and issues at most one engine call
// when the engine's attachment differs from the derived value. Attach failures
// are swallowed; the next evaluation retries.
func (t *Machine) Evaluate(m engine.Map, enabled bool) State {
	_, ready := m.GetSource(t.spec.Source)
	in := Inputs{
		Enabled:      enabled,
		InsideRegion: t.fence.InsideRegion(m.Bounds()),
		SourceReady:  ready,
	}
	t.last = in

	attached := m.GetTerrain() != nil
	want := in.Desired()

	switch {
	case want && !attached:
		spec := t.spec
		if err := m.SetTerrain(&spec); err != nil {
			t.logger.Debug("Terrain attach deferred", "source", t.spec.Source, "error", err)
			t.state = Detached
			return t.state
		}
		t.logger.Debug("Terrain attached", "source", t.spec.Source)
	case !want && attached:
		if err := m.SetTerrain(nil); err != nil {
			t.logger.Debug("Terrain detach failed", "error", err)
			return t.state
		}
		t.logger.Debug("Terrain detached", "enabled", in.Enabled, "inside", in.InsideRegion, "ready", in.SourceReady)
	}

	if want {
		t.state = Attached
	} else {
		t.state = Detached
	}
	return t.state
}

// State returns the state after the last evaluation.
func (t *Machine) State() State { return t.state }

// LastInputs returns the inputs of the last evaluation.
func (t *Machine) LastInputs() Inputs { return t.last }

// Spec returns the terrain descriptor.
func (t *Machine) Spec() engine.TerrainSpec { return t.spec }
