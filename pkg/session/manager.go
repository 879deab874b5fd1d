// Package session holds the in-memory state shared by the map view and its
// observers for the lifetime of one process. Nothing is persisted.
package session

import (
	"sync"
	"time"

	"iotinerary/pkg/model"
	"iotinerary/pkg/overlay"
)

// Subsystem names a part of the view with its own loading and error flags.
type Subsystem string

const (
	SubsystemMap     Subsystem = "map"
	SubsystemTerrain Subsystem = "terrain"
	SubsystemModels  Subsystem = "models"
)

// Flags are the loading and error state of one subsystem.
type Flags struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Snapshot is a consistent copy of the shared state.
type Snapshot struct {
	Viewport      model.Pose            `json:"viewport"`
	LivePose      model.Pose            `json:"livePose"`
	Overlays      model.OverlayToggles  `json:"overlays"`
	Status        model.LifecycleStatus `json:"status"`
	Error         string                `json:"error,omitempty"`
	Subsystems    map[Subsystem]Flags   `json:"subsystems"`
	SpotPanelOpen bool                  `json:"spotPanelOpen"`
	SelectedSpot  string                `json:"selectedSpot,omitempty"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// ChangeKind tells subscribers which part changed.
type ChangeKind string

const (
	ChangeViewport  ChangeKind = "viewport"
	ChangeLivePose  ChangeKind = "live_pose"
	ChangeOverlays  ChangeKind = "overlays"
	ChangeStatus    ChangeKind = "status"
	ChangeFlags     ChangeKind = "flags"
	ChangeSpotPanel ChangeKind = "spot_panel"
)

// Change is delivered to subscribers after the state was updated.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Snapshot Snapshot   `json:"state"`
}

// Manager owns the shared state. Overlay toggles can only be changed through
// DispatchOverlay so the performance-mode invariant cannot be bypassed.
type Manager struct {
	mu       sync.RWMutex
	s        Snapshot
	defaults model.OverlayToggles
	subs     map[int]func(Change)
	nextSub  int
}

// NewManager creates a manager whose overlays start at the normalized defaults.
func NewManager(defaults model.OverlayToggles) *Manager {
	m := &Manager{
		defaults: overlay.Normalize(defaults),
		subs:     make(map[int]func(Change)),
	}
	m.s = m.initial()
	return m
}

func (m *Manager) initial() Snapshot {
	return Snapshot{
		Overlays:   m.defaults,
		Status:     model.StatusInitializing,
		Subsystems: make(map[Subsystem]Flags),
		UpdatedAt:  time.Now(),
	}
}

// SetViewport replaces the settled viewport pose.
func (m *Manager) SetViewport(p model.Pose) {
	m.update(ChangeViewport, func(s *Snapshot) bool {
		s.Viewport = p
		return true
	})
}

// SetLivePose replaces the pose reported while the camera moves.
func (m *Manager) SetLivePose(p model.Pose) {
	m.update(ChangeLivePose, func(s *Snapshot) bool {
		if s.LivePose == p {
			return false
		}
		s.LivePose = p
		return true
	})
}

// DispatchOverlay runs the arbiter against the current toggles under the lock.
func (m *Manager) DispatchOverlay(a overlay.Action) (model.OverlayToggles, overlay.Notice) {
	var (
		next   model.OverlayToggles
		notice overlay.Notice
	)
	m.update(ChangeOverlays, func(s *Snapshot) bool {
		prev := s.Overlays
		next, notice = overlay.Apply(prev, a)
		s.Overlays = next
		return next != prev
	})
	return next, notice
}

// SetStatus records the lifecycle status and its error message.
func (m *Manager) SetStatus(st model.LifecycleStatus, errMsg string) {
	m.update(ChangeStatus, func(s *Snapshot) bool {
		if s.Status == st && s.Error == errMsg {
			return false
		}
		s.Status = st
		s.Error = errMsg
		return true
	})
}

// SetLoading sets the loading flag of a subsystem.
func (m *Manager) SetLoading(sub Subsystem, loading bool) {
	m.update(ChangeFlags, func(s *Snapshot) bool {
		f := s.Subsystems[sub]
		if f.Loading == loading {
			return false
		}
		f.Loading = loading
		s.Subsystems[sub] = f
		return true
	})
}

// SetError sets or clears (empty msg) the error of a subsystem.
func (m *Manager) SetError(sub Subsystem, msg string) {
	m.update(ChangeFlags, func(s *Snapshot) bool {
		f := s.Subsystems[sub]
		if f.Error == msg {
			return false
		}
		f.Error = msg
		s.Subsystems[sub] = f
		return true
	})
}

// OpenSpotPanel opens the side panel on a spot.
func (m *Manager) OpenSpotPanel(spotID string) {
	m.update(ChangeSpotPanel, func(s *Snapshot) bool {
		if s.SpotPanelOpen && s.SelectedSpot == spotID {
			return false
		}
		s.SpotPanelOpen = true
		s.SelectedSpot = spotID
		return true
	})
}

// CloseSpotPanel closes the side panel.
func (m *Manager) CloseSpotPanel() {
	m.update(ChangeSpotPanel, func(s *Snapshot) bool {
		if !s.SpotPanelOpen {
			return false
		}
		s.SpotPanelOpen = false
		s.SelectedSpot = ""
		return true
	})
}

// Overlays returns the current toggles.
func (m *Manager) Overlays() model.OverlayToggles {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.Overlays
}

// Viewport returns the settled pose.
func (m *Manager) Viewport() model.Pose {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.Viewport
}

// Flags returns the flags of a subsystem.
func (m *Manager) Flags(sub Subsystem) Flags {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.Subsystems[sub]
}

// Snapshot returns a copy of the whole state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyLocked()
}

// Subscribe registers fn for changes. fn runs outside the lock on the
// goroutine that made the change. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Reset returns everything except subscriptions to the initial state.
func (m *Manager) Reset() {
	m.update(ChangeStatus, func(s *Snapshot) bool {
		*s = m.initial()
		return true
	})
}

func (m *Manager) update(kind ChangeKind, fn func(*Snapshot) bool) {
	m.mu.Lock()
	if !fn(&m.s) {
		m.mu.Unlock()
		return
	}
	m.s.UpdatedAt = time.Now()
	snap := m.copyLocked()
	subs := make([]func(Change), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	ch := Change{Kind: kind, Snapshot: snap}
	for _, s := range subs {
		s(ch)
	}
}

func (m *Manager) copyLocked() Snapshot {
	cp := m.s
	cp.Subsystems = make(map[Subsystem]Flags, len(m.s.Subsystems))
	for k, v := range m.s.Subsystems {
		cp.Subsystems[k] = v
	}
	return cp
}
