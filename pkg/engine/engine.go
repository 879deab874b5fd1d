// Package engine defines the command and event surface of the map rendering engine.
// The controller never talks to a renderer directly; adapters implement Map.
package engine

import (
	"errors"
	"time"

	"github.com/paulmach/orb"

	"iotinerary/pkg/model"
)

var (
	// ErrSourceNotFound is returned when terrain references an unregistered source.
	ErrSourceNotFound = errors.New("source not found")
	// ErrDuplicateSource is returned when a source id is registered twice.
	ErrDuplicateSource = errors.New("source already exists")
	// ErrRemoved is returned by commands issued after Remove.
	ErrRemoved = errors.New("map removed")
	// ErrNoContainer is returned by factories when the host element is missing.
	ErrNoContainer = errors.New("map container not found")
	// ErrInvalidMarker is returned for malformed marker descriptors.
	ErrInvalidMarker = errors.New("invalid marker")
)

// EventType names an engine event.
type EventType string

const (
	EventError     EventType = "error"
	EventLoad      EventType = "load"
	EventStyleLoad EventType = "style.load"
	EventMove      EventType = "move"
	EventZoom      EventType = "zoom"
	EventRotate    EventType = "rotate"
	EventPitch     EventType = "pitch"
	EventMoveEnd   EventType = "moveend"
	EventZoomEnd   EventType = "zoomend"
	EventData      EventType = "data"
)

// SettleEvents fire once camera movement has fully stopped.
var SettleEvents = []EventType{EventMoveEnd, EventZoomEnd}

// ContinuousEvents fire while the camera is moving.
var ContinuousEvents = []EventType{EventMove, EventZoom, EventRotate, EventPitch}

// Event is delivered to handlers.
type Event struct {
	Type EventType
	// Err is set for EventError.
	Err error
	// SourceID is set for EventData when a source finished loading.
	SourceID string
}

// Handler receives engine events.
type Handler func(Event)

// ListenerID identifies a registered handler.
type ListenerID string

// SourceSpec describes a data source.
type SourceSpec struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	TileSize int    `json:"tileSize,omitempty"`
	MaxZoom  int    `json:"maxzoom,omitempty"`
}

// TerrainSpec attaches 3D terrain from a raster-dem source.
type TerrainSpec struct {
	Source       string  `json:"source"`
	Exaggeration float64 `json:"exaggeration"`
}

// FlyToOptions controls a camera transition. There is deliberately no pivot
// point: transitions interpolate poses directly.
type FlyToOptions struct {
	Duration  time.Duration
	Essential bool
}

// ModelSpec places a 3D model.
type ModelSpec struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	URL      string       `json:"url"`
	Position model.LngLat `json:"position"`
	Scale    float64      `json:"scale"`
	Rotation float64      `json:"rotation"`
}

// Options configure map construction.
type Options struct {
	StyleURL string
	Center   model.LngLat
	Zoom     float64
	MinZoom  float64
	MaxZoom  float64
	Bearing  float64
	Pitch    float64
	Width    int
	Height   int
}

// PoseReader exposes the camera fields.
type PoseReader interface {
	Center() model.LngLat
	Zoom() float64
	Bearing() float64
	Pitch() float64
}

// Map is the command surface of a constructed map instance.
// All methods must be called from the view's event loop.
type Map interface {
	AddSource(id string, spec SourceSpec) error
	GetSource(id string) (SourceSpec, bool)
	// SetTerrain attaches terrain, or detaches it when spec is nil.
	SetTerrain(spec *TerrainSpec) error
	GetTerrain() *TerrainSpec
	FlyTo(target model.Pose, opts FlyToOptions)

	PoseReader
	Bounds() orb.Bound
	IsStyleLoaded() bool

	On(t EventType, h Handler) ListenerID
	Once(t EventType, h Handler) ListenerID
	Off(id ListenerID)

	AddMarker(spec MarkerSpec) (Marker, error)
	AddModel(spec ModelSpec) error
	RemoveModel(id string)

	Resize()
	Remove()
}

// Marker is a placed marker.
type Marker interface {
	ID() string
	Remove()
}

// Factory constructs maps. Container identifies the host element or canvas.
type Factory interface {
	New(container string, opts Options) (Map, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(container string, opts Options) (Map, error)

// New calls f.
func (f FactoryFunc) New(container string, opts Options) (Map, error) {
	return f(container, opts)
}

// PoseOf samples the four pose fields of m at once.
func PoseOf(m PoseReader) model.Pose {
	return model.Pose{
		Center:  m.Center(),
		Zoom:    m.Zoom(),
		Bearing: m.Bearing(),
		Pitch:   m.Pitch(),
	}
}
