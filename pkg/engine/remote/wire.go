package remote

import (
	"errors"

	"github.com/paulmach/orb"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/model"
)

// Command ops sent to the browser.
const (
	opConstruct    = "construct"
	opAddSource    = "addSource"
	opSetTerrain   = "setTerrain"
	opFlyTo        = "flyTo"
	opAddMarker    = "addMarker"
	opRemoveMarker = "removeMarker"
	opAddModel     = "addModel"
	opRemoveModel  = "removeModel"
	opResize       = "resize"
	opRemove       = "remove"
)

// Browser-only events that never reach engine handlers.
const (
	eventMarkerClick     = "marker.click"
	eventContainerResize = "container.resize"
	// eventCommandError reports a command the page rejected. It is never an
	// engine error: the mirror is corrected and the next evaluation retries.
	eventCommandError = "command.error"
)

// command is one JSON message to the page. Duration is in milliseconds.
type command struct {
	Op        string              `json:"op"`
	Container string              `json:"container,omitempty"`
	Style     string              `json:"style,omitempty"`
	Pose      *model.Pose         `json:"pose,omitempty"`
	MinZoom   float64             `json:"minZoom,omitempty"`
	MaxZoom   float64             `json:"maxZoom,omitempty"`
	ID        string              `json:"id,omitempty"`
	Source    *engine.SourceSpec  `json:"source,omitempty"`
	Terrain   *engine.TerrainSpec `json:"terrain,omitempty"`
	Duration  int64               `json:"duration,omitempty"`
	Essential bool                `json:"essential,omitempty"`
	Marker    *engine.MarkerSpec  `json:"marker,omitempty"`
	Model     *engine.ModelSpec   `json:"model,omitempty"`
}

// message is one JSON event from the page. Bounds are west, south, east, north.
type message struct {
	Event    string      `json:"event"`
	Op       string      `json:"op,omitempty"`
	ID       string      `json:"id,omitempty"`
	Pose     *model.Pose `json:"pose,omitempty"`
	Bounds   *[4]float64 `json:"bounds,omitempty"`
	SourceID string      `json:"sourceId,omitempty"`
	MarkerID string      `json:"markerId,omitempty"`
	Error    string      `json:"error,omitempty"`
	Width    int         `json:"width,omitempty"`
	Height   int         `json:"height,omitempty"`
}

func (m message) bound() (orb.Bound, bool) {
	if m.Bounds == nil {
		return orb.Bound{}, false
	}
	b := m.Bounds
	return orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}, true
}

// engineEvent converts a page event into an engine event.
func (m message) engineEvent() engine.Event {
	ev := engine.Event{Type: engine.EventType(m.Event), SourceID: m.SourceID}
	if ev.Type == engine.EventError {
		msg := m.Error
		if msg == "" {
			msg = "unknown engine error"
		}
		ev.Err = errors.New(msg)
	}
	return ev
}
