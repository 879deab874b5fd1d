// Package models places tourist-spot 3D models on a map. The view only
// activates the layer with a live map or deactivates it with nil.
package models

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/model"
)

// Spot is a point of interest with an optional model.
type Spot struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Position    model.LngLat `json:"position"`
	ModelURL    string       `json:"modelUrl,omitempty"`
	Scale       float64      `json:"scale,omitempty"`
	Rotation    float64      `json:"rotation,omitempty"`
}

// Layer is the 3D model overlay.
type Layer struct {
	mu     sync.Mutex
	spots  []Spot
	bound  engine.Map
	placed []string
	logger *slog.Logger
}

// NewLayer creates a layer for the given catalogue.
func NewLayer(spots []Spot) *Layer {
	return &Layer{
		spots:  append([]Spot(nil), spots...),
		logger: slog.With("component", "models"),
	}
}

// Bind activates the layer on m, or deactivates it when m is nil. Binding the
// map that is already bound is a no-op.
func (l *Layer) Bind(m engine.Map) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m == l.bound {
		return nil
	}
	l.unbindLocked()
	if m == nil {
		return nil
	}

	l.bound = m
	var errs []error
	for _, s := range l.spots {
		if s.ModelURL == "" {
			continue
		}
		err := m.AddModel(engine.ModelSpec{
			ID:       s.ID,
			Name:     s.Name,
			URL:      s.ModelURL,
			Position: s.Position,
			Scale:    s.Scale,
			Rotation: s.Rotation,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("model %s: %w", s.ID, err))
			continue
		}
		l.placed = append(l.placed, s.ID)
	}
	l.logger.Debug("Models bound", "placed", len(l.placed))
	return errors.Join(errs...)
}

func (l *Layer) unbindLocked() {
	if l.bound == nil {
		return
	}
	for _, id := range l.placed {
		l.bound.RemoveModel(id)
	}
	l.logger.Debug("Models unbound", "removed", len(l.placed))
	l.placed = nil
	l.bound = nil
}

// Active reports whether the layer is bound to a map.
func (l *Layer) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bound != nil
}

// Spots returns the catalogue.
func (l *Layer) Spots() []Spot {
	return append([]Spot(nil), l.spots...)
}

// Spot looks up a spot by id.
func (l *Layer) Spot(id string) (Spot, bool) {
	for _, s := range l.spots {
		if s.ID == id {
			return s, true
		}
	}
	return Spot{}, false
}

// FeatureCollection exports the catalogue as GeoJSON points.
func (l *Layer) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range l.spots {
		f := geojson.NewFeature(orb.Point{s.Position.Lng, s.Position.Lat})
		f.ID = s.ID
		f.Properties["name"] = s.Name
		if s.Description != "" {
			f.Properties["description"] = s.Description
		}
		if s.ModelURL != "" {
			f.Properties["model"] = s.ModelURL
		}
		fc.Append(f)
	}
	return fc
}
