package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"iotinerary/pkg/config"
	"iotinerary/pkg/engine"
	"iotinerary/pkg/engine/mockengine"
	"iotinerary/pkg/engine/remote"
	"iotinerary/pkg/geo"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/model"
	"iotinerary/pkg/models"
	"iotinerary/pkg/overlay"
	"iotinerary/pkg/probe"
)

type engineSetup struct {
	factory engine.Factory
	bridge  *remote.Bridge
}

func newEngine(cfg *config.Config, loop *mapview.Loop) (engineSetup, error) {
	switch cfg.Engine.Provider {
	case "mock":
		return engineSetup{factory: &mockengine.Factory{
			AutoLoad: cfg.Engine.AutoLoad.Std(),
			Post:     func(fn func()) { loop.Post(fn) },
		}}, nil
	case "remote":
		b := remote.NewBridge(loop)
		return engineSetup{factory: b, bridge: b}, nil
	default:
		return engineSetup{}, fmt.Errorf("unknown engine provider %q", cfg.Engine.Provider)
	}
}

// loadRegion reads the region outline from a file, a URL or the configured
// bound, in that order of preference.
func loadRegion(ctx context.Context, cfg *config.Config, fetch probe.Fetcher) (*geo.Region, error) {
	var region *geo.Region
	path := cfg.Region.Path
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		data, err := fetch.Get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch region: %w", err)
		}
		r, err := geo.ParseRegion(cfg.Region.Name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse region: %w", err)
		}
		region = r
	case path != "":
		r, err := geo.LoadRegion(cfg.Region.Name, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load region: %w", err)
		}
		region = r
	default:
		b := cfg.Region.Bound
		region = geo.NewBoundRegion(cfg.Region.Name, orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}})
	}
	if pad := cfg.Region.Padding.Meters(); pad > 0 {
		region = region.WithPadding(pad)
	}
	return region, nil
}

func lngLat(p [2]float64) model.LngLat {
	return model.LngLat{Lng: p[0], Lat: p[1]}
}

func overlayDefaults(cfg *config.Config) model.OverlayToggles {
	return overlay.Normalize(model.OverlayToggles{
		PerformanceMode: cfg.Overlays.PerformanceMode,
		TerrainEnabled:  cfg.Overlays.Terrain,
		ModelsEnabled:   cfg.Overlays.Models,
	})
}

func spots(cfg *config.Config) []models.Spot {
	out := make([]models.Spot, 0, len(cfg.Spots))
	for _, s := range cfg.Spots {
		out = append(out, models.Spot{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Position:    lngLat(s.Position),
			ModelURL:    s.ModelURL,
			Scale:       s.Scale,
			Rotation:    s.Rotation,
		})
	}
	return out
}

func viewSettings(cfg *config.Config) mapview.Settings {
	return mapview.Settings{
		Options: engine.Options{
			StyleURL: cfg.ResolvedStyleURL(),
			Center:   lngLat(cfg.Map.Center),
			Zoom:     cfg.Map.Zoom,
			MinZoom:  cfg.Map.MinZoom,
			MaxZoom:  cfg.Map.MaxZoom,
			Bearing:  cfg.Map.Bearing,
			Pitch:    cfg.Map.Pitch,
			Width:    cfg.Map.Width,
			Height:   cfg.Map.Height,
		},
		TerrainSource: engine.SourceSpec{
			Type:     "raster-dem",
			URL:      cfg.ResolvedTerrainURL(),
			TileSize: cfg.Terrain.TileSize,
			MaxZoom:  cfg.Terrain.MaxZoom,
		},
		Terrain: engine.TerrainSpec{
			Source:       cfg.Terrain.SourceID,
			Exaggeration: cfg.Terrain.Exaggeration,
		},
		Marker: engine.MarkerSpec{
			ID:       cfg.Marker.ID,
			Position: lngLat(cfg.Marker.Position),
			IconSVG:  cfg.Marker.Icon,
			Anchor:   cfg.Marker.Anchor,
			Title:    cfg.Marker.Title,
		},
		MarkerSpotID: cfg.Marker.SpotID,
		Camera: model.CameraTarget{
			Name: cfg.Camera.Name,
			Pose: model.Pose{
				Center:  lngLat(cfg.Camera.Center),
				Zoom:    cfg.Camera.Zoom,
				Bearing: cfg.Camera.Bearing,
				Pitch:   cfg.Camera.Pitch,
			},
			Duration: cfg.Camera.Duration.Std(),
		},
		LoadingTimeout: cfg.UI.LoadingTimeout.Std(),
		LiveInterval:   cfg.UI.LiveInterval.Std(),
	}
}
