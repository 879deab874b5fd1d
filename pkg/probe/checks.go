package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"iotinerary/pkg/config"
	"iotinerary/pkg/engine"
	"iotinerary/pkg/geo"
)

// ErrMissingKey is reported when a MapTiler URL has no key to substitute.
var ErrMissingKey = errors.New("maptiler api key not set")

// Fetcher downloads a URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Startup returns the checks run before the server starts. The style check
// only runs for the browser engine, which is the one that loads it.
func Startup(cfg *config.Config, region *geo.Region, fetch Fetcher) []Probe {
	probes := []Probe{
		{Name: "Config", Check: ConfigValid(cfg), Critical: true},
		{Name: "Marker icon", Check: MarkerIcon(cfg.Marker.Icon), Critical: true},
		{Name: "Region", Check: RegionCovers(region, cfg.Marker.Position, cfg.Camera.Center), Critical: true},
		{Name: "MapTiler key", Check: MapTilerKey(cfg)},
	}
	if fetch != nil && cfg.Engine.Provider == "remote" && cfg.Map.APIKey != "" {
		probes = append(probes, Probe{
			Name:    "Map style",
			Check:   StyleReachable(fetch, cfg.ResolvedStyleURL()),
			Timeout: 10 * time.Second,
		})
	}
	return probes
}

// StyleReachable downloads a style document and checks it looks like a
// MapLibre style.
func StyleReachable(fetch Fetcher, styleURL string) CheckFunc {
	return func(ctx context.Context) error {
		data, err := fetch.Get(ctx, styleURL)
		if err != nil {
			return err
		}
		var style struct {
			Version int                        `json:"version"`
			Sources map[string]json.RawMessage `json:"sources"`
		}
		if err := json.Unmarshal(data, &style); err != nil {
			return fmt.Errorf("style is not json: %w", err)
		}
		if style.Version == 0 || len(style.Sources) == 0 {
			return errors.New("style has no version or sources")
		}
		return nil
	}
}

// ConfigValid runs the config validation.
func ConfigValid(cfg *config.Config) CheckFunc {
	return func(context.Context) error {
		return cfg.Validate()
	}
}

// MarkerIcon checks that the icon markup is a single SVG element.
func MarkerIcon(markup string) CheckFunc {
	return func(context.Context) error {
		return engine.ValidateIcon(markup)
	}
}

// RegionCovers checks that every point lies inside the region, so the
// camera target and marker are places where terrain can attach.
func RegionCovers(region *geo.Region, points ...[2]float64) CheckFunc {
	return func(context.Context) error {
		if region == nil {
			return errors.New("no region loaded")
		}
		var outside []string
		for _, p := range points {
			if !region.Contains(orb.Point{p[0], p[1]}) {
				outside = append(outside, fmt.Sprintf("%.4f,%.4f", p[0], p[1]))
			}
		}
		if len(outside) > 0 {
			return fmt.Errorf("outside region %q: %s", region.Name(), strings.Join(outside, " "))
		}
		return nil
	}
}

// MapTilerKey fails when a templated URL has no key. The headless engine
// never fetches tiles, so only the remote provider needs one.
func MapTilerKey(cfg *config.Config) CheckFunc {
	return func(context.Context) error {
		if cfg.Engine.Provider != "remote" {
			return nil
		}
		templated := strings.Contains(cfg.Map.StyleURL, "{key}") || strings.Contains(cfg.Terrain.TilesURL, "{key}")
		if templated && cfg.Map.APIKey == "" {
			return fmt.Errorf("%w: set map.api_key or %s", ErrMissingKey, config.APIKeyEnv)
		}
		return nil
	}
}
