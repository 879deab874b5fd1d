package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotinerary/pkg/config"
	"iotinerary/pkg/engine/mockengine"
	"iotinerary/pkg/engine/remote"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/request"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tempConfig := `
server:
    address: localhost:0
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(dir, "server.log")) + `"
        level: "debug"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(dir, "requests.log")) + `"
        level: "info"
    events:
        path: "` + filepath.ToSlash(filepath.Join(dir, "events.log")) + `"
        level: "info"
engine:
    provider: mock
    auto_load: 20ms
`
	path := filepath.Join(dir, "iotinerary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tempConfig), 0o644))

	// Cancel quickly to verify the startup and shutdown sequence
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.NoError(t, run(ctx, path))
}

func TestNewEngine(t *testing.T) {
	loop := mapview.NewLoop(1)
	cfg := config.DefaultConfig()

	cfg.Engine.Provider = "mock"
	eng, err := newEngine(cfg, loop)
	require.NoError(t, err)
	assert.IsType(t, &mockengine.Factory{}, eng.factory)
	assert.Nil(t, eng.bridge)

	cfg.Engine.Provider = "remote"
	eng, err = newEngine(cfg, loop)
	require.NoError(t, err)
	assert.IsType(t, &remote.Bridge{}, eng.factory)
	assert.NotNil(t, eng.bridge)

	cfg.Engine.Provider = "webgl"
	_, err = newEngine(cfg, loop)
	assert.Error(t, err)
}

func TestViewSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Map.APIKey = "k"

	s := viewSettings(cfg)
	assert.Equal(t, "https://api.maptiler.com/maps/satellite/style.json?key=k", s.Options.StyleURL)
	assert.Equal(t, "raster-dem", s.TerrainSource.Type)
	assert.Equal(t, cfg.Terrain.SourceID, s.Terrain.Source)
	assert.Equal(t, 2*time.Second, s.Camera.Duration)
	assert.Equal(t, 60.0, s.Camera.Pose.Pitch)
	assert.NoError(t, s.Marker.Validate())

	_, err := mapview.New(mapview.Deps{}, s)
	assert.Error(t, err, "dependencies are still required")
}

func TestLoadRegion(t *testing.T) {
	cfg := config.DefaultConfig()
	ctx := context.Background()
	region, err := loadRegion(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Catanduanes", region.Name())

	westOfIsland := orb.Bound{Min: orb.Point{123.95, 13.8}, Max: orb.Point{123.97, 13.9}}
	assert.False(t, region.InsideRegion(westOfIsland))

	cfg.Region.Padding = config.Distance(5000)
	padded, err := loadRegion(ctx, cfg, nil)
	require.NoError(t, err)
	assert.True(t, padded.InsideRegion(westOfIsland))

	cfg.Region.Path = filepath.Join(t.TempDir(), "missing.geojson")
	_, err = loadRegion(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestLoadRegion_URL(t *testing.T) {
	outline := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[124.0,13.5],[124.5,13.5],[124.5,14.1],[124.0,14.1],[124.0,13.5]]]}}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catanduanes.geojson" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(outline))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Region.Path = srv.URL + "/catanduanes.geojson"
	region, err := loadRegion(context.Background(), cfg, request.New(nil))
	require.NoError(t, err)
	assert.True(t, region.Contains(orb.Point{124.24, 13.8}))
	assert.False(t, region.Contains(orb.Point{123.9, 13.8}))

	cfg.Region.Path = srv.URL + "/missing.geojson"
	_, err = loadRegion(context.Background(), cfg, request.New(nil))
	assert.Error(t, err)
}

func TestOverlayDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Overlays.Models = true
	got := overlayDefaults(cfg)
	assert.True(t, got.Valid())
	assert.True(t, got.TerrainEnabled)
	assert.False(t, got.ModelsEnabled)
}
