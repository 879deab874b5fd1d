package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlayToggles_Valid(t *testing.T) {
	tests := []struct {
		name    string
		toggles OverlayToggles
		want    bool
	}{
		{"AllOff", OverlayToggles{}, true},
		{"BothOn_NoPerformance", OverlayToggles{TerrainEnabled: true, ModelsEnabled: true}, true},
		{"BothOn_Performance", OverlayToggles{PerformanceMode: true, TerrainEnabled: true, ModelsEnabled: true}, false},
		{"TerrainOnly_Performance", OverlayToggles{PerformanceMode: true, TerrainEnabled: true}, true},
		{"ModelsOnly_Performance", OverlayToggles{PerformanceMode: true, ModelsEnabled: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.toggles.Valid())
		})
	}
}

func TestPose_ApproxEqual(t *testing.T) {
	a := Pose{Center: LngLat{Lng: 124.325374, Lat: 13.559598}, Zoom: 19.28, Pitch: 60}
	b := a
	b.Zoom += 1e-9

	assert.True(t, a.ApproxEqual(b, 1e-6))
	assert.False(t, a.ApproxEqual(Pose{}, 1e-6))
	assert.True(t, Pose{}.IsZero())
	assert.Equal(t, [2]float64{124.325374, 13.559598}, a.Center.Array())
}

func TestLifecycleStatus_Terminal(t *testing.T) {
	assert.False(t, StatusInitializing.Terminal())
	assert.True(t, StatusLoaded.Terminal())
	assert.True(t, StatusErrored.Terminal())
}
