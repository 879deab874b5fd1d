package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotinerary/pkg/model"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		state      model.OverlayToggles
		action     Action
		want       model.OverlayToggles
		wantLevel  model.NoticeLevel
		wantMsg    string
		wantForced bool
	}{
		{
			name:      "EnablePerformance_BothOn_ForcesModelsOff",
			state:     model.OverlayToggles{TerrainEnabled: true, ModelsEnabled: true},
			action:    EnablePerformanceMode,
			want:      model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			wantLevel: model.NoticeInfo, wantMsg: MsgPerformanceOnForced, wantForced: true,
		},
		{
			name:      "EnablePerformance_TerrainOnly_Unchanged",
			state:     model.OverlayToggles{TerrainEnabled: true},
			action:    EnablePerformanceMode,
			want:      model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			wantLevel: model.NoticeSuccess, wantMsg: MsgPerformanceOn,
		},
		{
			name:      "EnablePerformance_ModelsOnly_Unchanged",
			state:     model.OverlayToggles{ModelsEnabled: true},
			action:    EnablePerformanceMode,
			want:      model.OverlayToggles{PerformanceMode: true, ModelsEnabled: true},
			wantLevel: model.NoticeSuccess, wantMsg: MsgPerformanceOn,
		},
		{
			name:      "DisablePerformance_NoForcedChange",
			state:     model.OverlayToggles{PerformanceMode: true, ModelsEnabled: true},
			action:    DisablePerformanceMode,
			want:      model.OverlayToggles{ModelsEnabled: true},
			wantLevel: model.NoticeSuccess, wantMsg: MsgPerformanceOff,
		},
		{
			name:      "ToggleTerrain_Performance_ForcesModelsOff",
			state:     model.OverlayToggles{PerformanceMode: true, ModelsEnabled: true},
			action:    ToggleTerrain,
			want:      model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			wantLevel: model.NoticeInfo, wantMsg: MsgTerrainOnForced, wantForced: true,
		},
		{
			name:      "ToggleModels_Performance_ForcesTerrainOff",
			state:     model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			action:    ToggleModels,
			want:      model.OverlayToggles{PerformanceMode: true, ModelsEnabled: true},
			wantLevel: model.NoticeInfo, wantMsg: MsgModelsOnForced, wantForced: true,
		},
		{
			name:      "ToggleTerrain_Off_Performance",
			state:     model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			action:    ToggleTerrain,
			want:      model.OverlayToggles{PerformanceMode: true},
			wantLevel: model.NoticeInfo, wantMsg: MsgTerrainOff,
		},
		{
			name:      "ToggleModels_Independent_OutsidePerformance",
			state:     model.OverlayToggles{TerrainEnabled: true},
			action:    ToggleModels,
			want:      model.OverlayToggles{TerrainEnabled: true, ModelsEnabled: true},
			wantLevel: model.NoticeSuccess, wantMsg: MsgModelsOn,
		},
		{
			name:      "ToggleModels_Off",
			state:     model.OverlayToggles{ModelsEnabled: true},
			action:    ToggleModels,
			want:      model.OverlayToggles{},
			wantLevel: model.NoticeInfo, wantMsg: MsgModelsOff,
		},
		{
			name:      "TogglePerformance_ResolvesToEnable",
			state:     model.OverlayToggles{TerrainEnabled: true, ModelsEnabled: true},
			action:    TogglePerformanceMode,
			want:      model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true},
			wantLevel: model.NoticeInfo, wantMsg: MsgPerformanceOnForced, wantForced: true,
		},
		{
			name:      "TogglePerformance_ResolvesToDisable",
			state:     model.OverlayToggles{PerformanceMode: true},
			action:    TogglePerformanceMode,
			want:      model.OverlayToggles{},
			wantLevel: model.NoticeSuccess, wantMsg: MsgPerformanceOff,
		},
		{
			name:   "UnknownAction_NoChange",
			state:  model.OverlayToggles{TerrainEnabled: true},
			action: Action("explode"),
			want:   model.OverlayToggles{TerrainEnabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notice := Apply(tt.state, tt.action)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantLevel, notice.Level)
			assert.Equal(t, tt.wantMsg, notice.Message)
			assert.Equal(t, tt.wantForced, notice.Forced)
		})
	}
}

// Every action sequence up to length 5 from every valid start keeps the invariant.
func TestApply_InvariantHoldsForAllSequences(t *testing.T) {
	actions := Actions()

	var walk func(s model.OverlayToggles, depth int, path []Action)
	walk = func(s model.OverlayToggles, depth int, path []Action) {
		if depth == 0 {
			return
		}
		for _, a := range actions {
			next, _ := Apply(s, a)
			if !next.Valid() {
				t.Fatalf("invariant broken after %v + %s: %+v", path, a, next)
			}
			walk(next, depth-1, append(path, a))
		}
	}

	for _, start := range allStates() {
		if !start.Valid() {
			continue
		}
		walk(start, 5, nil)
	}
}

func TestApply_Deterministic(t *testing.T) {
	for _, s := range allStates() {
		for _, a := range Actions() {
			s1, n1 := Apply(s, a)
			s2, n2 := Apply(s, a)
			assert.Equal(t, s1, s2)
			assert.Equal(t, n1, n2)
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, s := range allStates() {
		n := Normalize(s)
		assert.True(t, n.Valid(), "normalize(%+v) = %+v", s, n)
		if s.Valid() {
			assert.Equal(t, s, n, "valid states are left alone")
		}
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Toggle-Terrain")
	require.NoError(t, err)
	assert.Equal(t, ToggleTerrain, a)

	a, err = ParseAction(" enable_performance_mode ")
	require.NoError(t, err)
	assert.Equal(t, EnablePerformanceMode, a)

	_, err = ParseAction("toggle_everything")
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func allStates() []model.OverlayToggles {
	var out []model.OverlayToggles
	for i := 0; i < 8; i++ {
		out = append(out, model.OverlayToggles{
			PerformanceMode: i&1 != 0,
			TerrainEnabled:  i&2 != 0,
			ModelsEnabled:   i&4 != 0,
		})
	}
	return out
}
