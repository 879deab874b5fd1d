package model

// OverlayToggles is the user-facing switch state of the 3D overlays.
type OverlayToggles struct {
	PerformanceMode bool `json:"performance_mode"`
	TerrainEnabled  bool `json:"terrain_enabled"`
	ModelsEnabled   bool `json:"models_enabled"`
}

// Valid reports whether the mutual-exclusion invariant holds:
// in performance mode at most one of terrain and models is enabled.
func (t OverlayToggles) Valid() bool {
	return !t.PerformanceMode || !(t.TerrainEnabled && t.ModelsEnabled)
}
