// Package overlay resolves user toggle actions on the 3D overlays.
//
// Apply is the only transition function for model.OverlayToggles. It is pure:
// the same (state, action) pair always yields the same (state, notice) pair.
package overlay

import (
	"errors"
	"fmt"
	"strings"

	"iotinerary/pkg/model"
)

// Action is an intended user action on the overlay toggles.
type Action string

const (
	EnablePerformanceMode  Action = "enable_performance_mode"
	DisablePerformanceMode Action = "disable_performance_mode"
	ToggleTerrain          Action = "toggle_terrain"
	ToggleModels           Action = "toggle_models"

	// TogglePerformanceMode is what the settings checkbox sends; it resolves to
	// EnablePerformanceMode or DisablePerformanceMode from the current state.
	TogglePerformanceMode Action = "toggle_performance_mode"
)

// ErrUnknownAction is returned by ParseAction for unrecognised input.
var ErrUnknownAction = errors.New("unknown overlay action")

// Notice texts.
const (
	MsgPerformanceOnForced = "Performance mode enabled. Models disabled to improve performance."
	MsgPerformanceOn       = "Performance mode enabled. Only one 3D feature can be active at a time."
	MsgPerformanceOff      = "Performance mode disabled. Both features can be enabled."
	MsgTerrainOnForced     = "Terrain enabled. Models disabled for better performance."
	MsgTerrainOn           = "3D terrain enabled"
	MsgTerrainOff          = "3D terrain disabled"
	MsgModelsOnForced      = "3D models enabled. Terrain disabled for better performance."
	MsgModelsOn            = "3D models enabled"
	MsgModelsOff           = "3D models disabled"
)

// Notice is the user-facing outcome of a transition.
// Forced is true when the arbiter switched off a feature the user did not touch.
type Notice struct {
	Level   model.NoticeLevel `json:"level"`
	Message string            `json:"message"`
	Forced  bool              `json:"forced"`
}

// Apply returns the next toggle state and the notice for action.
// Unknown actions leave the state unchanged and yield an empty notice.
func Apply(s model.OverlayToggles, a Action) (model.OverlayToggles, Notice) {
	switch a {
	case TogglePerformanceMode:
		if s.PerformanceMode {
			return Apply(s, DisablePerformanceMode)
		}
		return Apply(s, EnablePerformanceMode)

	case EnablePerformanceMode:
		s.PerformanceMode = true
		if s.TerrainEnabled && s.ModelsEnabled {
			// Terrain is the cheaper feature, so it is the one kept.
			s.ModelsEnabled = false
			return s, info(MsgPerformanceOnForced, true)
		}
		return s, success(MsgPerformanceOn)

	case DisablePerformanceMode:
		s.PerformanceMode = false
		return s, success(MsgPerformanceOff)

	case ToggleTerrain:
		s.TerrainEnabled = !s.TerrainEnabled
		switch {
		case s.PerformanceMode && s.TerrainEnabled && s.ModelsEnabled:
			s.ModelsEnabled = false
			return s, info(MsgTerrainOnForced, true)
		case s.TerrainEnabled:
			return s, success(MsgTerrainOn)
		default:
			return s, info(MsgTerrainOff, false)
		}

	case ToggleModels:
		s.ModelsEnabled = !s.ModelsEnabled
		switch {
		case s.PerformanceMode && s.ModelsEnabled && s.TerrainEnabled:
			s.TerrainEnabled = false
			return s, info(MsgModelsOnForced, true)
		case s.ModelsEnabled:
			return s, success(MsgModelsOn)
		default:
			return s, info(MsgModelsOff, false)
		}
	}
	return s, Notice{}
}

// Normalize brings an externally supplied state (e.g. configured defaults) in line
// with the invariant, resolving a conflict the same way EnablePerformanceMode does.
func Normalize(s model.OverlayToggles) model.OverlayToggles {
	if s.PerformanceMode && s.TerrainEnabled && s.ModelsEnabled {
		s.ModelsEnabled = false
	}
	return s
}

// ParseAction maps wire names (case-insensitive, '-' or '_') to an Action.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	switch a {
	case EnablePerformanceMode, DisablePerformanceMode, ToggleTerrain, ToggleModels, TogglePerformanceMode:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Actions lists every action Apply understands.
func Actions() []Action {
	return []Action{EnablePerformanceMode, DisablePerformanceMode, ToggleTerrain, ToggleModels, TogglePerformanceMode}
}

func info(msg string, forced bool) Notice {
	return Notice{Level: model.NoticeInfo, Message: msg, Forced: forced}
}

func success(msg string) Notice {
	return Notice{Level: model.NoticeSuccess, Message: msg}
}
