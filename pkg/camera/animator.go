// Package camera issues absolute camera transitions.
package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"iotinerary/pkg/engine"
	"iotinerary/pkg/geo"
	"iotinerary/pkg/model"
)

// ErrInvalidTarget is returned for targets outside the engine's valid ranges.
var ErrInvalidTarget = errors.New("invalid camera target")

const (
	maxZoom  = 24
	maxPitch = 85
)

// Flyer is the part of the engine the animator needs.
type Flyer interface {
	FlyTo(target model.Pose, opts engine.FlyToOptions)
}

// FlyToAbsolute sends the camera to exactly target. The pose is never derived
// from the current camera and no pivot point is applied, so repeated calls
// converge on the same resting pose.
func FlyToAbsolute(f Flyer, target model.Pose, d time.Duration) {
	f.FlyTo(target, engine.FlyToOptions{Duration: d, Essential: true})
}

// Animator flies to one configured target.
type Animator struct {
	target model.CameraTarget
	logger *slog.Logger
}

// NewAnimator validates target and returns an animator for it.
func NewAnimator(target model.CameraTarget) (*Animator, error) {
	if err := Validate(target); err != nil {
		return nil, err
	}
	return &Animator{
		target: target,
		logger: slog.With("component", "camera"),
	}, nil
}

// Validate checks a camera target.
func Validate(t model.CameraTarget) error {
	p := t.Pose
	switch {
	case !geo.ValidCoordinate(p.Center.Lng, p.Center.Lat):
		return fmt.Errorf("%w: center %s", ErrInvalidTarget, p.Center)
	case p.Zoom < 0 || p.Zoom > maxZoom:
		return fmt.Errorf("%w: zoom %.2f", ErrInvalidTarget, p.Zoom)
	case p.Pitch < 0 || p.Pitch > maxPitch:
		return fmt.Errorf("%w: pitch %.1f", ErrInvalidTarget, p.Pitch)
	case t.Duration < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidTarget)
	}
	return nil
}

// Trigger issues the configured transition.
func (a *Animator) Trigger(f Flyer) {
	a.logger.Debug("Flying to target", "target", a.target.Name, "center", a.target.Pose.Center.String())
	FlyToAbsolute(f, a.target.Pose, a.target.Duration)
}

// Target returns the configured target.
func (a *Animator) Target() model.CameraTarget { return a.target }
