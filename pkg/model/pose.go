package model

import (
	"fmt"
	"math"
	"time"
)

// LngLat is a geographic position in degrees.
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Array returns the position in [lng, lat] order, as map engines expect it.
func (p LngLat) Array() [2]float64 {
	return [2]float64{p.Lng, p.Lat}
}

func (p LngLat) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
}

// Pose is the camera pose of a map viewport.
// It is always replaced wholesale; consumers never merge individual fields.
type Pose struct {
	Center  LngLat  `json:"center"`
	Zoom    float64 `json:"zoom"`
	Bearing float64 `json:"bearing"` // Degrees
	Pitch   float64 `json:"pitch"`   // Degrees
}

// IsZero reports whether the pose was never set.
func (p Pose) IsZero() bool {
	return p == Pose{}
}

// ApproxEqual compares two poses with the given tolerance on every field.
func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	return math.Abs(p.Center.Lng-o.Center.Lng) <= eps &&
		math.Abs(p.Center.Lat-o.Center.Lat) <= eps &&
		math.Abs(p.Zoom-o.Zoom) <= eps &&
		math.Abs(p.Bearing-o.Bearing) <= eps &&
		math.Abs(p.Pitch-o.Pitch) <= eps
}

// CameraTarget is a fixed, named absolute pose the camera can be sent to.
type CameraTarget struct {
	Name     string        `json:"name"`
	Pose     Pose          `json:"pose"`
	Duration time.Duration `json:"duration"`
}
