package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"iotinerary/pkg/model"
)

const (
	// TileSize is the vector tile size used by the map engine.
	TileSize = 512
	// MaxMercatorLat is the latitude limit of the Web Mercator projection.
	MaxMercatorLat = 85.051129

	maxPitchStretch = 4.0
)

// ViewportBounds approximates the geographic rectangle visible for a pose on a
// canvas of width x height pixels. Bearing rotates the frame; pitch stretches the
// far (top) edge.
func ViewportBounds(pose model.Pose, width, height int) orb.Bound {
	if width <= 0 || height <= 0 {
		c := orb.Point{pose.Center.Lng, pose.Center.Lat}
		return orb.Bound{Min: c, Max: c}
	}

	worldSize := TileSize * math.Pow(2, pose.Zoom)
	metersPerPixel := 2 * math.Pi * orb.EarthRadius / worldSize

	stretch := 1.0
	if pose.Pitch > 0 {
		stretch = math.Min(1/math.Cos(pose.Pitch*math.Pi/180), maxPitchStretch)
	}

	hw, hh := float64(width)/2, float64(height)/2
	corners := [][2]float64{
		{-hw * stretch, -hh * stretch},
		{hw * stretch, -hh * stretch},
		{hw, hh},
		{-hw, hh},
	}

	center := project.WGS84.ToMercator(orb.Point{pose.Center.Lng, clampLat(pose.Center.Lat)})
	b := NormalizeAngle(pose.Bearing) * math.Pi / 180
	sin, cos := math.Sin(b), math.Cos(b)

	var bound orb.Bound
	for i, c := range corners {
		// screen y grows downward
		east := c[0]*cos - c[1]*sin
		north := -c[0]*sin - c[1]*cos

		p := project.Mercator.ToWGS84(orb.Point{
			center[0] + east*metersPerPixel,
			center[1] + north*metersPerPixel,
		})
		p[0] = math.Max(-180, math.Min(180, p[0]))
		p[1] = clampLat(p[1])

		if i == 0 {
			bound = orb.Bound{Min: p, Max: p}
			continue
		}
		bound = bound.Extend(p)
	}
	return bound
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, lat))
}
