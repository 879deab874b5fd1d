// Package geo holds coordinate helpers and the region-of-interest geofence.
package geo

import (
	"fmt"
	"math"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// ValidCoordinate reports whether lng/lat are finite and inside the WGS84 ranges.
func ValidCoordinate(lng, lat float64) bool {
	if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Distance calculates the Haversine distance between two points in meters.
// Invalid coordinates yield +Inf.
func Distance(p1, p2 Point) float64 {
	if !ValidCoordinate(p1.Lon, p1.Lat) || !ValidCoordinate(p2.Lon, p2.Lat) {
		return math.Inf(1)
	}
	const R = 6371000 // Earth radius in meters
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}

// FormatCoordinate renders a point as "lat, lon" with the given decimals.
func FormatCoordinate(p Point, precision int) string {
	return fmt.Sprintf("%.*f, %.*f", precision, p.Lat, precision, p.Lon)
}

// FormatDistance renders meters as "850m" or "1.25km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.2fkm", meters/1000)
}

// MetersToDegrees converts a ground distance to degrees of latitude (and, at lat,
// the larger longitudinal equivalent), for padding bounding boxes.
func MetersToDegrees(meters, lat float64) float64 {
	const metersPerDegree = 111320.0
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	return meters / (metersPerDegree * cos)
}
