package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// containsPoint checks if a geometry contains a point.
func containsPoint(geom orb.Geometry, point orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, point)
	case orb.MultiPolygon:
		for _, poly := range g {
			if planar.PolygonContains(poly, point) {
				return true
			}
		}
	case orb.Bound:
		return g.Contains(point)
	}
	return false
}

// polygonsOf flattens a region geometry into its polygons.
func polygonsOf(geom orb.Geometry) []orb.Polygon {
	switch g := geom.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return []orb.Polygon(g)
	case orb.Bound:
		return []orb.Polygon{g.ToPolygon()}
	}
	return nil
}

// polygonIntersectsBound reports whether a polygon and a rectangle share any area or edge.
func polygonIntersectsBound(poly orb.Polygon, b orb.Bound) bool {
	if len(poly) == 0 || !poly.Bound().Intersects(b) {
		return false
	}

	corners := []orb.Point{b.Min, {b.Max[0], b.Min[1]}, b.Max, {b.Min[0], b.Max[1]}}
	for _, c := range corners {
		if planar.PolygonContains(poly, c) {
			return true
		}
	}
	if planar.PolygonContains(poly, b.Center()) {
		return true
	}

	outer := poly[0]
	for _, p := range outer {
		if b.Contains(p) {
			return true
		}
	}

	for i := 0; i < len(outer)-1; i++ {
		for j := 0; j < len(corners); j++ {
			if segmentsIntersect(outer[i], outer[i+1], corners[j], corners[(j+1)%len(corners)]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect reports whether segment p1p2 crosses or touches segment q1q2.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
