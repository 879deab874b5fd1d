package geo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrUnsupportedGeometry is returned when a region source holds no polygonal geometry.
var ErrUnsupportedGeometry = errors.New("region requires polygon geometry")

// CatanduanesBound is the default region of interest.
var CatanduanesBound = orb.Bound{
	Min: orb.Point{123.98, 13.50},
	Max: orb.Point{124.45, 14.12},
}

// Region is the single region of interest in which terrain may be shown.
// It is immutable after construction and safe for concurrent use.
type Region struct {
	name   string
	geom   orb.Geometry
	bound  orb.Bound
	padDeg float64
}

// NewBoundRegion creates a rectangular region.
func NewBoundRegion(name string, b orb.Bound) *Region {
	return &Region{name: name, geom: b, bound: b}
}

// NewRegion creates a region from a Polygon, MultiPolygon or Bound.
func NewRegion(name string, g orb.Geometry) (*Region, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Bound:
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedGeometry, g)
	}
	if len(polygonsOf(g)) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", ErrUnsupportedGeometry)
	}
	return &Region{name: name, geom: g, bound: g.Bound()}, nil
}

// LoadRegion reads a region from a GeoJSON (.geojson/.json) or shapefile (.shp).
// All polygonal features are merged into one MultiPolygon.
func LoadRegion(name, path string) (*Region, error) {
	var (
		mp  orb.MultiPolygon
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		mp, err = readShapefile(path)
	default:
		mp, err = readGeoJSON(path)
	}
	if err != nil {
		return nil, err
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, path)
	}
	return NewRegion(name, mp)
}

// DefaultRegion returns the built-in Catanduanes region.
func DefaultRegion() *Region {
	return NewBoundRegion("Catanduanes", CatanduanesBound)
}

// WithPadding returns a copy whose viewport test is widened by meters on every side.
func (r *Region) WithPadding(meters float64) *Region {
	cp := *r
	cp.padDeg = MetersToDegrees(meters, r.bound.Center()[1])
	return &cp
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

// Bound returns the bounding box of the region.
func (r *Region) Bound() orb.Bound { return r.bound }

// Contains reports whether the point lies in the region.
func (r *Region) Contains(p orb.Point) bool {
	return r.bound.Contains(p) && containsPoint(r.geom, p)
}

// InsideRegion reports whether the viewport rectangle intersects the region.
// It is a pure predicate.
func (r *Region) InsideRegion(viewport orb.Bound) bool {
	if r.padDeg > 0 {
		viewport = viewport.Pad(r.padDeg)
	}
	if !r.bound.Intersects(viewport) {
		return false
	}
	if _, ok := r.geom.(orb.Bound); ok {
		return true
	}
	for _, poly := range polygonsOf(r.geom) {
		if polygonIntersectsBound(poly, viewport) {
			return true
		}
	}
	return false
}

// FeatureCollection exports the region as GeoJSON.
func (r *Region) FeatureCollection() *geojson.FeatureCollection {
	geom := r.geom
	if b, ok := geom.(orb.Bound); ok {
		geom = b.ToPolygon()
	}
	f := geojson.NewFeature(geom)
	f.Properties["name"] = r.name
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}

// ParseRegion builds a region from GeoJSON feature collection bytes, for
// outlines fetched over the network.
func ParseRegion(name string, data []byte) (*Region, error) {
	mp, err := parseGeoJSON(data)
	if err != nil {
		return nil, err
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: no polygons in %s", ErrUnsupportedGeometry, name)
	}
	return NewRegion(name, mp)
}

func readGeoJSON(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region geojson %s: %w", path, err)
	}
	mp, err := parseGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mp, nil
}

func parseGeoJSON(data []byte) (orb.MultiPolygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse region geojson: %w", err)
	}

	var mp orb.MultiPolygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	return mp, nil
}

func readShapefile(path string) (orb.MultiPolygon, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	var mp orb.MultiPolygon
	for shape.Next() {
		_, p := shape.Shape()
		if s, ok := p.(*shp.Polygon); ok {
			mp = append(mp, convertPolygon(s))
		}
	}
	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}
	return mp, nil
}

// convertPolygon treats all parts as rings of a single polygon.
func convertPolygon(s *shp.Polygon) orb.Polygon {
	var poly orb.Polygon

	for i := 0; i < int(s.NumParts); i++ {
		start := s.Parts[i]
		end := s.NumPoints
		if i < int(s.NumParts)-1 {
			end = s.Parts[i+1]
		}

		var ring orb.Ring
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{s.Points[j].X, s.Points[j].Y})
		}
		poly = append(poly, ring)
	}
	return poly
}
