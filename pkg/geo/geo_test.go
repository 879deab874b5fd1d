package geo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotinerary/pkg/model"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0},
			want: 0,
		},
		{
			name: "Virac to Pandan",
			p1:   Point{Lat: 13.5840, Lon: 124.2313},
			p2:   Point{Lat: 14.0453, Lon: 124.1693},
			want: 51730,
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111195,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			margin := tt.want * 0.01
			assert.InDelta(t, tt.want, got, margin)
		})
	}
}

func TestDistance_InvalidCoordinate(t *testing.T) {
	got := Distance(Point{Lat: 91, Lon: 0}, Point{Lat: 0, Lon: 0})
	assert.True(t, math.IsInf(got, 1))
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		lng, lat float64
		want     bool
	}{
		{124.3, 13.5, true},
		{-180, -90, true},
		{180.1, 0, false},
		{0, -90.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCoordinate(tt.lng, tt.lat), "lng=%v lat=%v", tt.lng, tt.lat)
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "13.5596, 124.3254", FormatCoordinate(Point{Lat: 13.559598, Lon: 124.325374}, 4))
	assert.Equal(t, "850m", FormatDistance(849.6))
	assert.Equal(t, "1.25km", FormatDistance(1250))
}

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 170.0, NormalizeAngle(-190))
	assert.Equal(t, -90.0, NormalizeAngle(270))
	assert.Equal(t, 45.0, NormalizeAngle(45))
}

func TestRegion_InsideRegion(t *testing.T) {
	triangle := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {0, 10}, {0, 0}}}
	r, err := NewRegion("triangle", triangle)
	require.NoError(t, err)

	tests := []struct {
		name     string
		viewport orb.Bound
		want     bool
	}{
		{"fully inside", orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{2, 2}}, true},
		{"contains region", orb.Bound{Min: orb.Point{-5, -5}, Max: orb.Point{15, 15}}, true},
		{"edge crossing", orb.Bound{Min: orb.Point{4, 4}, Max: orb.Point{8, 8}}, true},
		{"vertex inside viewport", orb.Bound{Min: orb.Point{9, -1}, Max: orb.Point{11, 1}}, true},
		{"inside bound but outside polygon", orb.Bound{Min: orb.Point{7, 7}, Max: orb.Point{9, 9}}, false},
		{"far away", orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{51, 51}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.InsideRegion(tt.viewport))
		})
	}
}

func TestRegion_Padding(t *testing.T) {
	r := NewBoundRegion("box", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}})
	near := orb.Bound{Min: orb.Point{1.005, 0.5}, Max: orb.Point{1.01, 0.6}}

	assert.False(t, r.InsideRegion(near))
	assert.True(t, r.WithPadding(2000).InsideRegion(near))
	assert.False(t, r.InsideRegion(near), "padding must not mutate the original")
}

func TestRegion_Contains(t *testing.T) {
	r := DefaultRegion()
	assert.True(t, r.Contains(orb.Point{124.2422, 13.7565}))
	assert.False(t, r.Contains(orb.Point{121.0, 14.6}))
}

func TestNewRegion_RejectsNonPolygon(t *testing.T) {
	_, err := NewRegion("line", orb.LineString{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
}

func TestLoadRegion_GeoJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "island.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[124,13.5],[124.4,13.5],[124.4,14.1],[124,14.1],[124,13.5]]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	r, err := LoadRegion("island", path)
	require.NoError(t, err)
	assert.Equal(t, "island", r.Name())
	assert.True(t, r.Contains(orb.Point{124.2, 13.8}))

	fc := r.FeatureCollection()
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "island", fc.Features[0].Properties["name"])
}

func TestLoadRegion_NoPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.geojson")
	data := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := LoadRegion("points", path)
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
}

func TestParseRegion(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[[[[124,13.5],[124.4,13.5],[124.4,14.1],[124,14.1],[124,13.5]]]]}}
	]}`)
	r, err := ParseRegion("remote", data)
	require.NoError(t, err)
	assert.True(t, r.Contains(orb.Point{124.2, 13.8}))

	_, err = ParseRegion("garbage", []byte("not json"))
	assert.Error(t, err)

	_, err = ParseRegion("empty", []byte(`{"type":"FeatureCollection","features":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
}

func TestLoadRegion_Shapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "island.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.Write(shp.NewPolyLine([][]shp.Point{{
		{X: 124, Y: 13.5}, {X: 124.4, Y: 13.5}, {X: 124.4, Y: 14.1}, {X: 124, Y: 14.1}, {X: 124, Y: 13.5},
	}}))
	w.Close()

	r, err := LoadRegion("island", path)
	require.NoError(t, err)
	assert.True(t, r.Contains(orb.Point{124.2, 13.8}))
	assert.False(t, r.Contains(orb.Point{125, 13.8}))
}

func TestViewportBounds(t *testing.T) {
	pose := model.Pose{Center: model.LngLat{Lng: 124.2422, Lat: 13.7565}, Zoom: 10}

	b := ViewportBounds(pose, 1024, 768)
	assert.True(t, b.Contains(orb.Point{124.2422, 13.7565}))
	// 1024px at z10 with 512px tiles is 1024/(512*1024) of 360 degrees
	assert.InDelta(t, 0.703, b.Max[0]-b.Min[0], 0.01)

	zoomedOut := ViewportBounds(model.Pose{Center: pose.Center, Zoom: 8}, 1024, 768)
	assert.Greater(t, zoomedOut.Max[0]-zoomedOut.Min[0], b.Max[0]-b.Min[0])

	pitched := ViewportBounds(model.Pose{Center: pose.Center, Zoom: 10, Pitch: 60}, 1024, 768)
	assert.Greater(t, pitched.Max[1], b.Max[1], "pitch extends the far edge northward")
	assert.InDelta(t, b.Min[1], pitched.Min[1], 1e-9, "near edge is unchanged")

	rotated := ViewportBounds(model.Pose{Center: pose.Center, Zoom: 10, Bearing: 45}, 1024, 768)
	assert.Greater(t, rotated.Max[1]-rotated.Min[1], b.Max[1]-b.Min[1])
}

func TestViewportBounds_EmptyCanvas(t *testing.T) {
	pose := model.Pose{Center: model.LngLat{Lng: 124, Lat: 13}, Zoom: 10}
	b := ViewportBounds(pose, 0, 0)
	assert.Equal(t, orb.Point{124, 13}, b.Min)
	assert.Equal(t, b.Min, b.Max)
}
