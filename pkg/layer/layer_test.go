package layer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Rastorguev-Kharitonov estate"}, "geometry": {"type": "Point", "coordinates": [60.6129, 56.8432]}},
    {"type": "Feature", "properties": {"name": "Sevastyanov house"}, "geometry": {"type": "Point", "coordinates": [60.6033, 56.8380]}},
    {"type": "Feature", "properties": {"name": "Dam"}, "geometry": {"type": "MultiPoint", "coordinates": [[60.6050, 56.8386]]}}
  ]
}`

const polygonsJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:OGC:1.3:CRS84"}},
  "features": [
    {"type": "Feature", "properties": {"id": 1}, "geometry": {"type": "Polygon", "coordinates": [[[60.60, 56.83], [60.61, 56.83], [60.61, 56.84], [60.60, 56.84], [60.60, 56.83]]]}}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFile(t *testing.T) {
	l, err := ReadFile("points", writeFile(t, "points.geojson", pointsJSON))
	require.NoError(t, err)

	assert.Equal(t, "points", l.Name)
	assert.Equal(t, "EPSG:4326", l.CRS)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "Sevastyanov house", l.Collection.Features[1].Properties.MustString("name"))
}

func TestReadFileCRSMember(t *testing.T) {
	l, err := ReadFile("bounds", writeFile(t, "bounds.geojson", polygonsJSON))
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", l.CRS)
	_, kept := l.Collection.ExtraMembers["crs"]
	assert.False(t, kept, "crs member is carried by Layer.CRS only")

	projected := strings.Replace(polygonsJSON, "urn:ogc:def:crs:OGC:1.3:CRS84", "urn:ogc:def:crs:EPSG::32639", 1)
	l, err = ReadFile("bounds", writeFile(t, "bounds.geojson", projected))
	require.NoError(t, err)
	assert.Equal(t, "EPSG:32639", l.CRS)
}

func TestReadFileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		target  error
	}{
		{"malformed", `{"type": "FeatureCollection", "features": [`, nil},
		{"empty", `{"type": "FeatureCollection", "features": []}`, ErrEmptyLayer},
		{"null geometry", `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": null}]}`, ErrInvalidGeometry},
		{"open ring", `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[0,0]]]}}]}`, ErrInvalidGeometry},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadFile("layer", writeFile(t, "layer.geojson", tc.content))
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}

	_, err := ReadFile("missing", filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReprojectRoundTrip(t *testing.T) {
	l, err := ReadFile("bounds", writeFile(t, "bounds.geojson", polygonsJSON))
	require.NoError(t, err)
	original := orb.Clone(l.Collection.Features[0].Geometry).(orb.Polygon)

	utm, err := l.Reproject("EPSG:32639")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:32639", utm.CRS)

	// source layer untouched
	assert.Equal(t, original, l.Collection.Features[0].Geometry)

	ring := utm.Collection.Features[0].Geometry.(orb.Polygon)[0]
	width := ring[1][0] - ring[0][0]
	// 0.01 deg of longitude at 56.83N is roughly 610 m
	assert.InDelta(t, 610, width, 15)

	back, err := utm.Reproject("EPSG:4326")
	require.NoError(t, err)
	got := back.Collection.Features[0].Geometry.(orb.Polygon)
	for i, p := range original[0] {
		assert.InDelta(t, p[0], got[0][i][0], 1e-6)
		assert.InDelta(t, p[1], got[0][i][1], 1e-6)
	}
}

func TestReprojectSameCRSClones(t *testing.T) {
	l, err := ReadFile("points", writeFile(t, "points.geojson", pointsJSON))
	require.NoError(t, err)

	same, err := l.Reproject("urn:ogc:def:crs:OGC:1.3:CRS84")
	require.NoError(t, err)
	same.Collection.Features[0].Properties["name"] = "changed"
	assert.Equal(t, "Rastorguev-Kharitonov estate", l.Collection.Features[0].Properties["name"])
}

func TestPoints(t *testing.T) {
	l, err := ReadFile("points", writeFile(t, "points.geojson", pointsJSON))
	require.NoError(t, err)

	points, err := l.Points()
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, orb.Point{60.6050, 56.8386}, points[2])

	polygons, err := ReadFile("bounds", writeFile(t, "bounds.geojson", polygonsJSON))
	require.NoError(t, err)
	_, err = polygons.Points()
	assert.ErrorIs(t, err, ErrNotPoint)
}

func TestCentroidsAndBound(t *testing.T) {
	l, err := ReadFile("bounds", writeFile(t, "bounds.geojson", polygonsJSON))
	require.NoError(t, err)

	c := l.Centroids()
	require.Len(t, c, 1)
	assert.InDelta(t, 60.605, c[0][0], 1e-9)
	assert.InDelta(t, 56.835, c[0][1], 1e-9)

	b := l.Bound()
	assert.Equal(t, orb.Point{60.60, 56.83}, b.Min)
	assert.Equal(t, orb.Point{60.61, 56.84}, b.Max)
}
