package crs

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"EPSG:4326", "EPSG:4326"},
		{"epsg:32639", "EPSG:32639"},
		{"urn:ogc:def:crs:EPSG::32639", "EPSG:32639"},
		{"urn:ogc:def:crs:OGC:1.3:CRS84", "EPSG:4326"},
		{" +proj=longlat ", "+proj=longlat"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "EPSG:abc", "mercator"} {
		_, err := Normalize(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolve(t *testing.T) {
	def, err := Resolve("EPSG:32639")
	require.NoError(t, err)
	assert.Equal(t, "+proj=utm +zone=39 +datum=WGS84 +units=m +no_defs", def)

	def, err = Resolve("EPSG:32733")
	require.NoError(t, err)
	assert.Contains(t, def, "+south")

	_, err = Resolve("EPSG:2154")
	assert.Error(t, err)
}

func TestUTMZone(t *testing.T) {
	assert.Equal(t, "EPSG:32641", UTMZone(60.6, 56.84)) // Yekaterinburg
	assert.Equal(t, "EPSG:32631", UTMZone(2.35, 48.85)) // Paris
	assert.Equal(t, "EPSG:32756", UTMZone(151.2, -33.87))
	assert.Equal(t, "EPSG:32660", UTMZone(180, 0))
}

func TestRoundTrip(t *testing.T) {
	forward, err := NewTransform(WGS84, "EPSG:32639")
	require.NoError(t, err)
	inverse, err := NewTransform("EPSG:32639", WGS84)
	require.NoError(t, err)

	points := []orb.Point{
		{60.6057, 56.8389},
		{60.5, 56.9},
		{51.0, 0.0},
		{49.1, 55.79},
	}
	for _, p := range points {
		projected, err := forward(p)
		require.NoError(t, err)
		back, err := inverse(projected)
		require.NoError(t, err)

		assert.InDelta(t, p[0], back[0], 1e-6)
		assert.InDelta(t, p[1], back[1], 1e-6)
	}
}

func TestCentralMeridianFalseEasting(t *testing.T) {
	forward, err := NewTransform(WGS84, "EPSG:32639")
	require.NoError(t, err)

	// zone 39 is centred on 51E; the false easting is 500 km
	p, err := forward(orb.Point{51, 0})
	require.NoError(t, err)
	assert.InDelta(t, 500000, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], 1e-3)
}

func TestIsMetric(t *testing.T) {
	ok, err := IsMetric("EPSG:32639", 60.6, 56.84)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsMetric(WebMercator, 60.6, 56.84)
	require.NoError(t, err)
	assert.False(t, ok, "web mercator stretches distances at high latitude")
}

func TestDistance(t *testing.T) {
	// one hundredth of a degree of latitude is about 1.11 km
	assert.InDelta(t, 1.112, Distance(56.84, 60.6, 56.85, 60.6), 0.01)
	assert.Equal(t, 0.0, Distance(10, 10, 10, 10))
}

func TestSame(t *testing.T) {
	assert.True(t, Same("EPSG:4326", "urn:ogc:def:crs:OGC:1.3:CRS84"))
	assert.False(t, Same("EPSG:4326", "EPSG:32639"))
}
