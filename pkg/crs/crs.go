// Package crs resolves coordinate reference system names and builds
// point transforms between them.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

const (
	// WGS84 is geographic longitude/latitude, the GeoJSON default.
	WGS84 = "EPSG:4326"
	// WebMercator is the projection of web map tiles.
	WebMercator = "EPSG:3857"

	earthRadius = 6371.0 // km
)

var wellKnown = map[string]string{
	WGS84:       "+proj=longlat +datum=WGS84 +no_defs",
	WebMercator: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
}

// Transform maps a point from one CRS to another.
type Transform func(orb.Point) (orb.Point, error)

// Normalize turns the accepted spellings of a CRS into a canonical name:
// "EPSG:<code>" for EPSG identifiers and the trimmed input for proj4 strings.
func Normalize(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", fmt.Errorf("empty crs name")
	}
	if strings.HasPrefix(s, "+") {
		return s, nil
	}

	upper := strings.ToUpper(s)
	switch upper {
	case "CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "URN:OGC:DEF:CRS:OGC::CRS84", "WGS84":
		return WGS84, nil
	}

	var code string
	switch {
	case strings.HasPrefix(upper, "EPSG:"):
		code = upper[len("EPSG:"):]
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		// urn:ogc:def:crs:EPSG::32639 and urn:ogc:def:crs:EPSG:6.6:32639
		code = upper[strings.LastIndex(upper, ":")+1:]
	default:
		return "", fmt.Errorf("unrecognized crs %q", name)
	}

	if _, err := strconv.Atoi(code); err != nil {
		return "", fmt.Errorf("invalid epsg code in %q", name)
	}
	return "EPSG:" + code, nil
}

// Resolve returns the proj4 definition for a CRS name.
func Resolve(name string) (string, error) {
	canonical, err := Normalize(name)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(canonical, "+") {
		return canonical, nil
	}
	if def, ok := wellKnown[canonical]; ok {
		return def, nil
	}

	code, _ := strconv.Atoi(strings.TrimPrefix(canonical, "EPSG:"))
	switch {
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	}
	return "", fmt.Errorf("unsupported crs %s: use a proj4 string instead", canonical)
}

// Same reports whether two names denote the same CRS.
func Same(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	return errA == nil && errB == nil && na == nb
}

// projection maps between WGS84 longitude/latitude and a CRS.
type projection interface {
	forward(lon, lat float64) (x, y float64, err error)
	inverse(x, y float64) (lon, lat float64, err error)
}

type geographic struct{}

func (geographic) forward(lon, lat float64) (float64, float64, error) { return lon, lat, nil }
func (geographic) inverse(x, y float64) (float64, float64, error)     { return x, y, nil }

// proj4 delegates to a parsed proj4 spatial reference.
type proj4 struct {
	to, from proj.Transformer
}

func (p proj4) forward(lon, lat float64) (float64, float64, error) { return p.to(lon, lat) }
func (p proj4) inverse(x, y float64) (float64, float64, error)     { return p.from(x, y) }

func newProjection(name string) (projection, error) {
	def, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	if Same(name, WGS84) {
		return geographic{}, nil
	}
	if u, ok := utmFromProj4(def); ok {
		return u, nil
	}

	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	lonlat, err := proj.Parse(wellKnown[WGS84])
	if err != nil {
		return nil, err
	}
	to, err := lonlat.NewTransform(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform to %s: %w", name, err)
	}
	from, err := sr.NewTransform(lonlat)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform from %s: %w", name, err)
	}
	if to == nil || from == nil {
		// proj returns no transformer when name is longlat on WGS84
		return geographic{}, nil
	}
	return proj4{to: to, from: from}, nil
}

// NewTransform builds the transform from src to dst. Points pass through
// WGS84 longitude/latitude.
func NewTransform(src, dst string) (Transform, error) {
	from, err := newProjection(src)
	if err != nil {
		return nil, fmt.Errorf("source crs: %w", err)
	}
	to, err := newProjection(dst)
	if err != nil {
		return nil, fmt.Errorf("target crs: %w", err)
	}

	return func(p orb.Point) (orb.Point, error) {
		lon, lat, err := from.inverse(p[0], p[1])
		if err != nil {
			return p, err
		}
		x, y, err := to.forward(lon, lat)
		if err != nil {
			return p, err
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return p, fmt.Errorf("point %v has no image in %s", p, dst)
		}
		return orb.Point{x, y}, nil
	}, nil
}

// UTMZone returns the WGS84 UTM EPSG code covering lon/lat.
func UTMZone(lon, lat float64) string {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	if lat < 0 {
		return fmt.Sprintf("EPSG:%d", 32700+zone)
	}
	return fmt.Sprintf("EPSG:%d", 32600+zone)
}

// IsMetric checks whether a short north-south step at lon/lat measures
// within 10% of its great-circle length once projected into name.
func IsMetric(name string, lon, lat float64) (bool, error) {
	t, err := NewTransform(WGS84, name)
	if err != nil {
		return false, err
	}
	const step = 0.01
	a, err := t(orb.Point{lon, lat})
	if err != nil {
		return false, err
	}
	b, err := t(orb.Point{lon, lat + step})
	if err != nil {
		return false, err
	}

	planar := math.Hypot(b[0]-a[0], b[1]-a[1])
	geodesic := Distance(lat, lon, lat+step, lon) * 1000
	if geodesic == 0 {
		return false, nil
	}
	ratio := planar / geodesic
	return ratio > 0.9 && ratio < 1.1, nil
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
