// Package layer loads vector layers from GeoJSON and moves them between
// coordinate reference systems.
package layer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kass/heritage-map/pkg/crs"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

var (
	ErrEmptyLayer      = errors.New("layer has no features")
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrNotPoint        = errors.New("geometry is not a point")
)

// Layer is a named feature collection together with its CRS.
// Layers are treated as immutable: Reproject returns a new value.
type Layer struct {
	Name       string
	CRS        string
	Collection *geojson.FeatureCollection
}

// New validates fc and wraps it in a Layer.
func New(name, crsName string, fc *geojson.FeatureCollection) (*Layer, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyLayer)
	}
	canonical, err := crs.Normalize(crsName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for i, f := range fc.Features {
		if err := Validate(f.Geometry); err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", name, i, err)
		}
	}
	return &Layer{Name: name, CRS: canonical, Collection: fc}, nil
}

// ReadFile loads a GeoJSON FeatureCollection from path.
func ReadFile(name, path string) (*Layer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s layer: %w", name, err)
	}
	defer file.Close()

	l, err := Decode(name, file)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", name, path, err)
	}
	return l, nil
}

// Decode reads a GeoJSON FeatureCollection. The CRS comes from the legacy
// "crs" member when present, EPSG:4326 otherwise.
func Decode(name string, r io.Reader) (*Layer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}

	crsName := crs.WGS84
	if named, ok := crsMember(fc); ok {
		crsName = named
	}
	delete(fc.ExtraMembers, "crs")

	return New(name, crsName, fc)
}

// crsMember extracts {"crs": {"type": "name", "properties": {"name": ...}}}.
func crsMember(fc *geojson.FeatureCollection) (string, bool) {
	raw, ok := fc.ExtraMembers["crs"].(map[string]interface{})
	if !ok {
		return "", false
	}
	props, ok := raw["properties"].(map[string]interface{})
	if !ok {
		return "", false
	}
	name, ok := props["name"].(string)
	return name, ok && name != ""
}

// Len returns the number of features.
func (l *Layer) Len() int {
	return len(l.Collection.Features)
}

// Clone deep-copies geometries and properties.
func (l *Layer) Clone() *Layer {
	fc := geojson.NewFeatureCollection()
	for _, f := range l.Collection.Features {
		nf := geojson.NewFeature(orb.Clone(f.Geometry))
		nf.ID = f.ID
		nf.Properties = f.Properties.Clone()
		fc.Append(nf)
	}
	return &Layer{Name: l.Name, CRS: l.CRS, Collection: fc}
}

// Reproject returns a copy of the layer with every coordinate transformed
// into dst.
func (l *Layer) Reproject(dst string) (*Layer, error) {
	target, err := crs.Normalize(dst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Name, err)
	}
	out := l.Clone()
	if crs.Same(l.CRS, target) {
		return out, nil
	}

	t, err := crs.NewTransform(l.CRS, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Name, err)
	}

	for i, f := range out.Collection.Features {
		var transformErr error
		f.Geometry = project.Geometry(f.Geometry, func(p orb.Point) orb.Point {
			q, err := t(p)
			if err != nil && transformErr == nil {
				transformErr = err
			}
			return q
		})
		if transformErr != nil {
			return nil, fmt.Errorf("%s: feature %d: failed to reproject to %s: %w", l.Name, i, target, transformErr)
		}
	}
	out.CRS = target
	return out, nil
}

// Points returns the coordinate of every feature. Single-point MultiPoints
// are unwrapped; anything else is rejected.
func (l *Layer) Points() ([]orb.Point, error) {
	points := make([]orb.Point, 0, l.Len())
	for i, f := range l.Collection.Features {
		switch g := f.Geometry.(type) {
		case orb.Point:
			points = append(points, g)
		case orb.MultiPoint:
			if len(g) != 1 {
				return nil, fmt.Errorf("%s: feature %d: multipoint with %d points: %w", l.Name, i, len(g), ErrNotPoint)
			}
			points = append(points, g[0])
		default:
			return nil, fmt.Errorf("%s: feature %d: %s: %w", l.Name, i, f.Geometry.GeoJSONType(), ErrNotPoint)
		}
	}
	return points, nil
}

// Centroids returns the planar centroid of each feature.
func (l *Layer) Centroids() []orb.Point {
	centroids := make([]orb.Point, 0, l.Len())
	for _, f := range l.Collection.Features {
		c, _ := planar.CentroidArea(f.Geometry)
		centroids = append(centroids, c)
	}
	return centroids
}

// Bound returns the bounding box of all features.
func (l *Layer) Bound() orb.Bound {
	b := l.Collection.Features[0].Geometry.Bound()
	for _, f := range l.Collection.Features[1:] {
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// Validate reports whether g can be written as GeoJSON and rendered.
func Validate(g orb.Geometry) error {
	switch g := g.(type) {
	case nil:
		return fmt.Errorf("%w: missing geometry", ErrInvalidGeometry)
	case orb.Point:
		return validPoint(g)
	case orb.MultiPoint:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multipoint", ErrInvalidGeometry)
		}
		for _, p := range g {
			if err := validPoint(p); err != nil {
				return err
			}
		}
	case orb.LineString:
		return validPath(g, 2)
	case orb.MultiLineString:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multilinestring", ErrInvalidGeometry)
		}
		for _, ls := range g {
			if err := validPath(ls, 2); err != nil {
				return err
			}
		}
	case orb.Ring:
		return validPath(g, 4)
	case orb.Polygon:
		return validPolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multipolygon", ErrInvalidGeometry)
		}
		for _, p := range g {
			if err := validPolygon(p); err != nil {
				return err
			}
		}
	case orb.Bound:
		return validPolygon(g.ToPolygon())
	case orb.Collection:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty geometry collection", ErrInvalidGeometry)
		}
		for _, sub := range g {
			if err := Validate(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidGeometry, g)
	}
	return nil
}

func validPoint(p orb.Point) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate %v", ErrInvalidGeometry, p)
		}
	}
	return nil
}

func validPath(ps []orb.Point, min int) error {
	if len(ps) < min {
		return fmt.Errorf("%w: %d positions, need at least %d", ErrInvalidGeometry, len(ps), min)
	}
	for _, p := range ps {
		if err := validPoint(p); err != nil {
			return err
		}
	}
	return nil
}

func validPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon without rings", ErrInvalidGeometry)
	}
	for _, r := range p {
		if err := validPath(r, 4); err != nil {
			return err
		}
	}
	return nil
}
