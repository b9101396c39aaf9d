// Package sample generates a synthetic heritage dataset around Yekaterinburg,
// shaped like the four inputs of the pipeline.
package sample

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// City extent in EPSG:4326.
var cityBound = orb.Bound{Min: orb.Point{60.45, 56.73}, Max: orb.Point{60.78, 56.93}}

// Historic centers the sites concentrate around.
var centers = []orb.Point{
	{60.6057, 56.8389}, // Plotinka
	{60.6090, 56.8445}, // Voznesenskaya hill
	{60.5975, 56.8317}, // Kharitonov garden
	{60.6310, 56.8570}, // Uralmash approaches
}

// Dataset holds the four generated layers.
type Dataset struct {
	Bounds    *geojson.FeatureCollection
	Points    *geojson.FeatureCollection
	Buildings *geojson.FeatureCollection
	Ensembles *geojson.FeatureCollection
}

// Generate builds a dataset with n heritage sites. The same seed always
// produces the same dataset.
func Generate(n int, seed int64) Dataset {
	r := rand.New(rand.NewSource(seed))

	d := Dataset{
		Bounds:    geojson.NewFeatureCollection(),
		Points:    geojson.NewFeatureCollection(),
		Buildings: geojson.NewFeatureCollection(),
		Ensembles: geojson.NewFeatureCollection(),
	}

	bounds := geojson.NewFeature(cityBound.ToPolygon())
	bounds.Properties["name"] = "Ekaterinburg"
	d.Bounds.Append(bounds)

	for i := 0; i < n; i++ {
		var p orb.Point
		switch r.Intn(5) {
		case 4: // scattered over the city
			p = orb.Point{
				cityBound.Min[0] + r.Float64()*(cityBound.Max[0]-cityBound.Min[0]),
				cityBound.Min[1] + r.Float64()*(cityBound.Max[1]-cityBound.Min[1]),
			}
		default:
			c := centers[r.Intn(len(centers))]
			p = orb.Point{c[0] + r.NormFloat64()*0.008, c[1] + r.NormFloat64()*0.004}
		}
		p = clamp(p)

		site := geojson.NewFeature(p)
		site.Properties["id"] = i + 1
		site.Properties["name"] = fmt.Sprintf("Heritage site %d", i+1)
		d.Points.Append(site)

		// roughly every third site is a mapped building
		if r.Intn(3) == 0 {
			w := 0.0002 + r.Float64()*0.0004
			h := 0.0001 + r.Float64()*0.0002
			building := geojson.NewFeature(box(p, w, h))
			building.Properties["id"] = i + 1
			d.Buildings.Append(building)
		}
	}

	for i, c := range centers {
		ensemble := geojson.NewFeature(box(c, 0.006, 0.003))
		ensemble.Properties["id"] = i + 1
		ensemble.Properties["name"] = fmt.Sprintf("Ensemble %d", i+1)
		d.Ensembles.Append(ensemble)
	}

	// an empty building layer would fail to load
	if len(d.Buildings.Features) == 0 {
		d.Buildings.Append(geojson.NewFeature(box(centers[0], 0.0004, 0.0002)))
	}
	return d
}

func clamp(p orb.Point) orb.Point {
	for i := 0; i < 2; i++ {
		if p[i] < cityBound.Min[i] {
			p[i] = cityBound.Min[i]
		}
		if p[i] > cityBound.Max[i] {
			p[i] = cityBound.Max[i]
		}
	}
	return p
}

// box is the axis-aligned rectangle of size w x h centered on c.
func box(c orb.Point, w, h float64) orb.Polygon {
	b := orb.Bound{
		Min: orb.Point{c[0] - w/2, c[1] - h/2},
		Max: orb.Point{c[0] + w/2, c[1] + h/2},
	}
	return b.ToPolygon()
}

// Files are the names Write uses, matching the default configuration.
var Files = struct {
	Bounds, Points, Buildings, Ensembles string
}{
	Bounds:    "bounds.geojson",
	Points:    "points.geojson",
	Buildings: "pol.geojson",
	Ensembles: "ans.geojson",
}

// Write saves the dataset into dir.
func (d Dataset) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	files := []struct {
		name string
		fc   *geojson.FeatureCollection
	}{
		{Files.Bounds, d.Bounds},
		{Files.Points, d.Points},
		{Files.Buildings, d.Buildings},
		{Files.Ensembles, d.Ensembles},
	}
	for _, f := range files {
		data, err := f.fc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return nil
}
