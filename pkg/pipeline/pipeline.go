// Package pipeline runs the heritage map workflow end to end: load the
// four input layers, reproject them into a planar CRS, build and fill the
// density grid, then render the web map and the optional side outputs.
//
// The stages run strictly in that order and any failure stops the run
// before the map file is replaced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kass/heritage-map/pkg/config"
	"github.com/kass/heritage-map/pkg/crs"
	"github.com/kass/heritage-map/pkg/export"
	"github.com/kass/heritage-map/pkg/grid"
	"github.com/kass/heritage-map/pkg/layer"
	"github.com/kass/heritage-map/pkg/logger"
	"github.com/kass/heritage-map/pkg/models"
	"github.com/kass/heritage-map/pkg/postgis"
	"github.com/kass/heritage-map/pkg/render"
	"github.com/kass/heritage-map/pkg/report"
	"gonum.org/v1/gonum/stat"
)

// Inputs are the four source layers.
type Inputs struct {
	Bounds    *layer.Layer
	Points    *layer.Layer
	Buildings *layer.Layer
	Ensembles *layer.Layer
}

func (in Inputs) all() []*layer.Layer {
	return []*layer.Layer{in.Bounds, in.Points, in.Buildings, in.Ensembles}
}

// Reproject returns the inputs transformed into dst.
func (in Inputs) Reproject(dst string) (Inputs, error) {
	var out Inputs
	targets := []**layer.Layer{&out.Bounds, &out.Points, &out.Buildings, &out.Ensembles}
	for i, l := range in.all() {
		p, err := l.Reproject(dst)
		if err != nil {
			return Inputs{}, err
		}
		*targets[i] = p
	}
	return out, nil
}

// Sizes lists the feature count of every layer.
func (in Inputs) Sizes() []report.LayerSize {
	sizes := make([]report.LayerSize, 0, 4)
	for _, l := range in.all() {
		sizes = append(sizes, report.LayerSize{Name: l.Name, Features: l.Len()})
	}
	return sizes
}

// Result is the outcome of the grid stages.
type Result struct {
	// CRS is the working planar CRS of Grid.
	CRS    string
	Grid   *grid.Grid
	Stats  grid.Stats
	Center models.Location
	// Geographic holds the inputs in EPSG:4326 for rendering.
	Geographic Inputs
}

// readLayer loads one input from a file or a PostGIS url.
func readLayer(ctx context.Context, name, location string) (*layer.Layer, error) {
	if postgis.IsURL(location) {
		return postgis.Load(ctx, name, location)
	}
	return layer.ReadFile(name, location)
}

// Load reads the four inputs in order.
func Load(ctx context.Context, in config.InputsConfig, log *logger.Logger) (Inputs, error) {
	var out Inputs
	sources := []struct {
		name     string
		location string
		target   **layer.Layer
	}{
		{"bounds", in.Bounds, &out.Bounds},
		{"points", in.Points, &out.Points},
		{"buildings", in.Buildings, &out.Buildings},
		{"ensembles", in.Ensembles, &out.Ensembles},
	}

	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return Inputs{}, err
		}
		start := time.Now()
		l, err := readLayer(ctx, s.name, s.location)
		if err != nil {
			if s.name == "points" && errors.Is(err, layer.ErrEmptyLayer) {
				// no sites leaves nothing to size the grid from
				return Inputs{}, fmt.Errorf("%w: %w: %w", ErrConfig, grid.ErrEmptyPoints, err)
			}
			return Inputs{}, wrap(ErrInput, err)
		}
		log.Info("layer loaded",
			"layer", s.name,
			"source", redact(s.location),
			"features", l.Len(),
			"crs", l.CRS,
			"bound", l.Bound(),
			"elapsed", time.Since(start),
		)
		*s.target = l
	}
	return out, nil
}

func redact(location string) string {
	if !postgis.IsURL(location) {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return "postgis"
	}
	return u.Redacted()
}

// meanLocation is the mean of the feature centroids of a layer in EPSG:4326.
func meanLocation(l *layer.Layer) models.Location {
	points := l.Centroids()
	lons := make([]float64, len(points))
	lats := make([]float64, len(points))
	for i, p := range points {
		lons[i], lats[i] = p[0], p[1]
	}
	return models.Location{Lat: stat.Mean(lats, nil), Lon: stat.Mean(lons, nil)}
}

// workingCRS resolves grid.crs, choosing the UTM zone of center for "auto".
func workingCRS(name string, center models.Location) (string, error) {
	if strings.EqualFold(strings.TrimSpace(name), "auto") {
		return crs.UTMZone(center.Lon, center.Lat), nil
	}
	return crs.Normalize(name)
}

// Aggregate runs every stage up to the filled grid.
func Aggregate(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, wrap(ErrConfig, err)
	}

	inputs, err := Load(ctx, cfg.Inputs, log)
	if err != nil {
		return nil, err
	}

	geographic, err := inputs.Reproject(crs.WGS84)
	if err != nil {
		return nil, wrap(ErrInput, err)
	}
	center := meanLocation(geographic.Points)

	working, err := workingCRS(cfg.Grid.CRS, center)
	if err != nil {
		return nil, wrap(ErrConfig, err)
	}
	metric, err := crs.IsMetric(working, center.Lon, center.Lat)
	if err != nil {
		return nil, wrap(ErrConfig, err)
	}
	if !metric {
		log.Warn("working crs is not metric, square size is not in meters", "crs", working)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	projected, err := inputs.Reproject(working)
	if err != nil {
		return nil, wrap(ErrInput, err)
	}
	log.Info("layers reprojected", "crs", working)

	points, err := projected.Points.Points()
	if err != nil {
		return nil, wrap(ErrInput, err)
	}

	start := time.Now()
	g, err := grid.FromPoints(points, cfg.Grid.SquareSize, grid.WithMaxCells(cfg.Grid.MaxCells))
	if err != nil {
		return nil, wrap(ErrConfig, err)
	}
	log.Info("grid built",
		"square_size", cfg.Grid.SquareSize,
		"columns", g.Columns,
		"rows", g.Rows,
		"cells", g.Len(),
	)

	agg, stats, err := grid.Aggregate(g, points)
	if err != nil {
		return nil, wrap(ErrInput, err)
	}
	log.Info("points aggregated",
		"points", stats.Points,
		"assigned", stats.Assigned,
		"unassigned", stats.Unassigned,
		"cells_with_data", stats.CellsWithData,
		"max_count", stats.MaxCount,
		"elapsed", time.Since(start),
	)

	return &Result{
		CRS:        working,
		Grid:       agg,
		Stats:      stats,
		Center:     center,
		Geographic: geographic,
	}, nil
}

// BuildMap composes the web map of a result.
func BuildMap(cfg *config.Config, res *Result) (render.Map, error) {
	tiles, err := render.TilesByName(cfg.Map.Tiles, cfg.Map.TilesAttribution)
	if err != nil {
		return render.Map{}, wrap(ErrConfig, err)
	}
	if _, err := render.Colors(cfg.Choropleth.Palette, cfg.Choropleth.Bins); err != nil {
		return render.Map{}, wrap(ErrConfig, err)
	}

	cells, err := export.GridLayer(res.Grid, res.CRS)
	if err != nil {
		return render.Map{}, wrap(ErrRender, err)
	}
	values := make(map[string]float64)
	for id, n := range res.Grid.Counts() {
		values[strconv.Itoa(id)] = float64(n)
	}

	ch := cfg.Choropleth
	overlay := func(o config.OverlayConfig, l *layer.Layer) render.GeoJSONOverlay {
		return render.GeoJSONOverlay{
			Name:             o.Name,
			Layer:            l,
			FillColor:        o.FillColor,
			FillOpacity:      o.FillOpacity,
			HighlightOpacity: o.HighlightOpacity,
			ZoomOnClick:      o.ZoomOnClick,
			Show:             o.Show,
		}
	}

	m := render.New(render.Options{
		Title:        cfg.Map.Title,
		Center:       res.Center,
		Zoom:         cfg.Map.Zoom,
		ControlScale: cfg.Map.ControlScale,
	}).
		WithTiles(tiles).
		WithChoropleth(render.Choropleth{
			Name:           ch.Name,
			LegendName:     ch.LegendName,
			Layer:          cells,
			KeyProperty:    "id",
			Values:         values,
			Palette:        ch.Palette,
			Bins:           ch.Bins,
			FillOpacity:    ch.FillOpacity,
			NaNFillOpacity: ch.NaNFillOpacity,
			LineColor:      ch.LineColor,
			LineOpacity:    ch.LineOpacity,
			Show:           ch.Show,
		}).
		WithGeoJSON(overlay(cfg.Overlays.Buildings, res.Geographic.Buildings)).
		WithGeoJSON(overlay(cfg.Overlays.Bounds, res.Geographic.Bounds)).
		WithGeoJSON(overlay(cfg.Overlays.Ensembles, res.Geographic.Ensembles)).
		WithMarkerCluster(render.MarkerCluster{
			Name:          cfg.Cluster.Name,
			Layer:         res.Geographic.Points,
			PopupProperty: cfg.Cluster.PopupProperty,
			Show:          cfg.Cluster.Show,
		})

	w := cfg.Widgets
	m = m.WithLayerControl(render.LayerControl{
		Collapsed: w.LayerControl.Collapsed,
		Position:  w.LayerControl.Position,
	})
	if w.MousePosition.Enabled {
		m = m.WithMousePosition(render.MousePosition{
			Position:    w.MousePosition.Position,
			Separator:   " : ",
			EmptyString: "NaN",
			NumDigits:   5,
		})
	}
	if w.Fullscreen.Enabled {
		m = m.WithFullscreen(render.Fullscreen{
			Position:            w.Fullscreen.Position,
			Title:               w.Fullscreen.Title,
			TitleCancel:         w.Fullscreen.TitleCancel,
			ForceSeparateButton: w.Fullscreen.ForceSeparateButton,
		})
	}
	return m, nil
}

// Run executes the whole pipeline and writes the configured outputs.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res, err := Aggregate(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	m, err := BuildMap(cfg, res)
	if err != nil {
		return nil, err
	}
	doc, err := m.Build()
	if err != nil {
		return nil, wrap(ErrRender, err)
	}
	if cfg.Output.Grid != "" {
		if _, err := export.FormatOf(cfg.Output.Grid); err != nil {
			return nil, wrap(ErrConfig, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := doc.Save(cfg.Output.Map); err != nil {
		return nil, wrap(ErrRender, err)
	}
	log.Info("map written", "path", cfg.Output.Map, "layers", len(doc.Layers))

	if cfg.Output.Grid != "" {
		if err := export.WriteGrid(cfg.Output.Grid, res.Grid, res.CRS); err != nil {
			return nil, wrap(ErrRender, err)
		}
		log.Info("grid written", "path", cfg.Output.Grid)
	}

	if cfg.Output.Report != "" {
		r := report.Report{
			Title:    fmt.Sprintf("%s: density report", cfg.Map.Title),
			CellSize: cfg.Grid.SquareSize,
			CRS:      res.CRS,
			Grid:     res.Grid,
			Layers:   res.Geographic.Sizes(),
		}
		if err := r.Save(cfg.Output.Report); err != nil {
			return nil, wrap(ErrRender, err)
		}
		log.Info("report written", "path", cfg.Output.Report)
	}

	return res, nil
}
