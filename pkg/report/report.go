// Package report renders an HTML summary of a density grid.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/kass/heritage-map/pkg/grid"
)

// LayerSize is the feature count of one input layer.
type LayerSize struct {
	Name     string
	Features int
}

// Bucket is the number of cells holding exactly Count points.
type Bucket struct {
	Count int
	Cells int
}

// Histogram groups the cells of g by point count. Empty cells form the
// bucket with Count 0. Buckets are sorted by Count.
func Histogram(g *grid.Grid) []Bucket {
	byCount := make(map[int]int)
	for _, c := range g.Cells {
		byCount[c.Count]++
	}
	buckets := make([]Bucket, 0, len(byCount))
	for count, cells := range byCount {
		buckets = append(buckets, Bucket{Count: count, Cells: cells})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Count < buckets[j].Count })
	return buckets
}

// Report is the input of the summary page.
type Report struct {
	Title    string
	CellSize float64
	CRS      string
	Grid     *grid.Grid
	Layers   []LayerSize
}

func (r Report) histogramChart() *charts.Bar {
	buckets := Histogram(r.Grid)
	x := make([]string, len(buckets))
	y := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		x[i] = strconv.Itoa(b.Count)
		y[i] = opts.BarData{Value: b.Cells}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.Title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cells by number of heritage sites",
			Subtitle: fmt.Sprintf("%d cells of %g m in %s", r.Grid.Len(), r.CellSize, r.CRS),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sites per cell", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)
	bar.SetXAxis(x).
		AddSeries("cells", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (r Report) layersChart() *charts.Bar {
	x := make([]string, len(r.Layers))
	y := make([]opts.BarData, len(r.Layers))
	for i, l := range r.Layers {
		x[i] = l.Name
		y[i] = opts.BarData{Value: l.Features}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Input layers", Subtitle: "features per layer"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("features", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// Page assembles both charts.
func (r Report) Page() *components.Page {
	page := components.NewPage()
	page.PageTitle = r.Title
	page.AddCharts(r.histogramChart())
	if len(r.Layers) > 0 {
		page.AddCharts(r.layersChart())
	}
	return page
}

// Render writes the report page to w.
func (r Report) Render(w io.Writer) error {
	if r.Grid == nil {
		return fmt.Errorf("report needs a grid")
	}
	if err := r.Page().Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// Save renders the report into path.
func (r Report) Save(path string) error {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
