package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kass/heritage-map/pkg/grid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario(t *testing.T) *grid.Grid {
	t.Helper()
	points := []orb.Point{{0, 0}, {399, 399}, {400, 400}, {800, 800}}
	g, err := grid.FromPoints(points, 400)
	require.NoError(t, err)
	agg, _, err := grid.Aggregate(g, points)
	require.NoError(t, err)
	return agg
}

func TestHistogram(t *testing.T) {
	got := Histogram(scenario(t))
	want := []Bucket{
		{Count: 0, Cells: 6},
		{Count: 1, Cells: 2},
		{Count: 2, Cells: 1},
	}
	assert.Equal(t, want, got)
}

func TestRender(t *testing.T) {
	r := Report{
		Title:    "Heritage density",
		CellSize: 400,
		CRS:      "EPSG:32639",
		Grid:     scenario(t),
		Layers: []LayerSize{
			{Name: "points", Features: 4},
			{Name: "buildings", Features: 12},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	page := buf.String()
	assert.Contains(t, page, "Heritage density")
	assert.Contains(t, page, "Cells by number of heritage sites")
	assert.Contains(t, page, "Input layers")
	assert.Contains(t, page, "echarts")
}

func TestRenderNeedsGrid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Report{Title: "empty"}.Render(&buf))
	assert.Zero(t, buf.Len())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "density.html")
	r := Report{Title: "Heritage density", CellSize: 400, CRS: "EPSG:32639", Grid: scenario(t)}
	require.NoError(t, r.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
