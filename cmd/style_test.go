package main

import (
	"strings"
	"testing"

	"github.com/kass/heritage-map/pkg/report"
	"github.com/stretchr/testify/assert"
)

func TestRenderHistogram(t *testing.T) {
	out := renderHistogram([]report.Bucket{
		{Count: 0, Cells: 40},
		{Count: 1, Cells: 12},
		{Count: 3, Cells: 6},
		{Count: 9, Cells: 1},
	})

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4, "empty cells are not drawn")
	assert.Contains(t, lines[1], strings.Repeat("█", histogramWidth))
	assert.Contains(t, lines[2], strings.Repeat("█", histogramWidth/2))
	assert.Contains(t, lines[3], "█")
}

func TestRenderHistogramEmpty(t *testing.T) {
	out := renderHistogram([]report.Bucket{{Count: 0, Cells: 9}})
	assert.Contains(t, out, "no cell holds a site")
}
