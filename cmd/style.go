package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kass/heritage-map/pkg/config"
	"github.com/kass/heritage-map/pkg/pipeline"
	"github.com/kass/heritage-map/pkg/report"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2).
			MarginTop(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

const histogramWidth = 30

func renderStat(label string, value interface{}) string {
	return dimStyle.Render(label+":") + " " + statStyle.Render(fmt.Sprint(value))
}

func renderGridSummary(cfg *config.Config, res *pipeline.Result, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(cfg.Map.Title))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value interface{}
	}{
		{"Working CRS", res.CRS},
		{"Cell size", fmt.Sprintf("%g", cfg.Grid.SquareSize)},
		{"Grid", fmt.Sprintf("%d x %d = %d cells", res.Grid.Columns, res.Grid.Rows, res.Grid.Len())},
		{"Heritage sites", res.Stats.Points},
		{"Cells with sites", res.Stats.CellsWithData},
		{"Densest cell", res.Stats.MaxCount},
		{"Map center", fmt.Sprintf("%.5f, %.5f", res.Center.Lat, res.Center.Lon)},
		{"Elapsed", elapsed.Round(time.Millisecond)},
	}
	for _, r := range rows {
		b.WriteString(renderStat(r.label, r.value))
		b.WriteString("\n")
	}
	if res.Stats.Unassigned > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("! %d sites fell outside the grid", res.Stats.Unassigned)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHistogram(report.Histogram(res.Grid)))
	return boxStyle.Render(b.String())
}

// renderHistogram draws the cells-per-count buckets of non-empty cells as bars.
func renderHistogram(buckets []report.Bucket) string {
	most := 0
	for _, bk := range buckets {
		if bk.Count > 0 && bk.Cells > most {
			most = bk.Cells
		}
	}
	if most == 0 {
		return dimStyle.Render("no cell holds a site")
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("sites per cell"))
	for _, bk := range buckets {
		if bk.Count == 0 {
			continue
		}
		width := bk.Cells * histogramWidth / most
		if width == 0 {
			width = 1
		}
		fmt.Fprintf(&b, "\n%4d %s %d", bk.Count, successStyle.Render(strings.Repeat("█", width)), bk.Cells)
	}
	return b.String()
}
