package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

const maxBins = 9

// ColorBrewer sequential ramps. six holds the 6-class scheme (the default
// bin count), nine the 9-class scheme other bin counts are sampled from.
type palette struct {
	six  []string
	nine []string
}

var palettes = map[string]palette{
	"BuPu": {
		six:  []string{"#edf8fb", "#bfd3e6", "#9ebcda", "#8c96c6", "#8856a7", "#810f7c"},
		nine: []string{"#f7fcfd", "#e0ecf4", "#bfd3e6", "#9ebcda", "#8c96c6", "#8c6bb1", "#88419d", "#810f7c", "#4d004b"},
	},
	"YlOrRd": {
		six:  []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"},
		nine: []string{"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	},
	"Blues": {
		six:  []string{"#eff3ff", "#c6dbef", "#9ecae1", "#6baed6", "#3182bd", "#08519c"},
		nine: []string{"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	},
	"YlGn": {
		six:  []string{"#ffffcc", "#d9f0a3", "#addd8e", "#78c679", "#31a354", "#006837"},
		nine: []string{"#ffffe5", "#f7fcb9", "#d9f0a3", "#addd8e", "#78c679", "#41ab5d", "#238443", "#006837", "#004529"},
	},
	"PuRd": {
		six:  []string{"#f1eef6", "#d4b9da", "#c994c7", "#df65b0", "#dd1c77", "#980043"},
		nine: []string{"#f7f4f9", "#e7e1ef", "#d4b9da", "#c994c7", "#df65b0", "#e7298a", "#ce1256", "#980043", "#67001f"},
	},
	"OrRd": {
		six:  []string{"#fef0d9", "#fdd49e", "#fdbb84", "#fc8d59", "#e34a33", "#b30000"},
		nine: []string{"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
	},
}

// Palettes lists the known ramp names in sorted order.
func Palettes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Colors returns a ramp of n colors for the named palette.
func Colors(name string, n int) ([]string, error) {
	p, ok := palettes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPalette, name, strings.Join(Palettes(), ", "))
	}
	if n < 2 || n > maxBins {
		return nil, fmt.Errorf("bins must be within 2..%d, got %d", maxBins, n)
	}
	if n == len(p.six) {
		return append([]string(nil), p.six...), nil
	}
	colors := make([]string, n)
	for i := range colors {
		idx := int(math.Round(float64(i) * float64(len(p.nine)-1) / float64(n-1)))
		colors[i] = p.nine[idx]
	}
	return colors, nil
}

// Scale is an equal-interval threshold scale over the data range.
type Scale struct {
	Thresholds []float64
	Colors     []string
}

// NewScale splits [min(values), max(values)] into len(colors) classes.
func NewScale(values []float64, colors []string) Scale {
	bins := len(colors)
	thresholds := make([]float64, bins+1)
	if len(values) == 0 {
		return Scale{Thresholds: thresholds, Colors: colors}
	}
	lo, hi := floats.Min(values), floats.Max(values)
	floats.Span(thresholds, lo, hi)
	return Scale{Thresholds: thresholds, Colors: colors}
}

// Color returns the color of the class containing v. The top class is
// closed so the maximum gets the last color.
func (s Scale) Color(v float64) string {
	last := len(s.Colors) - 1
	for i := last; i > 0; i-- {
		if v >= s.Thresholds[i] {
			return s.Colors[i]
		}
	}
	return s.Colors[0]
}

// Entries returns the legend rows: one color and a "lo – hi" label per class.
func (s Scale) Entries() []LegendEntry {
	entries := make([]LegendEntry, len(s.Colors))
	for i, c := range s.Colors {
		entries[i] = LegendEntry{
			Color: c,
			Label: formatValue(s.Thresholds[i]) + " – " + formatValue(s.Thresholds[i+1]),
		}
	}
	return entries
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
