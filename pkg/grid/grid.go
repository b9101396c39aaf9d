// Package grid tiles a point envelope into a square fishnet and counts the
// points that fall into each cell.
//
// Cells are half-open, [x, x+S) x [y, y+S): a point on an edge shared by two
// cells belongs to the cell on its upper/right side. Because the last
// column and row always start at or before the envelope maximum, every
// point inside the envelope lands in exactly one cell.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/kass/heritage-map/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultMaxCells = 1000000

	// maxSteps bounds a single axis so columns*rows cannot overflow.
	maxSteps = 1 << 30
)

var (
	ErrInvalidCellSize = errors.New("cell size must be a positive finite number")
	ErrEmptyPoints     = errors.New("point layer is empty: envelope undefined")
	ErrTooManyCells    = errors.New("grid exceeds the cell limit")
)

// Cell is one square of the fishnet.
type Cell struct {
	// ID is the position of the cell in creation order.
	ID int
	// Bound spans [Min, Max) on both axes.
	Bound orb.Bound
	// Count is the number of points inside the cell. Zero means no data.
	Count int
}

// HasData reports whether at least one point fell into the cell.
func (c Cell) HasData() bool {
	return c.Count > 0
}

// Contains applies the half-open rule.
func (c Cell) Contains(p orb.Point) bool {
	return p[0] >= c.Bound.Min[0] && p[0] < c.Bound.Max[0] &&
		p[1] >= c.Bound.Min[1] && p[1] < c.Bound.Max[1]
}

// Polygon returns the cell outline with corners (x,y), (x,y+S), (x+S,y+S), (x+S,y).
func (c Cell) Polygon() orb.Polygon {
	minX, minY := c.Bound.Min[0], c.Bound.Min[1]
	maxX, maxY := c.Bound.Max[0], c.Bound.Max[1]
	return orb.Polygon{orb.Ring{
		{minX, minY},
		{minX, maxY},
		{maxX, maxY},
		{maxX, minY},
		{minX, minY},
	}}
}

// Grid is an ordered fishnet. Cells are stored row-major, bottom row first,
// so Cells[i].ID == i.
type Grid struct {
	Size     float64
	Envelope models.Envelope
	Columns  int
	Rows     int
	Cells    []Cell
}

type options struct {
	maxCells int
}

// Option customizes Build.
type Option func(*options)

// WithMaxCells caps the number of cells Build may emit.
func WithMaxCells(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCells = n
		}
	}
}

// EnvelopeOf returns the bounding envelope of points.
func EnvelopeOf(points []orb.Point) (models.Envelope, error) {
	if len(points) == 0 {
		return models.Envelope{}, ErrEmptyPoints
	}
	env := models.EmptyEnvelope()
	for _, p := range points {
		env = env.Extend(p[0], p[1])
	}
	return env, nil
}

// Dimensions returns how many columns and rows Build emits for env and size:
// every start coordinate min + i*size that is <= max opens a column (row).
func Dimensions(env models.Envelope, size float64) (columns, rows int, err error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidCellSize, size)
	}
	if env.IsEmpty() {
		return 0, 0, ErrEmptyPoints
	}
	return steps(env.MinX, env.MaxX, size), steps(env.MinY, env.MaxY, size), nil
}

// steps counts i >= 0 with min + i*size <= max.
func steps(min, max, size float64) int {
	ratio := (max - min) / size
	if ratio >= maxSteps {
		return maxSteps
	}
	n := int(math.Floor(ratio)) + 1
	// floating point can put the estimate off by one either way
	for n > 1 && min+float64(n-1)*size > max {
		n--
	}
	for min+float64(n)*size <= max {
		n++
	}
	return n
}

// Build tiles env with square cells of side size, left-to-right then
// bottom-to-top, anchored at the envelope minimum. A degenerate envelope
// yields exactly one cell.
func Build(env models.Envelope, size float64, opts ...Option) (*Grid, error) {
	o := options{maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&o)
	}

	columns, rows, err := Dimensions(env, size)
	if err != nil {
		return nil, err
	}
	if columns > o.maxCells/rows {
		return nil, fmt.Errorf("%w: %d x %d cells, limit %d", ErrTooManyCells, columns, rows, o.maxCells)
	}

	cells := make([]Cell, 0, columns*rows)
	for row := 0; row < rows; row++ {
		y := env.MinY + float64(row)*size
		yTop := env.MinY + float64(row+1)*size
		for col := 0; col < columns; col++ {
			x := env.MinX + float64(col)*size
			xRight := env.MinX + float64(col+1)*size
			cells = append(cells, Cell{
				ID: len(cells),
				Bound: orb.Bound{
					Min: orb.Point{x, y},
					Max: orb.Point{xRight, yTop},
				},
			})
		}
	}

	return &Grid{
		Size:     size,
		Envelope: env,
		Columns:  columns,
		Rows:     rows,
		Cells:    cells,
	}, nil
}

// FromPoints computes the envelope of points and builds the grid over it.
func FromPoints(points []orb.Point, size float64, opts ...Option) (*Grid, error) {
	env, err := EnvelopeOf(points)
	if err != nil {
		return nil, err
	}
	return Build(env, size, opts...)
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.Cells)
}

// Clone returns a copy whose cells can be modified independently.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Cells = make([]Cell, len(g.Cells))
	copy(out.Cells, g.Cells)
	return &out
}

// Counts returns the counts of cells with data keyed by cell id.
func (g *Grid) Counts() map[int]int {
	counts := make(map[int]int)
	for _, c := range g.Cells {
		if c.HasData() {
			counts[c.ID] = c.Count
		}
	}
	return counts
}

// FeatureCollection converts the grid into polygons with an "id" property
// and, for cells holding points, an "n" property. Empty cells carry no "n".
func (g *Grid) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range g.Cells {
		f := geojson.NewFeature(c.Polygon())
		f.Properties["id"] = c.ID
		if c.HasData() {
			f.Properties["n"] = c.Count
		}
		fc.Append(f)
	}
	return fc
}
