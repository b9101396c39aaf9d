package grid

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialCell wraps a cell to implement rtreego.Spatial
type spatialCell struct {
	id   int
	cell Cell
	rect rtreego.Rect
}

func (sc *spatialCell) Bounds() rtreego.Rect {
	return sc.rect
}

// Index is an R-Tree over the cells of a grid, used to join points to cells.
type Index struct {
	tree      *rtreego.Rtree
	tolerance float64
}

// NewIndex builds the R-Tree for g.
func NewIndex(g *Grid) (*Index, error) {
	items := make([]rtreego.Spatial, 0, len(g.Cells))
	for _, c := range g.Cells {
		rect, err := rtreego.NewRect(
			rtreego.Point{c.Bound.Min[0], c.Bound.Min[1]},
			[]float64{c.Bound.Max[0] - c.Bound.Min[0], c.Bound.Max[1] - c.Bound.Min[1]},
		)
		if err != nil {
			return nil, fmt.Errorf("invalid cell %d: %w", c.ID, err)
		}
		items = append(items, &spatialCell{id: c.ID, cell: c, rect: rect})
	}

	return &Index{
		tree:      rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		tolerance: g.Size * 1e-9,
	}, nil
}

// Size returns the number of indexed cells.
func (ix *Index) Size() int {
	return ix.tree.Size()
}

// Locate returns the id of the cell containing p under the half-open rule.
func (ix *Index) Locate(p orb.Point) (int, bool) {
	query := rtreego.Point{p[0], p[1]}.ToRect(ix.tolerance)

	// a point on a shared edge or corner intersects up to four cells;
	// exactly one of them contains it half-open
	for _, result := range ix.tree.SearchIntersect(query) {
		item, ok := result.(*spatialCell)
		if !ok {
			continue
		}
		if item.cell.Contains(p) {
			return item.id, true
		}
	}
	return 0, false
}
