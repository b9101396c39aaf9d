package grid

import "github.com/paulmach/orb"

// Stats summarizes one aggregation run.
type Stats struct {
	Points        int
	Assigned      int
	Unassigned    int
	CellsWithData int
	MaxCount      int
}

// Aggregate joins points to the cells of g and returns a new grid with the
// per-cell counts set. g itself is left unchanged. Points outside every
// cell are reported in Stats.Unassigned.
func Aggregate(g *Grid, points []orb.Point) (*Grid, Stats, error) {
	ix, err := NewIndex(g)
	if err != nil {
		return nil, Stats{}, err
	}

	out := g.Clone()
	for i := range out.Cells {
		out.Cells[i].Count = 0
	}

	stats := Stats{Points: len(points)}
	for _, p := range points {
		id, ok := ix.Locate(p)
		if !ok {
			stats.Unassigned++
			continue
		}
		out.Cells[id].Count++
		stats.Assigned++
	}

	for _, c := range out.Cells {
		if !c.HasData() {
			continue
		}
		stats.CellsWithData++
		if c.Count > stats.MaxCount {
			stats.MaxCount = c.Count
		}
	}

	return out, stats, nil
}
