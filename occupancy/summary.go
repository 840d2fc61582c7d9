package occupancy

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of values in a grid.
type Summary struct {
	Cells    int
	Occupied int // cells at or above the occupied threshold
	Free     int // cells at or below the free threshold
	Unknown  int // cells strictly between the thresholds, or negative
	Mean     float64
	StdDev   float64
}

// Summarize classifies every cell against occupiedAt and freeAt and computes the mean
// and standard deviation of the non-negative values. Negative values are treated as
// unknown and left out of the statistics, following the ROS convention of -1.
func Summarize(g *Grid, occupiedAt, freeAt int8) Summary {
	s := Summary{Cells: len(g.Cells)}
	values := make([]float64, 0, len(g.Cells))
	for _, v := range g.Cells {
		switch {
		case v < 0:
			s.Unknown++
			continue
		case v >= occupiedAt:
			s.Occupied++
		case v <= freeAt:
			s.Free++
		default:
			s.Unknown++
		}
		values = append(values, float64(v))
	}
	switch len(values) {
	case 0:
	case 1:
		s.Mean = values[0]
	default:
		s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	}
	return s
}

// String prints the summary as a table with one row per cell class.
func (s Summary) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Class", "Cells", "Share"})
	for _, row := range []struct {
		name  string
		count int
	}{
		{"occupied", s.Occupied},
		{"free", s.Free},
		{"unknown", s.Unknown},
	} {
		share := 0.0
		if s.Cells > 0 {
			share = 100 * float64(row.count) / float64(s.Cells)
		}
		t.AppendRow(table.Row{row.name, row.count, fmt.Sprintf("%.1f%%", share)})
	}
	t.AppendFooter(table.Row{"total", s.Cells, fmt.Sprintf("mean %.2f, stddev %.2f", s.Mean, s.StdDev)})
	return t.Render()
}
