package occupancy

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// WorldToCell returns the cell containing world point p for a grid whose cell (0, 0)
// starts at origin. The result is not bounded by any grid; points behind the origin
// give negative indices.
func WorldToCell(p, origin r2.Point, resolution float64) image.Point {
	d := p.Sub(origin)
	return image.Point{
		X: toIndex(math.Floor(d.X / resolution)),
		Y: toIndex(math.Floor(d.Y / resolution)),
	}
}

// toIndex converts a floored coordinate to an int, saturating at the int32 range so
// far away or infinite points still clamp onto the grid edge. NaN maps to 0.
func toIndex(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}

// WorldToCell is WorldToCell using the grid's origin and resolution.
func (g *Grid) WorldToCell(p r2.Point) image.Point {
	return WorldToCell(p, g.Origin, g.Resolution)
}

// CellCenter returns the world coordinate of the centre of c.
func (g *Grid) CellCenter(c image.Point) r2.Point {
	return g.Origin.Add(r2.Point{
		X: (float64(c.X) + 0.5) * g.Resolution,
		Y: (float64(c.Y) + 0.5) * g.Resolution,
	})
}

// Clamp moves c onto the nearest valid cell, clamping each axis to [0, dim-1].
func (g *Grid) Clamp(c image.Point) image.Point {
	return image.Point{
		X: clampInt(c.X, 0, g.Width-1),
		Y: clampInt(c.Y, 0, g.Height-1),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
