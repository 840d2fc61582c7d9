package occupancy

import (
	"image"
	"iter"
)

// Line returns the cells of the discrete line from start to end, both included, in
// that order. It traces with an integer error accumulator (Bresenham): steep lines
// swap axes, and the walk always runs from the smaller to the larger primary
// coordinate. When start is the far end of that walk, the accumulator is run
// backwards, so Line(a, b) and Line(b, a) visit the same cells in opposite order.
//
// The sequence is computed lazily and may be ranged over any number of times.
func Line(start, end image.Point) iter.Seq[image.Point] {
	return func(yield func(image.Point) bool) {
		x0, y0, x1, y1 := start.X, start.Y, end.X, end.Y
		steep := absInt(y1-y0) > absInt(x1-x0)
		if steep {
			x0, y0 = y0, x0
			x1, y1 = y1, x1
		}
		reversed := x0 > x1
		if reversed {
			x0, x1 = x1, x0
			y0, y1 = y1, y0
		}

		dx := x1 - x0
		dy := absInt(y1 - y0)
		ystep := 1
		if y0 > y1 {
			ystep = -1
		}

		emit := func(x, y int) bool {
			if steep {
				return yield(image.Point{X: y, Y: x})
			}
			return yield(image.Point{X: x, Y: y})
		}

		if !reversed {
			e := dx / 2
			y := y0
			for x := x0; x <= x1; x++ {
				if !emit(x, y) {
					return
				}
				e -= dy
				if e < 0 {
					y += ystep
					e += dx
				}
			}
			return
		}

		// The forward walk ends at (x1, y1) with the accumulator back at dx/2 and
		// keeps it in [0, dx), so each step can be undone exactly.
		e := dx / 2
		y := y1
		for x := x1; x >= x0; x-- {
			if !emit(x, y) {
				return
			}
			e += dy
			if e >= dx {
				e -= dx
				y -= ystep
			}
		}
	}
}

// LineLen returns the number of cells Line(start, end) yields.
func LineLen(start, end image.Point) int {
	return max(absInt(end.X-start.X), absInt(end.Y-start.Y)) + 1
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
