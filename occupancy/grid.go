// Package occupancy implements log-odds occupancy grid mapping from 2D range scans.
//
// A Grid is owned by the caller. A Mapper applies one scan at a time to it and never
// resizes or reallocates the cell array.
package occupancy

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrOutOfBounds is matched by every *OutOfBoundsError via errors.Is.
var ErrOutOfBounds = errors.New("cell out of bounds")

// OutOfBoundsError is returned when a cell outside of the grid is read or written.
// Callers that clamp first never see it; it indicates a logic fault.
type OutOfBoundsError struct {
	Cell          image.Point
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cell (%d, %d) outside of %dx%d grid", e.Cell.X, e.Cell.Y, e.Width, e.Height)
}

// Is lets errors.Is match ErrOutOfBounds.
func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// Grid is a row-major array of log-odds cells laid over world space.
// Cell (x, y) is stored at Cells[y*Width+x].
type Grid struct {
	Width      int
	Height     int
	Resolution float64 // world units per cell
	Origin     r2.Point
	Cells      []int8
}

// NewGrid allocates a width by height grid with every cell set to initial.
func NewGrid(width, height int, resolution float64, origin r2.Point, initial int8) (*Grid, error) {
	g := &Grid{
		Width:      width,
		Height:     height,
		Resolution: resolution,
		Origin:     origin,
	}
	if width > 0 && height > 0 {
		g.Cells = make([]int8, width*height)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Fill(initial)
	return g, nil
}

// Validate checks that the grid geometry is usable and matches its cell array.
func (g *Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return errors.Errorf("grid dimensions must be positive, got %dx%d", g.Width, g.Height)
	}
	if !(g.Resolution > 0) {
		return errors.Errorf("grid resolution must be positive, got %v", g.Resolution)
	}
	if len(g.Cells) != g.Width*g.Height {
		return errors.Errorf("grid has %d cells but %dx%d requires %d", len(g.Cells), g.Width, g.Height, g.Width*g.Height)
	}
	return nil
}

// Fill sets every cell to v.
func (g *Grid) Fill(v int8) {
	for i := range g.Cells {
		g.Cells[i] = v
	}
}

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c image.Point) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

func (g *Grid) index(c image.Point) (int, error) {
	if !g.InBounds(c) {
		return 0, &OutOfBoundsError{Cell: c, Width: g.Width, Height: g.Height}
	}
	return c.Y*g.Width + c.X, nil
}

// LogOdds returns the value stored at c.
func (g *Grid) LogOdds(c image.Point) (int8, error) {
	idx, err := g.index(c)
	if err != nil {
		return 0, err
	}
	return g.Cells[idx], nil
}

// SetLogOdds overwrites the value stored at c.
func (g *Grid) SetLogOdds(c image.Point, v int8) error {
	idx, err := g.index(c)
	if err != nil {
		return err
	}
	g.Cells[idx] = v
	return nil
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	cp := *g
	cp.Cells = append([]int8(nil), g.Cells...)
	return &cp
}
