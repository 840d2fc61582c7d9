package occupancy

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestWorldToCell(t *testing.T) {
	origin := r2.Point{}
	test.That(t, WorldToCell(r2.Point{X: 5.5, Y: 0.2}, origin, 1), test.ShouldResemble, image.Point{5, 0})
	test.That(t, WorldToCell(r2.Point{X: 0, Y: 0}, origin, 1), test.ShouldResemble, image.Point{0, 0})
	test.That(t, WorldToCell(r2.Point{X: -0.5, Y: -1.5}, origin, 1), test.ShouldResemble, image.Point{-1, -2})

	shifted := r2.Point{X: -2, Y: -3}
	test.That(t, WorldToCell(r2.Point{X: 0.25, Y: 0}, shifted, 0.5), test.ShouldResemble, image.Point{4, 6})

	t.Run("non finite", func(t *testing.T) {
		c := WorldToCell(r2.Point{X: math.Inf(1), Y: math.Inf(-1)}, origin, 1)
		test.That(t, c, test.ShouldResemble, image.Point{math.MaxInt32, math.MinInt32})
		c = WorldToCell(r2.Point{X: math.NaN(), Y: 1e300}, origin, 1)
		test.That(t, c, test.ShouldResemble, image.Point{0, math.MaxInt32})
	})
}

func TestCellCenter(t *testing.T) {
	g, err := NewGrid(10, 10, 0.25, r2.Point{X: -1, Y: 3}, 0)
	test.That(t, err, test.ShouldBeNil)
	center := g.CellCenter(image.Point{2, 4})
	test.That(t, center.X, test.ShouldAlmostEqual, -0.375)
	test.That(t, center.Y, test.ShouldAlmostEqual, 4.125)

	for x := -3; x < 13; x++ {
		for y := -3; y < 13; y++ {
			c := image.Point{x, y}
			test.That(t, g.WorldToCell(g.CellCenter(c)), test.ShouldResemble, c)
		}
	}
}

func TestClamp(t *testing.T) {
	g, err := NewGrid(10, 6, 1, r2.Point{}, 0)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.Clamp(image.Point{15, 3}), test.ShouldResemble, image.Point{9, 3})
	test.That(t, g.Clamp(image.Point{-4, -1}), test.ShouldResemble, image.Point{0, 0})
	test.That(t, g.Clamp(image.Point{3, 6}), test.ShouldResemble, image.Point{3, 5})
	test.That(t, g.Clamp(image.Point{-1, 100}), test.ShouldResemble, image.Point{0, 5})

	t.Run("idempotent on valid cells", func(t *testing.T) {
		for x := 0; x < g.Width; x++ {
			for y := 0; y < g.Height; y++ {
				c := image.Point{x, y}
				test.That(t, g.Clamp(c), test.ShouldResemble, c)
			}
		}
	})

	t.Run("total", func(t *testing.T) {
		for x := -20; x < 20; x++ {
			for y := -20; y < 20; y++ {
				c := g.Clamp(image.Point{x, y})
				test.That(t, g.InBounds(c), test.ShouldBeTrue)
				test.That(t, g.Clamp(c), test.ShouldResemble, c)
			}
		}
	})
}
