package mapfile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gopkg.in/yaml.v3"

	"go.viam.com/gridmap/occupancy"
)

func testGrid(t *testing.T) *occupancy.Grid {
	t.Helper()
	g, err := occupancy.NewGrid(7, 3, 0.05, r2.Point{X: -1.5, Y: 2.25}, 50)
	test.That(t, err, test.ShouldBeNil)
	for i := range g.Cells {
		g.Cells[i] = int8(i * 5)
	}
	g.Cells[4] = -1
	return g
}

func TestPixelMapping(t *testing.T) {
	test.That(t, ValueToPixel(0), test.ShouldEqual, uint8(255))
	test.That(t, ValueToPixel(100), test.ShouldEqual, uint8(0))
	test.That(t, ValueToPixel(-1), test.ShouldEqual, uint8(unknownPixel))
	test.That(t, ValueToPixel(101), test.ShouldEqual, uint8(unknownPixel))
	test.That(t, PixelToValue(unknownPixel), test.ShouldEqual, Unknown)

	for v := int8(0); v <= 100; v++ {
		p := ValueToPixel(v)
		test.That(t, p, test.ShouldNotEqual, uint8(unknownPixel))
		test.That(t, PixelToValue(p), test.ShouldEqual, v)
	}
}

func TestSaveLoad(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatPPM} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "map.yaml")
			g := testGrid(t)
			test.That(t, Save(path, g, format), test.ShouldBeNil)

			_, err := os.Stat(filepath.Join(dir, "map."+format))
			test.That(t, err, test.ShouldBeNil)

			loaded, err := Load(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loaded.Width, test.ShouldEqual, g.Width)
			test.That(t, loaded.Height, test.ShouldEqual, g.Height)
			test.That(t, loaded.Resolution, test.ShouldEqual, g.Resolution)
			test.That(t, loaded.Origin, test.ShouldResemble, g.Origin)
			test.That(t, loaded.Cells, test.ShouldResemble, g.Cells)
		})
	}
}

func TestSaveWritesMapServerLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "office.yaml")
	g := testGrid(t)
	test.That(t, Save(path, g, ""), test.ShouldBeNil)

	doc, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	var meta Metadata
	test.That(t, yaml.Unmarshal(doc, &meta), test.ShouldBeNil)
	test.That(t, meta.Image, test.ShouldEqual, "office.png")
	test.That(t, meta.Mode, test.ShouldEqual, "scale")
	test.That(t, meta.Origin, test.ShouldResemble, []float64{-1.5, 2.25, 0})

	f, err := os.Open(filepath.Join(dir, "office.png"))
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	img, err := png.Decode(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 7)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 3)

	// the top image row holds the highest grid row
	top := color.GrayModel.Convert(img.At(1, 0)).(color.Gray)
	test.That(t, top.Y, test.ShouldEqual, ValueToPixel(g.Cells[2*7+1]))
	bottom := color.GrayModel.Convert(img.At(1, 2)).(color.Gray)
	test.That(t, bottom.Y, test.ShouldEqual, ValueToPixel(g.Cells[1]))
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()
	g := testGrid(t)

	err := Save(filepath.Join(dir, "map.yaml"), g, "jpeg")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported")

	bad := &occupancy.Grid{Width: 2, Height: 2, Resolution: 1}
	test.That(t, Save(filepath.Join(dir, "map.yaml"), bad, FormatPNG), test.ShouldNotBeNil)

	err = Save(filepath.Join(dir, "missing", "map.yaml"), g, FormatPNG)
	test.That(t, err, test.ShouldNotBeNil)
}

func writeMeta(t *testing.T, path string, meta Metadata) {
	t.Helper()
	doc, err := yaml.Marshal(&meta)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, doc, 0o600), test.ShouldBeNil)
}

func TestLoadNegate(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	gray.SetGray(0, 0, color.Gray{Y: 0})
	gray.SetGray(1, 0, color.Gray{Y: 255})
	gray.SetGray(2, 0, color.Gray{Y: unknownPixel})
	gray.SetGray(3, 0, color.Gray{Y: 255 - unknownPixel})
	f, err := os.Create(filepath.Join(dir, "neg.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, gray), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	path := filepath.Join(dir, "neg.yaml")
	writeMeta(t, path, Metadata{Image: "neg.png", Resolution: 0.1, Origin: []float64{0, 0, 0}, Negate: 1})
	g, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	// unknown stays unknown; its mirror image is a plain value
	test.That(t, g.Cells, test.ShouldResemble, []int8{0, 100, Unknown, 20})
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "nope.yaml"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(dir, "map.yaml")
	writeMeta(t, path, Metadata{Resolution: 1, Origin: []float64{0, 0, 0}})
	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "names no image")

	writeMeta(t, path, Metadata{Image: "map.png", Resolution: 1, Origin: []float64{0}})
	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "origin")

	writeMeta(t, path, Metadata{Image: "map.png", Resolution: 1, Origin: []float64{0, 0, 0.3}})
	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rotated")

	writeMeta(t, path, Metadata{Image: "map.png", Resolution: 1, Origin: []float64{0, 0, 0}})
	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "opening map image")

	test.That(t, os.WriteFile(filepath.Join(dir, "map.png"), []byte("not a png"), 0o600), test.ShouldBeNil)
	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "decoding map image")
}
