// Package mapfile saves and loads occupancy grids in the ROS map_server format: a YAML
// metadata file next to a grayscale image.
//
// Cell values in [0, 100] are stored as 255 - round(2.55*v), so a saved map reloads
// exactly. Any other value is written as the map_server "unknown" gray and reloads as -1.
package mapfile

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/gridmap/occupancy"
)

// Supported image formats.
const (
	FormatPNG = "png"
	FormatPPM = "ppm"
)

const (
	unknownPixel = 205
	// Unknown is the cell value loaded for unknown pixels.
	Unknown = int8(-1)

	pixelsPerPercent = 2.55
)

// Thresholds written to the metadata, as fractions of full occupancy.
const (
	OccupiedThresh = 0.65
	FreeThresh     = 0.196
)

// Metadata is the map_server YAML document.
type Metadata struct {
	Image          string    `yaml:"image"`
	Mode           string    `yaml:"mode,omitempty"`
	Resolution     float64   `yaml:"resolution"`
	Origin         []float64 `yaml:"origin"`
	Negate         int       `yaml:"negate"`
	OccupiedThresh float64   `yaml:"occupied_thresh"`
	FreeThresh     float64   `yaml:"free_thresh"`
}

// Save writes grid to the YAML file at path and its image next to it, named after
// path with the extension of format (png when empty).
func Save(path string, grid *occupancy.Grid, format string) (err error) {
	if err := grid.Validate(); err != nil {
		return err
	}
	if format == "" {
		format = FormatPNG
	}
	if format != FormatPNG && format != FormatPPM {
		return errors.Errorf("unsupported map image format %q", format)
	}

	imageName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + format
	meta := Metadata{
		Image:          imageName,
		Mode:           "scale",
		Resolution:     grid.Resolution,
		Origin:         []float64{grid.Origin.X, grid.Origin.Y, 0},
		OccupiedThresh: OccupiedThresh,
		FreeThresh:     FreeThresh,
	}
	doc, err := yaml.Marshal(&meta)
	if err != nil {
		return errors.Wrap(err, "encoding map metadata")
	}

	//nolint:gosec
	f, err := os.Create(filepath.Join(filepath.Dir(path), imageName))
	if err != nil {
		return errors.Wrap(err, "creating map image")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	img := toImage(grid)
	switch format {
	case FormatPPM:
		err = ppm.Encode(f, img)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding map image as %s", format)
	}

	//nolint:gosec
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return errors.Wrap(err, "writing map metadata")
	}
	return nil
}

// toImage renders the grid with its highest row at the top, as map_server expects.
func toImage(grid *occupancy.Grid) image.Image {
	gray := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			gray.SetGray(x, y, color.Gray{Y: ValueToPixel(grid.Cells[y*grid.Width+x])})
		}
	}
	return imaging.FlipV(gray)
}

// Load reads the map described by the YAML file at path.
func Load(path string) (*occupancy.Grid, error) {
	//nolint:gosec
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading map metadata")
	}
	var meta Metadata
	if err := yaml.Unmarshal(doc, &meta); err != nil {
		return nil, errors.Wrap(err, "decoding map metadata")
	}
	if meta.Image == "" {
		return nil, errors.Errorf("map metadata %s names no image", path)
	}
	if len(meta.Origin) < 2 {
		return nil, errors.Errorf("map origin needs at least x and y, got %v", meta.Origin)
	}
	if len(meta.Origin) > 2 && meta.Origin[2] != 0 {
		return nil, errors.Errorf("rotated map origins are not supported (yaw %v)", meta.Origin[2])
	}

	imagePath := meta.Image
	if !filepath.IsAbs(imagePath) {
		imagePath = filepath.Join(filepath.Dir(path), imagePath)
	}
	img, err := decodeImage(imagePath)
	if err != nil {
		return nil, err
	}

	// back to grid row order
	flipped := imaging.FlipV(img)
	bounds := flipped.Bounds()
	grid, err := occupancy.NewGrid(bounds.Dx(), bounds.Dy(), meta.Resolution,
		r2.Point{X: meta.Origin[0], Y: meta.Origin[1]}, 0)
	if err != nil {
		return nil, err
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := color.GrayModel.Convert(flipped.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			v := PixelToValue(c.Y)
			if v != Unknown && meta.Negate != 0 {
				v = pixelValue(255 - c.Y)
			}
			grid.Cells[y*grid.Width+x] = v
		}
	}
	return grid, nil
}

func decodeImage(path string) (img image.Image, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening map image")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if strings.EqualFold(filepath.Ext(path), "."+FormatPPM) {
		img, err = ppm.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding map image %s", path)
	}
	return img, nil
}

// ValueToPixel maps a cell value to its gray level.
func ValueToPixel(v int8) uint8 {
	if v < 0 || v > 100 {
		return unknownPixel
	}
	return uint8(255 - math.Round(float64(v)*pixelsPerPercent))
}

// PixelToValue maps a gray level back to a cell value.
func PixelToValue(p uint8) int8 {
	if p == unknownPixel {
		return Unknown
	}
	return pixelValue(p)
}

func pixelValue(p uint8) int8 {
	return int8(math.Round(float64(255-int(p)) / pixelsPerPercent))
}
