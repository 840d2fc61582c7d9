// Package config defines the structure used to configure a mapping run.
package config

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/gridmap/mapfile"
	"go.viam.com/gridmap/occupancy"
	"go.viam.com/gridmap/ros"
)

// A Config describes a mapping run: where scans and poses come from, the grid they are
// written into and where the finished map goes.
type Config struct {
	Bag       string       `json:"bag"`
	ScanTopic string       `json:"scan_topic"`
	PoseTopic string       `json:"pose_topic"`
	PoseType  ros.PoseType `json:"pose_type,omitempty"`
	// SensorOffset is the sensor's distance ahead of the pose reference point.
	SensorOffset float64          `json:"sensor_offset"`
	Grid         GridConfig       `json:"grid"`
	Mapper       occupancy.Config `json:"mapper"`
	// InputMap, when set, names a map YAML to continue from instead of a fresh grid.
	InputMap    string `json:"input_map,omitempty"`
	Output      string `json:"output"`
	ImageFormat string `json:"image_format,omitempty"`
	LogFile     string `json:"log_file,omitempty"`
}

// GridConfig describes a fresh grid.
type GridConfig struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Resolution float64 `json:"resolution"`
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	Initial    int     `json:"initial"`
}

// NewGrid allocates the grid described by the config.
func (gc *GridConfig) NewGrid() (*occupancy.Grid, error) {
	return occupancy.NewGrid(gc.Width, gc.Height, gc.Resolution, r2.Point{X: gc.OriginX, Y: gc.OriginY}, int8(gc.Initial))
}

// Validate ensures all parts of the config are valid.
func (gc *GridConfig) Validate(path string) error {
	if gc.Width <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if gc.Height <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}
	if !(gc.Resolution > 0) || math.IsInf(gc.Resolution, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("resolution must be a positive finite number, got %v", gc.Resolution))
	}
	if !isFinite(gc.OriginX) || !isFinite(gc.OriginY) {
		return utils.NewConfigValidationError(path, errors.New("origin must be finite"))
	}
	if gc.Initial < math.MinInt8 || gc.Initial > math.MaxInt8 {
		return utils.NewConfigValidationError(path, errors.Errorf("initial must fit in [%d, %d], got %d", math.MinInt8, math.MaxInt8, gc.Initial))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Bag == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "bag")
	}
	if conf.ScanTopic == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "scan_topic")
	}
	if conf.PoseTopic == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "pose_topic")
	}
	switch conf.PoseType {
	case "", ros.PoseTypePose2D, ros.PoseTypeOdometry:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unsupported pose_type %q", conf.PoseType))
	}
	if !isFinite(conf.SensorOffset) {
		return utils.NewConfigValidationError(path, errors.New("sensor_offset must be finite"))
	}
	if conf.InputMap == "" {
		if err := conf.Grid.Validate(joinPath(path, "grid")); err != nil {
			return err
		}
	}
	if err := conf.Mapper.Validate(joinPath(path, "mapper")); err != nil {
		return err
	}
	if conf.Output == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "output")
	}
	switch conf.ImageFormat {
	case "", mapfile.FormatPNG, mapfile.FormatPPM:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unsupported image_format %q", conf.ImageFormat))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}
