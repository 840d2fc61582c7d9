package occupancy

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const (
	// DefaultCeiling is the largest log-odds value a hit may produce.
	DefaultCeiling = 100
	// DefaultFloor is the smallest log-odds value a miss may produce.
	DefaultFloor = 0

	maxDelta = 100
)

// Config holds the update parameters of a Mapper. They are fixed at construction.
type Config struct {
	// MaxRange is the distance at or beyond which a reading is treated as "no obstacle".
	MaxRange  float64 `json:"max_range"`
	HitDelta  int     `json:"hit_delta"`
	MissDelta int     `json:"miss_delta"`
	Ceiling   *int    `json:"ceiling,omitempty"`
	Floor     *int    `json:"floor,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.MaxRange == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_range")
	}
	if !(conf.MaxRange > 0) || math.IsInf(conf.MaxRange, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("max_range must be a positive finite number, got %v", conf.MaxRange))
	}
	if conf.HitDelta < 0 || conf.HitDelta > maxDelta {
		return utils.NewConfigValidationError(path, errors.Errorf("hit_delta must be between 0 and %d, got %d", maxDelta, conf.HitDelta))
	}
	if conf.MissDelta < 0 || conf.MissDelta > maxDelta {
		return utils.NewConfigValidationError(path, errors.Errorf("miss_delta must be between 0 and %d, got %d", maxDelta, conf.MissDelta))
	}
	ceiling, floor := conf.Bounds()
	if ceiling > math.MaxInt8 || floor < math.MinInt8 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("ceiling and floor must fit in [%d, %d], got [%d, %d]", math.MinInt8, math.MaxInt8, floor, ceiling))
	}
	if floor >= ceiling {
		return utils.NewConfigValidationError(path, errors.Errorf("floor (%d) must be below ceiling (%d)", floor, ceiling))
	}
	return nil
}

// Bounds returns the ceiling and floor in effect, applying the defaults for unset values.
func (conf *Config) Bounds() (ceiling, floor int) {
	ceiling, floor = DefaultCeiling, DefaultFloor
	if conf.Ceiling != nil {
		ceiling = *conf.Ceiling
	}
	if conf.Floor != nil {
		floor = *conf.Floor
	}
	return ceiling, floor
}
