package occupancy

import (
	"image"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Scan is one sweep of a planar range sensor. Reading k was taken at bearing
// AngleMin + k*AngleIncrement in the sensor frame. NaN means no return.
type Scan struct {
	Ranges         []float64
	AngleMin       float64
	AngleIncrement float64
}

// Pose is a robot position and heading in the world frame.
type Pose struct {
	X, Y  float64
	Theta float64 // radians
}

// Position returns the pose's position as a point.
func (p Pose) Position() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

func heading(theta float64) r2.Point {
	return r2.Point{X: math.Cos(theta), Y: math.Sin(theta)}
}

// A Mapper applies range scans to occupancy grids. It keeps no per-scan state, so one
// Mapper may update distinct grids concurrently. A single grid must not be updated or
// read by anyone else while Update runs; see SharedGrid.
type Mapper struct {
	maxRange  float64
	hitDelta  int
	missDelta int
	ceiling   int
	floor     int
	logger    golog.Logger
}

// NewMapper returns a Mapper using the given update parameters. A nil logger gets a
// development logger.
func NewMapper(conf Config, logger golog.Logger) (*Mapper, error) {
	if err := conf.Validate("mapper"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = golog.NewDevelopmentLogger("occupancy")
	}
	ceiling, floor := conf.Bounds()
	return &Mapper{
		maxRange:  conf.MaxRange,
		hitDelta:  conf.HitDelta,
		missDelta: conf.MissDelta,
		ceiling:   ceiling,
		floor:     floor,
		logger:    logger,
	}, nil
}

type updateStats struct {
	hits      int
	misses    int
	saturated int
}

// Update applies every reading of scan to grid. offset is the distance of the sensor
// from the pose's reference point along its heading. The first failure aborts the
// update and leaves the grid partially updated.
func (m *Mapper) Update(scan Scan, pose Pose, offset float64, grid *Grid) error {
	if err := m.check(pose, offset, grid); err != nil {
		return err
	}
	var stats updateStats
	for k := range scan.Ranges {
		if err := m.updateBeam(scan, k, pose, offset, grid, &stats); err != nil {
			return errors.Wrapf(err, "updating beam %d", k)
		}
	}
	m.logger.Debugw("applied scan",
		"beams", len(scan.Ranges),
		"hits", stats.hits,
		"misses", stats.misses,
		"saturated", stats.saturated)
	return nil
}

// UpdateShared is Update holding the shared grid's write lock for the whole scan.
func (m *Mapper) UpdateShared(scan Scan, pose Pose, offset float64, grid *SharedGrid) error {
	return grid.Mutate(func(g *Grid) error {
		return m.Update(scan, pose, offset, g)
	})
}

// UpdateBeam applies reading k of scan to grid.
func (m *Mapper) UpdateBeam(scan Scan, k int, pose Pose, offset float64, grid *Grid) error {
	if k < 0 || k >= len(scan.Ranges) {
		return errors.Errorf("beam index %d out of range for scan with %d readings", k, len(scan.Ranges))
	}
	if err := m.check(pose, offset, grid); err != nil {
		return err
	}
	var stats updateStats
	return m.updateBeam(scan, k, pose, offset, grid, &stats)
}

func (m *Mapper) check(pose Pose, offset float64, grid *Grid) error {
	if grid == nil {
		return errors.New("nil grid")
	}
	if err := grid.Validate(); err != nil {
		return err
	}
	for _, v := range []float64{pose.X, pose.Y, pose.Theta, offset} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("pose (%v, %v, %v) with offset %v is not finite", pose.X, pose.Y, pose.Theta, offset)
		}
	}
	return nil
}

// effectiveRange substitutes MaxRange for readings without a return. +Inf counts as no
// return too: traced verbatim its endpoint has NaN coordinates and no cell to clamp to.
func (m *Mapper) effectiveRange(reading float64) float64 {
	if math.IsNaN(reading) || math.IsInf(reading, 1) {
		return m.maxRange
	}
	return reading
}

func (m *Mapper) updateBeam(scan Scan, k int, pose Pose, offset float64, grid *Grid, stats *updateStats) error {
	origin := pose.Position().Add(heading(pose.Theta).Mul(offset))
	bearing := pose.Theta + scan.AngleMin + float64(k)*scan.AngleIncrement
	dist := m.effectiveRange(scan.Ranges[k])
	end := origin.Add(heading(bearing).Mul(dist))

	from := grid.Clamp(grid.WorldToCell(origin))
	to := grid.Clamp(grid.WorldToCell(end))

	if dist < m.maxRange {
		for c := range Line(from, to) {
			if c == to {
				continue
			}
			if err := m.miss(grid, c, stats); err != nil {
				return err
			}
		}
		return m.hit(grid, to, stats)
	}
	for c := range Line(from, to) {
		if err := m.miss(grid, c, stats); err != nil {
			return err
		}
	}
	return nil
}

// hit raises c by hitDelta unless that would pass the ceiling.
func (m *Mapper) hit(grid *Grid, c image.Point, stats *updateStats) error {
	v, err := grid.LogOdds(c)
	if err != nil {
		return err
	}
	next := int(v) + m.hitDelta
	if next > m.ceiling {
		stats.saturated++
		return nil
	}
	stats.hits++
	return grid.SetLogOdds(c, int8(next))
}

// miss lowers c by missDelta unless that would pass the floor.
func (m *Mapper) miss(grid *Grid, c image.Point, stats *updateStats) error {
	v, err := grid.LogOdds(c)
	if err != nil {
		return err
	}
	next := int(v) - m.missDelta
	if next < m.floor {
		stats.saturated++
		return nil
	}
	stats.misses++
	return grid.SetLogOdds(c, int8(next))
}
