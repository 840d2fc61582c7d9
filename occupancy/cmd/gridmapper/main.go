// Package main replays the scans and poses recorded in a rosbag through an occupancy
// mapper and saves the resulting map in the ROS map_server format.
package main

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/gridmap/config"
	"go.viam.com/gridmap/logging"
	"go.viam.com/gridmap/mapfile"
	"go.viam.com/gridmap/occupancy"
	"go.viam.com/gridmap/ros"
)

var logger = golog.NewDevelopmentLogger("gridmapper")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=mapping config file"`
	Debug      bool   `flag:"debug"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	conf, err := config.Read(argsParsed.ConfigFile)
	if err != nil {
		return err
	}

	runLogger, closer, err := logging.NewLogger("gridmapper", logging.Options{Debug: argsParsed.Debug, LogFile: conf.LogFile})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closer())
	}()

	scans, poses, err := readBag(ctx, conf)
	if err != nil {
		return err
	}
	runLogger.Infow("read bag", "bag", conf.Bag, "scans", len(scans), "poses", len(poses))

	grid, err := initialGrid(conf)
	if err != nil {
		return err
	}
	if err := buildMap(ctx, conf, scans, poses, grid, runLogger); err != nil {
		return err
	}

	ceiling, floor := conf.Mapper.Bounds()
	summary := occupancy.Summarize(grid,
		thresholdValue(mapfile.OccupiedThresh, floor, ceiling),
		thresholdValue(mapfile.FreeThresh, floor, ceiling))
	runLogger.Infof("map summary\n%s", summary)
	return saveMap(conf, grid, runLogger)
}

// readBag decodes the scan and pose topics of the configured bag. Messages are pulled
// out of the bag one topic at a time and decoded concurrently.
func readBag(ctx context.Context, conf *config.Config) ([]ros.TimedScan, []ros.TimedPose, error) {
	rb, err := ros.ReadBag(conf.Bag)
	if err != nil {
		return nil, nil, err
	}
	rawScans, err := ros.TopicMessages(rb, conf.ScanTopic)
	if err != nil {
		return nil, nil, err
	}
	rawPoses, err := ros.TopicMessages(rb, conf.PoseTopic)
	if err != nil {
		return nil, nil, err
	}

	var (
		scans []ros.TimedScan
		poses []ros.TimedPose
	)
	errs, _ := errgroup.WithContext(ctx)
	errs.Go(func() error {
		var err error
		scans, err = ros.DecodeScans(rawScans)
		return err
	})
	errs.Go(func() error {
		var err error
		poses, err = ros.DecodePoses(rawPoses, conf.PoseType)
		return err
	})
	if err := errs.Wait(); err != nil {
		return nil, nil, err
	}
	return scans, poses, nil
}

func initialGrid(conf *config.Config) (*occupancy.Grid, error) {
	if conf.InputMap != "" {
		return mapfile.Load(conf.InputMap)
	}
	return conf.Grid.NewGrid()
}

// buildMap applies every scan to grid using the latest pose recorded at or before it.
func buildMap(
	ctx context.Context,
	conf *config.Config,
	scans []ros.TimedScan,
	poses []ros.TimedPose,
	grid *occupancy.Grid,
	logger golog.Logger,
) error {
	if len(scans) > 0 && len(poses) == 0 {
		return errors.Errorf("no poses on %s to place %d scans", conf.PoseTopic, len(scans))
	}
	mapper, err := occupancy.NewMapper(conf.Mapper, logger)
	if err != nil {
		return err
	}
	for i, scan := range scans {
		if err := ctx.Err(); err != nil {
			return err
		}
		pose, _ := ros.PoseAt(poses, scan.Time)
		if err := mapper.Update(scan.Scan, pose, conf.SensorOffset, grid); err != nil {
			return errors.Wrapf(err, "applying scan %d at %v", i, scan.Time)
		}
	}
	return nil
}

func saveMap(conf *config.Config, grid *occupancy.Grid, logger golog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(conf.Output), 0o750); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	if err := mapfile.Save(conf.Output, grid, conf.ImageFormat); err != nil {
		return err
	}
	logger.Infow("saved map", "path", conf.Output, "width", grid.Width, "height", grid.Height)
	return nil
}

// thresholdValue turns a map_server threshold into a cell value within [floor, ceiling].
func thresholdValue(fraction float64, floor, ceiling int) int8 {
	return int8(floor + int(math.Round(fraction*float64(ceiling-floor))))
}
