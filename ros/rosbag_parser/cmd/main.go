// Package main dumps the topics of a rosbag as JSON, one file per topic, and
// reports how many scans and poses a mapping run over the bag would see.
package main

import (
	"context"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"go.viam.com/gridmap/ros"
)

var logger = golog.NewDevelopmentLogger("rosbag_parser")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Bag       string `flag:"0,required,usage=rosbag file"`
	Out       string `flag:"out,default=.,usage=directory to write the topic files to"`
	Topics    string `flag:"topics,usage=comma separated topics to dump (all when empty)"`
	Start     int    `flag:"start,usage=first record time to dump in seconds"`
	End       int    `flag:"end,usage=last record time to dump in seconds"`
	ScanTopic string `flag:"scan-topic,usage=LaserScan topic to count"`
	PoseTopic string `flag:"pose-topic,usage=pose topic to count"`
	PoseType  string `flag:"pose-type,default=pose2d,usage=message type of the pose topic (pose2d or odometry)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	rb, err := ros.ReadBag(argsParsed.Bag)
	if err != nil {
		return err
	}

	var topics []string
	for _, topic := range strings.Split(argsParsed.Topics, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	written, err := ros.WriteTopicsJSON(rb, argsParsed.Out, int64(argsParsed.Start), int64(argsParsed.End), topics)
	if err != nil {
		return err
	}
	logger.Infow("dumped topics", "bag", argsParsed.Bag, "files", written)

	if argsParsed.ScanTopic != "" {
		raw, err := ros.TopicMessages(rb, argsParsed.ScanTopic)
		if err != nil {
			return err
		}
		scans, err := ros.DecodeScans(raw)
		if err != nil {
			return err
		}
		beams := 0
		stamps := make([]time.Time, len(scans))
		for i, s := range scans {
			stamps[i] = s.Time
			beams += len(s.Scan.Ranges)
		}
		logSpan(logger, "scans", argsParsed.ScanTopic, stamps, "beams", beams)
	}

	if argsParsed.PoseTopic != "" {
		raw, err := ros.TopicMessages(rb, argsParsed.PoseTopic)
		if err != nil {
			return err
		}
		poses, err := ros.DecodePoses(raw, ros.PoseType(argsParsed.PoseType))
		if err != nil {
			return err
		}
		stamps := make([]time.Time, len(poses))
		for i, p := range poses {
			stamps[i] = p.Time
		}
		logSpan(logger, "poses", argsParsed.PoseTopic, stamps)
	}
	return nil
}

func logSpan(logger golog.Logger, what, topic string, stamps []time.Time, extra ...interface{}) {
	fields := []interface{}{"topic", topic, "count", len(stamps)}
	if len(stamps) > 0 {
		fields = append(fields, "first", stamps[0], "last", stamps[len(stamps)-1])
	}
	logger.Infow(what, append(fields, extra...)...)
}
