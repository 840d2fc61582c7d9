package ros

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/gridmap/occupancy"
)

// Float is a float64 that also decodes null and quoted NaN/Inf values, as written by
// JSON exporters other than gobag (rosbridge writes null). null decodes to NaN.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = Float(math.NaN())
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	if strings.EqualFold(strings.TrimLeft(s, "+-"), "nan") {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid float %q", s)
	}
	*f = Float(v)
	return nil
}

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64
	Nsecs int64
}

// Time converts the stamp.
func (s Stamp) Time() time.Time {
	return time.Unix(s.Secs, s.Nsecs)
}

// IsZero reports whether the stamp is unset.
func (s Stamp) IsZero() bool {
	return s.Secs == 0 && s.Nsecs == 0
}

// Header is a std_msgs/Header.
type Header struct {
	Seq     int
	Stamp   Stamp
	FrameID string `json:"frame_id"`
}

// LaserScanMessage is a sensor_msgs/LaserScan as written by gobag.
type LaserScanMessage struct {
	Meta Stamp
	Data struct {
		Header         Header
		AngleMin       float64 `json:"angle_min"`
		AngleMax       float64 `json:"angle_max"`
		AngleIncrement float64 `json:"angle_increment"`
		TimeIncrement  float64 `json:"time_increment"`
		ScanTime       float64 `json:"scan_time"`
		RangeMin       float64 `json:"range_min"`
		RangeMax       float64 `json:"range_max"`
		Ranges         []Float
		Intensities    []Float
	}
}

// Timestamp prefers the header stamp and falls back to the bag record time.
func (m *LaserScanMessage) Timestamp() time.Time {
	if !m.Data.Header.Stamp.IsZero() {
		return m.Data.Header.Stamp.Time()
	}
	return m.Meta.Time()
}

// Scan converts the message. gobag writes NaN and Inf readings as 0, so any reading
// that is not a positive finite value within [range_min, range_max] becomes NaN, the
// mapper's "no return". range_max is only enforced when set.
func (m *LaserScanMessage) Scan() occupancy.Scan {
	ranges := make([]float64, len(m.Data.Ranges))
	for i, r := range m.Data.Ranges {
		ranges[i] = m.reading(float64(r))
	}
	return occupancy.Scan{
		Ranges:         ranges,
		AngleMin:       m.Data.AngleMin,
		AngleIncrement: m.Data.AngleIncrement,
	}
}

func (m *LaserScanMessage) reading(r float64) float64 {
	switch {
	case math.IsNaN(r), math.IsInf(r, 0), r <= 0, r < m.Data.RangeMin:
		return math.NaN()
	case m.Data.RangeMax > 0 && r > m.Data.RangeMax:
		return math.NaN()
	default:
		return r
	}
}

// Pose2DMessage is a geometry_msgs/Pose2D.
type Pose2DMessage struct {
	Meta Stamp
	Data struct {
		X     float64
		Y     float64
		Theta float64
	}
}

// Timestamp returns the bag record time; Pose2D has no header.
func (m *Pose2DMessage) Timestamp() time.Time {
	return m.Meta.Time()
}

// Pose converts the message.
func (m *Pose2DMessage) Pose() occupancy.Pose {
	return occupancy.Pose{X: m.Data.X, Y: m.Data.Y, Theta: m.Data.Theta}
}

// Quaternion is a geometry_msgs/Quaternion.
type Quaternion struct {
	X, Y, Z, W float64
}

// Yaw returns the rotation about z in radians.
func (q Quaternion) Yaw() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// OdometryMessage is a nav_msgs/Odometry. Only the pose part is decoded.
type OdometryMessage struct {
	Meta Stamp
	Data struct {
		Header       Header
		ChildFrameID string `json:"child_frame_id"`
		Pose         struct {
			Pose struct {
				Position struct {
					X, Y, Z float64
				}
				Orientation Quaternion
			}
		}
	}
}

// Timestamp prefers the header stamp and falls back to the bag record time.
func (m *OdometryMessage) Timestamp() time.Time {
	if !m.Data.Header.Stamp.IsZero() {
		return m.Data.Header.Stamp.Time()
	}
	return m.Meta.Time()
}

// Pose converts the message, projecting it onto the ground plane.
func (m *OdometryMessage) Pose() occupancy.Pose {
	p := m.Data.Pose.Pose
	return occupancy.Pose{X: p.Position.X, Y: p.Position.Y, Theta: p.Orientation.Yaw()}
}

// PoseType names a message type that can supply robot poses.
type PoseType string

// Supported pose message types.
const (
	PoseTypePose2D   = PoseType("pose2d")
	PoseTypeOdometry = PoseType("odometry")
)

// TimedScan is a scan with its acquisition time.
type TimedScan struct {
	Time time.Time
	Scan occupancy.Scan
}

// TimedPose is a pose with the time it was valid.
type TimedPose struct {
	Time time.Time
	Pose occupancy.Pose
}

// DecodeScans decodes LaserScan messages.
func DecodeScans(raw [][]byte) ([]TimedScan, error) {
	scans := make([]TimedScan, 0, len(raw))
	for i, data := range raw {
		var msg LaserScanMessage
		if err := DecodeMessage(data, &msg); err != nil {
			return nil, errors.Wrapf(err, "scan message %d", i)
		}
		scans = append(scans, TimedScan{Time: msg.Timestamp(), Scan: msg.Scan()})
	}
	return scans, nil
}

// DecodePoses decodes pose messages of the given type and sorts them by time.
func DecodePoses(raw [][]byte, poseType PoseType) ([]TimedPose, error) {
	poses := make([]TimedPose, 0, len(raw))
	for i, data := range raw {
		var tp TimedPose
		switch poseType {
		case PoseTypePose2D:
			var msg Pose2DMessage
			if err := DecodeMessage(data, &msg); err != nil {
				return nil, errors.Wrapf(err, "pose message %d", i)
			}
			tp = TimedPose{Time: msg.Timestamp(), Pose: msg.Pose()}
		case PoseTypeOdometry:
			var msg OdometryMessage
			if err := DecodeMessage(data, &msg); err != nil {
				return nil, errors.Wrapf(err, "odometry message %d", i)
			}
			tp = TimedPose{Time: msg.Timestamp(), Pose: msg.Pose()}
		default:
			return nil, errors.Errorf("unsupported pose type %q", poseType)
		}
		poses = append(poses, tp)
	}
	sort.SliceStable(poses, func(i, j int) bool {
		return poses[i].Time.Before(poses[j].Time)
	})
	return poses, nil
}

// PoseAt returns the latest pose not after t, or the first pose when all of them are
// later. poses must be sorted by time. ok is false only when poses is empty.
func PoseAt(poses []TimedPose, t time.Time) (pose occupancy.Pose, ok bool) {
	if len(poses) == 0 {
		return occupancy.Pose{}, false
	}
	// first index after t
	i := sort.Search(len(poses), func(i int) bool {
		return poses[i].Time.After(t)
	})
	if i == 0 {
		return poses[0].Pose, true
	}
	return poses[i-1].Pose, true
}
