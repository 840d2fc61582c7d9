// Package ros implements functionality that bridges the gap between occupancy mapping and ROS:
// reading bags and decoding the scan and pose messages recorded in them.
package ros

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (rb *rosbag.RosBag, err error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	rb = rosbag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}
	return rb, nil
}

// WriteTopicsJSON writes the messages of every topic that passes topicsFilter (all
// topics when empty) to <outputDir>/<topic key>.json, one JSON message per line, and
// returns the written paths. Only records stamped within [startSecs, endSecs] are
// written unless either bound is zero.
func WriteTopicsJSON(rb *rosbag.RosBag, outputDir string, startSecs, endSecs int64, topicsFilter []string) ([]string, error) {
	clear(rb.TopicsAsJSON)
	if err := rb.ParseTopicsToJSON("", timeFilter(startSecs, endSecs), topicFilter(topicsFilter), true); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	keys := make([]string, 0, len(rb.TopicsAsJSON))
	for key := range rb.TopicsAsJSON {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		path := filepath.Join(outputDir, key+".json")
		if err := writeBuffer(path, rb.TopicsAsJSON[key]); err != nil {
			return nil, err
		}
		delete(rb.TopicsAsJSON, key)
		paths = append(paths, path)
	}
	return paths, nil
}

func writeBuffer(path string, buf *bytes.Buffer) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to open output file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if _, err := buf.WriteTo(f); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// TopicKey returns the name gobag files the messages of topic under: no leading
// slash, lower case, inner slashes replaced by underscores.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// timeFilter matches record times in whole seconds.
func timeFilter(startSecs, endSecs int64) func(int64) bool {
	if startSecs == 0 || endSecs == 0 {
		return func(int64) bool { return true }
	}
	return func(secs int64) bool {
		return secs >= startSecs && secs <= endSecs
	}
}

// topicFilter matches bag topics by key, so "/scan" and "scan" select the same topic.
func topicFilter(topics []string) func(string) bool {
	if len(topics) == 0 {
		return func(string) bool { return true }
	}
	wanted := make(map[string]bool, len(topics))
	for _, topic := range topics {
		wanted[TopicKey(topic)] = true
	}
	return func(topic string) bool {
		return wanted[TopicKey(topic)]
	}
}

// TopicMessages returns the raw JSON of every message on topic, in bag order. Each call
// parses the bag afresh.
func TopicMessages(rb *rosbag.RosBag, topic string) ([][]byte, error) {
	key := TopicKey(topic)
	delete(rb.TopicsAsJSON, key)
	if err := rb.ParseTopicsToJSON("", timeFilter(0, 0), topicFilter([]string{topic}), false); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[key]
	delete(rb.TopicsAsJSON, key)
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}

	var all [][]byte
	for {
		data, err := msgs.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
			all = append(all, trimmed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	return all, nil
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]map[string]interface{}, error) {
	raw, err := TopicMessages(rb, topic)
	if err != nil {
		return nil, err
	}
	all := make([]map[string]interface{}, 0, len(raw))
	for _, data := range raw {
		message := map[string]interface{}{}
		if err := DecodeMessage(data, &message); err != nil {
			return nil, err
		}
		all = append(all, message)
	}
	return all, nil
}

// bare non-finite numbers are not valid JSON, so they are quoted before decoding.
var nonFiniteToken = regexp.MustCompile(`([:\[,]\s*)(-?(?:NaN|nan|Infinity|Inf|inf))\b`)

// DecodeMessage unmarshals one JSON encoded message into v. gobag output is plain
// JSON; dumps from other tools may carry NaN or Inf as bare tokens, strings, or null.
func DecodeMessage(data []byte, v interface{}) error {
	sanitized := nonFiniteToken.ReplaceAll(data, []byte(`$1"$2"`))
	if err := json.Unmarshal(sanitized, v); err != nil {
		return errors.Wrap(err, "decoding ros message")
	}
	return nil
}
