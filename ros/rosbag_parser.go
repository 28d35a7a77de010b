// Package ros implements the message types and rosbag access used to bridge stereo camera
// streams to and from ROS.
package ros

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// WriteTopicsJSON converts the listed topics of a rosbag to JSON lines held in rb.TopicsAsJSON.
// Zero start and end times disable time filtering.
func WriteTopicsJSON(rb *rosbag.RosBag, startTime, endTime int64, topicsFilter []string) error {
	var timeFilterFunc func(int64) bool
	if startTime == 0 || endTime == 0 {
		timeFilterFunc = func(timestamp int64) bool {
			return true
		}
	} else {
		timeFilterFunc = func(timestamp int64) bool {
			return timestamp >= startTime && timestamp <= endTime
		}
	}

	topicsFilterMap := make(map[string]bool)
	for _, topic := range topicsFilter {
		topicsFilterMap[topic] = true
	}
	topicFilterFunc := func(topic string) bool {
		return len(topicsFilterMap) == 0 || topicsFilterMap[topic]
	}

	if err := rb.ParseTopicsToJSON("", timeFilterFunc, topicFilterFunc, false); err != nil {
		return errors.Wrapf(err, "error while parsing bag to JSON")
	}

	return nil
}

// ImageMessagesForTopic returns every sensor_msgs/Image message of a topic that has already
// been converted with WriteTopicsJSON.
func ImageMessagesForTopic(rb *rosbag.RosBag, topic string) ([]BagImageMessage, error) {
	msgs := rb.TopicsAsJSON[topic]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return DecodeImageMessages(msgs)
}

// DecodeImageMessages decodes newline separated JSON image records.
func DecodeImageMessages(r io.Reader) ([]BagImageMessage, error) {
	all := []BagImageMessage{}
	reader, ok := r.(byteReader)
	if !ok {
		reader = bufio.NewReader(r)
	}
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var message BagImageMessage
			if jsonErr := json.Unmarshal(line, &message); jsonErr != nil {
				return nil, errors.Wrapf(jsonErr, "error decoding image message %d", len(all))
			}
			all = append(all, message)
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

type byteReader interface {
	ReadBytes(delim byte) ([]byte, error)
}
