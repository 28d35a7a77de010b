package repeater

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/ros"
)

// Channel is an outbound topic. Publish must not block.
type Channel[T any] interface {
	NumSubscribers() int
	Publish(msg T)
}

// Outputs are the four channels a Republisher writes to.
type Outputs struct {
	LeftImage  Channel[*ros.Image]
	RightImage Channel[*ros.Image]
	LeftInfo   Channel[*ros.CameraInfo]
	RightInfo  Channel[*ros.CameraInfo]
}

func (o Outputs) validate() error {
	if o.LeftImage == nil || o.RightImage == nil || o.LeftInfo == nil || o.RightInfo == nil {
		return errors.New("all four output channels are required")
	}
	return nil
}

// ChannelName identifies one of the four outputs in stats.
type ChannelName string

// The output channels.
const (
	LeftImageChannel  ChannelName = "left_image"
	RightImageChannel ChannelName = "right_image"
	LeftInfoChannel   ChannelName = "left_camera_info"
	RightInfoChannel  ChannelName = "right_camera_info"
)

const (
	leftImageIdx = iota
	rightImageIdx
	leftInfoIdx
	rightInfoIdx
)

var channelOrder = [...]ChannelName{
	leftImageIdx:  LeftImageChannel,
	rightImageIdx: RightImageChannel,
	leftInfoIdx:   LeftInfoChannel,
	rightInfoIdx:  RightInfoChannel,
}

// ChannelStats counts publishes and skips of one channel.
type ChannelStats struct {
	Published uint64
	Skipped   uint64
}

type atomicChannelStats struct {
	published atomic.Uint64
	skipped   atomic.Uint64
}

// RepublisherConfig holds what a Republisher needs besides its outputs.
type RepublisherConfig struct {
	LeftInfo  *calibration.CameraInfo
	RightInfo *calibration.CameraInfo
	// Frame ids stamped on republished images. Calibration messages use the record's FrameID.
	LeftImageFrameID  string
	RightImageFrameID string
}

// Republisher stamps a pair and its calibration records with one timestamp and publishes each to
// the channels that currently have subscribers.
type Republisher struct {
	clock   clock.Clock
	cfg     RepublisherConfig
	outputs Outputs
	logger  logging.Logger

	stats [len(channelOrder)]atomicChannelStats
}

// NewRepublisher returns a Republisher. The calibration records are shared read-only by every
// publish.
func NewRepublisher(
	clk clock.Clock,
	cfg RepublisherConfig,
	outputs Outputs,
	logger logging.Logger,
) (*Republisher, error) {
	if cfg.LeftInfo == nil || cfg.RightInfo == nil {
		return nil, errors.New("left and right camera info are required")
	}
	if err := outputs.validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Republisher{clock: clk, cfg: cfg, outputs: outputs, logger: logger}, nil
}

// Emit publishes pair. The clock is read once so all four messages share a stamp. It returns
// how many channels were published to.
func (r *Republisher) Emit(pair Pair) int {
	now := r.clock.Now()
	stamp := ros.NewTime(now)
	published := 0

	if r.gate(leftImageIdx, r.outputs.LeftImage) {
		r.outputs.LeftImage.Publish(stampImage(pair.Left, stamp, r.cfg.LeftImageFrameID))
		published++
	}
	if r.gate(rightImageIdx, r.outputs.RightImage) {
		r.outputs.RightImage.Publish(stampImage(pair.Right, stamp, r.cfg.RightImageFrameID))
		published++
	}
	if r.gate(leftInfoIdx, r.outputs.LeftInfo) {
		r.outputs.LeftInfo.Publish(ros.NewCameraInfo(r.cfg.LeftInfo, now))
		published++
	}
	if r.gate(rightInfoIdx, r.outputs.RightInfo) {
		r.outputs.RightInfo.Publish(ros.NewCameraInfo(r.cfg.RightInfo, now))
		published++
	}
	return published
}

type subscriberCounter interface {
	NumSubscribers() int
}

func (r *Republisher) gate(idx int, ch subscriberCounter) bool {
	if ch.NumSubscribers() > 0 {
		r.stats[idx].published.Inc()
		return true
	}
	r.stats[idx].skipped.Inc()
	return false
}

// Stats returns a snapshot of the per-channel counters.
func (r *Republisher) Stats() map[ChannelName]ChannelStats {
	out := make(map[ChannelName]ChannelStats, len(channelOrder))
	for i, name := range channelOrder {
		out[name] = ChannelStats{
			Published: r.stats[i].published.Load(),
			Skipped:   r.stats[i].skipped.Load(),
		}
	}
	return out
}

// stampImage returns a shallow copy of frame with a new header. The pixel buffer moves with the
// pair, which is not touched again after Emit.
func stampImage(frame *ros.Image, stamp ros.Time, frameID string) *ros.Image {
	out := *frame
	out.Header.Stamp = stamp
	if frameID != "" {
		out.Header.FrameID = frameID
	}
	return &out
}
