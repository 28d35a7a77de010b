package source

import (
	"context"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/ros"
)

// BagConfig describes a rosbag replay.
type BagConfig struct {
	Path       string
	LeftTopic  string
	RightTopic string
	// Rate scales the recorded inter-frame gaps; 2 plays twice as fast. Zero replays without
	// pacing.
	Rate float64
	Loop bool
}

// BagSource replays the left and right image topics of a rosbag.
type BagSource struct {
	cfg    BagConfig
	logger logging.Logger

	left  []ros.BagImageMessage
	right []ros.BagImageMessage
}

// NewBagSource reads both image topics of the bag at cfg.Path.
func NewBagSource(cfg BagConfig, logger logging.Logger) (*BagSource, error) {
	if cfg.LeftTopic == "" || cfg.RightTopic == "" {
		return nil, errors.New("left and right bag topics are required")
	}
	if cfg.Rate < 0 {
		return nil, errors.Errorf("invalid replay rate %v", cfg.Rate)
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read rosbag")
	}
	logger.Infow("reading rosbag", "path", cfg.Path, "size", units.HumanSize(float64(info.Size())))
	rb, err := ros.ReadBag(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := ros.WriteTopicsJSON(rb, 0, 0, []string{cfg.LeftTopic, cfg.RightTopic}); err != nil {
		return nil, err
	}
	left, err := ros.ImageMessagesForTopic(rb, cfg.LeftTopic)
	if err != nil {
		return nil, err
	}
	right, err := ros.ImageMessagesForTopic(rb, cfg.RightTopic)
	if err != nil {
		return nil, err
	}
	logger.Infow("loaded rosbag", "path", cfg.Path, "left", len(left), "right", len(right))
	return newBagSourceFromMessages(cfg, left, right, logger), nil
}

func newBagSourceFromMessages(cfg BagConfig, left, right []ros.BagImageMessage, logger logging.Logger) *BagSource {
	return &BagSource{cfg: cfg, logger: logger, left: left, right: right}
}

// Run replays both streams concurrently until they end, or forever when looping, or until ctx
// is done.
func (bs *BagSource) Run(ctx context.Context, out Outputs) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return bs.replay(ctx, "left", bs.left, out.Left)
	})
	group.Go(func() error {
		return bs.replay(ctx, "right", bs.right, out.Right)
	})
	return group.Wait()
}

func (bs *BagSource) replay(ctx context.Context, side string, msgs []ros.BagImageMessage, pub Publisher) error {
	if len(msgs) == 0 {
		bs.logger.Warnw("no messages to replay", "side", side)
		return nil
	}
	for {
		start := time.Now()
		first := msgs[0].Meta.Time()
		for i := range msgs {
			msg := &msgs[i]
			if bs.cfg.Rate > 0 {
				offset := time.Duration(float64(msg.Meta.Time().Sub(first)) / bs.cfg.Rate)
				if wait := time.Until(start.Add(offset)); wait > 0 {
					if !utils.SelectContextOrWait(ctx, wait) {
						return ctx.Err()
					}
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			frame, err := msg.Data.ToBGR8()
			if err != nil {
				bs.logger.Warnw("skipping bag frame", "side", side, "index", i, "error", err)
				continue
			}
			pub.Publish(frame)
		}
		if !bs.cfg.Loop {
			return nil
		}
	}
}
