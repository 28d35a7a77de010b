package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/stereorepeater/config"
	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/repeater"
	"go.viam.com/stereorepeater/ros"
	"go.viam.com/stereorepeater/source"
	"go.viam.com/stereorepeater/transport"
)

// RunAction runs the repeater until interrupted.
func RunAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	logger, closeLogs, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, logger)
}

type frameSource interface {
	Run(ctx context.Context, out source.Outputs) error
}

func newSource(cfg config.SourceConfig, frameIDs [2]string, logger logging.Logger) (frameSource, error) {
	if cfg.Bag != nil {
		return source.NewBagSource(source.BagConfig{
			Path:       cfg.Bag.Path,
			LeftTopic:  cfg.Bag.LeftTopic,
			RightTopic: cfg.Bag.RightTopic,
			Rate:       cfg.Bag.Rate,
			Loop:       cfg.Bag.Loop,
		}, logger)
	}
	return source.NewDirSource(source.DirConfig{
		Path:         cfg.Dir.Path,
		LeftPrefix:   cfg.Dir.LeftPrefix,
		RightPrefix:  cfg.Dir.RightPrefix,
		Settle:       cfg.Dir.Settle,
		LeftFrameID:  frameIDs[0],
		RightFrameID: frameIDs[1],
	}, logger)
}

// outputs owns the four outbound websocket topics.
type outputs struct {
	leftImage  *transport.WebsocketTopic[*ros.Image]
	rightImage *transport.WebsocketTopic[*ros.Image]
	leftInfo   *transport.WebsocketTopic[*ros.CameraInfo]
	rightInfo  *transport.WebsocketTopic[*ros.CameraInfo]
}

func newOutputs(cfg *config.Config, server *transport.Server, logger logging.Logger) (*outputs, error) {
	out := &outputs{
		leftImage:  transport.NewWebsocketTopic[*ros.Image](cfg.Topics.LeftImage, cfg.QueueSize, logger),
		rightImage: transport.NewWebsocketTopic[*ros.Image](cfg.Topics.RightImage, cfg.QueueSize, logger),
		leftInfo:   transport.NewWebsocketTopic[*ros.CameraInfo](cfg.Topics.LeftInfo, cfg.QueueSize, logger),
		rightInfo:  transport.NewWebsocketTopic[*ros.CameraInfo](cfg.Topics.RightInfo, cfg.QueueSize, logger),
	}
	for name, handler := range map[string]http.Handler{
		out.leftImage.Name():  out.leftImage,
		out.rightImage.Name(): out.rightImage,
		out.leftInfo.Name():   out.leftInfo,
		out.rightInfo.Name():  out.rightInfo,
	} {
		if err := server.Mount(name, handler); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *outputs) channels() repeater.Outputs {
	return repeater.Outputs{
		LeftImage:  o.leftImage,
		RightImage: o.rightImage,
		LeftInfo:   o.leftInfo,
		RightInfo:  o.rightInfo,
	}
}

func (o *outputs) close() error {
	return multierr.Combine(o.leftImage.Close(), o.rightImage.Close(), o.leftInfo.Close(), o.rightInfo.Close())
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	// Calibration failures abort before any channel is opened.
	leftInfo, rightInfo, err := loadCameraInfos(cfg, logger.Sublogger("calibration"))
	if err != nil {
		return err
	}
	src, err := newSource(cfg.Source, [2]string{cfg.LeftImageFrameID, cfg.RightImageFrameID}, logger.Sublogger("source"))
	if err != nil {
		return err
	}

	server := transport.NewServer(logger.Sublogger("transport"))
	out, err := newOutputs(cfg, server, logger.Sublogger("transport"))
	if err != nil {
		return err
	}
	republisher, err := repeater.NewRepublisher(clock.New(), repeater.RepublisherConfig{
		LeftInfo:          leftInfo,
		RightInfo:         rightInfo,
		LeftImageFrameID:  cfg.LeftImageFrameID,
		RightImageFrameID: cfg.RightImageFrameID,
	}, out.channels(), logger.Sublogger("republisher"))
	if err != nil {
		return err
	}
	rp := repeater.New(republisher, logger.Sublogger("repeater"))

	leftIn := transport.NewTopic[*ros.Image](cfg.Topics.LeftIn, logger.Sublogger("transport"))
	rightIn := transport.NewTopic[*ros.Image](cfg.Topics.RightIn, logger.Sublogger("transport"))
	leftSub := leftIn.Subscribe(cfg.QueueSize)
	rightSub := rightIn.Subscribe(cfg.QueueSize)

	if cfg.StatsInterval > 0 {
		statsWorker := rp.LogStats(cfg.StatsInterval)
		defer statsWorker.Stop()
	}

	srcOut := source.Outputs{Left: leftIn, Right: rightIn}
	if cfg.FrameRate > 0 {
		leftThrottle := transport.NewThrottle[*ros.Image](leftIn, cfg.FrameRate)
		rightThrottle := transport.NewThrottle[*ros.Image](rightIn, cfg.FrameRate)
		srcOut = source.Outputs{Left: leftThrottle, Right: rightThrottle}
		defer func() {
			logger.Infow("frame rate limit", "hz", cfg.FrameRate,
				"left_dropped", leftThrottle.Dropped(), "right_dropped", rightThrottle.Dropped())
		}()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return ignoreCanceled(rp.Run(ctx, leftSub.C(), rightSub.C()))
	})
	group.Go(func() error {
		if err := ignoreCanceled(src.Run(ctx, srcOut)); err != nil {
			return errors.Wrap(err, "source failed")
		}
		logger.Info("source finished")
		return nil
	})
	if cfg.ListenAddress != "" {
		group.Go(func() error {
			return server.ListenAndServe(ctx, cfg.ListenAddress)
		})
	}

	logger.Infow("repeater started",
		"resolution", cfg.Resolution.Suffix(),
		"in", []string{cfg.Topics.LeftIn, cfg.Topics.RightIn},
		"listen", cfg.ListenAddress)
	err = group.Wait()

	leftIn.Close()
	rightIn.Close()
	err = multierr.Combine(err, out.close())
	rp.LogFinalStats()
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
