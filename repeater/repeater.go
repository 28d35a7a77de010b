package repeater

import (
	"context"
	"sync"
	"time"

	"go.viam.com/utils"

	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/ros"
)

// Stats is a snapshot of every repeater counter.
type Stats struct {
	Cache    CacheStats
	Channels map[ChannelName]ChannelStats
}

// Repeater feeds inbound left and right frames through a FrameCache and emits every completed
// pair through a Republisher.
type Repeater struct {
	cache       *FrameCache
	republisher *Republisher
	logger      logging.Logger

	// emit cycles are serialized so stamps never go backwards on a channel.
	emitMu sync.Mutex

	leftOnce    sync.Once
	rightOnce   sync.Once
	publishOnce sync.Once
}

// New returns a Repeater with an empty cache.
func New(republisher *Republisher, logger logging.Logger) *Repeater {
	return &Repeater{
		cache:       NewFrameCache(),
		republisher: republisher,
		logger:      logger,
	}
}

// HandleFrame caches frame for side and, when that completes a pair, republishes it. It is safe
// to call from the left and right streams concurrently.
func (rp *Repeater) HandleFrame(side Side, frame *ros.Image) {
	if frame == nil {
		return
	}
	switch side {
	case SideLeft:
		rp.leftOnce.Do(func() { rp.logger.Info("left image received") })
	case SideRight:
		rp.rightOnce.Do(func() { rp.logger.Info("right image received") })
	}

	pair, ok := rp.cache.Put(side, frame)
	if !ok {
		return
	}

	rp.emitMu.Lock()
	published := rp.republisher.Emit(pair)
	rp.emitMu.Unlock()
	if published > 0 {
		rp.publishOnce.Do(func() { rp.logger.Info("publishing") })
	}
}

// HandleLeft is HandleFrame(SideLeft, frame).
func (rp *Repeater) HandleLeft(frame *ros.Image) {
	rp.HandleFrame(SideLeft, frame)
}

// HandleRight is HandleFrame(SideRight, frame).
func (rp *Repeater) HandleRight(frame *ros.Image) {
	rp.HandleFrame(SideRight, frame)
}

// Run drains the two inbound streams until ctx is done or both streams are closed.
func (rp *Repeater) Run(ctx context.Context, left, right <-chan *ros.Image) error {
	var wg sync.WaitGroup
	drain := func(side Side, frames <-chan *ros.Image) {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				rp.HandleFrame(side, frame)
			}
		}
	}
	wg.Add(2)
	utils.PanicCapturingGo(func() { drain(SideLeft, left) })
	utils.PanicCapturingGo(func() { drain(SideRight, right) })
	wg.Wait()
	return ctx.Err()
}

// Stats returns a snapshot of the cache and channel counters.
func (rp *Repeater) Stats() Stats {
	return Stats{Cache: rp.cache.Stats(), Channels: rp.republisher.Stats()}
}

// LogStats writes the counters at debug level every interval until the returned workers are
// stopped.
func (rp *Repeater) LogStats(interval time.Duration) *utils.StoppableWorkers {
	return utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if !utils.SelectContextOrWaitChan(ctx, ticker.C) {
				return
			}
			rp.logStats(logging.DEBUG)
		}
	})
}

func (rp *Repeater) logStats(level logging.Level) {
	stats := rp.Stats()
	keysAndValues := []interface{}{
		"pairs", stats.Cache.Pairs,
		"left_dropped", stats.Cache.LeftDropped,
		"right_dropped", stats.Cache.RightDropped,
	}
	for _, name := range channelOrder {
		keysAndValues = append(keysAndValues,
			string(name)+"_published", stats.Channels[name].Published,
			string(name)+"_skipped", stats.Channels[name].Skipped)
	}
	if level == logging.DEBUG {
		rp.logger.Debugw("repeater stats", keysAndValues...)
		return
	}
	rp.logger.Infow("repeater stats", keysAndValues...)
}

// LogFinalStats writes the counters at info level, for shutdown.
func (rp *Repeater) LogFinalStats() {
	rp.logStats(logging.INFO)
}
