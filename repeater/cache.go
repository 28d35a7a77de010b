// Package repeater pairs the latest left and right frames of a stereo camera and republishes
// them together with their calibration records.
package repeater

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"go.viam.com/stereorepeater/ros"
)

// Side identifies which camera of the stereo pair a frame came from.
type Side int

const (
	// SideLeft is the left camera.
	SideLeft Side = iota
	// SideRight is the right camera.
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Pair is one left and one right frame handed off together.
type Pair struct {
	Left  *ros.Image
	Right *ros.Image
}

// CacheStats counts what happened to frames put into a FrameCache.
type CacheStats struct {
	LeftDropped  uint64
	RightDropped uint64
	Pairs        uint64
}

// FrameCache holds at most one pending frame per side. A newer frame replaces the pending frame
// of the same side. Once both sides are filled the pair is taken and the cache is empty again.
type FrameCache struct {
	mu    sync.Mutex
	slots [2]*ros.Image

	drops [2]atomic.Uint64
	pairs atomic.Uint64
}

// NewFrameCache returns an empty cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{}
}

// Put stores frame as the pending frame for side. When that completes a pair, both slots are
// cleared and the pair is returned with true. Store, check and take happen in one critical
// section so concurrent puts never hand out the same frame twice.
func (fc *FrameCache) Put(side Side, frame *ros.Image) (Pair, bool) {
	if side != SideLeft && side != SideRight {
		panic(fmt.Sprintf("invalid side %d", side))
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.slots[side] != nil {
		fc.drops[side].Inc()
	}
	fc.slots[side] = frame

	if fc.slots[SideLeft] == nil || fc.slots[SideRight] == nil {
		return Pair{}, false
	}
	pair := Pair{Left: fc.slots[SideLeft], Right: fc.slots[SideRight]}
	fc.slots = [2]*ros.Image{}
	fc.pairs.Inc()
	return pair, true
}

// Pending reports which sides currently hold a frame.
func (fc *FrameCache) Pending() (left, right bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.slots[SideLeft] != nil, fc.slots[SideRight] != nil
}

// Stats returns a snapshot of the cache counters.
func (fc *FrameCache) Stats() CacheStats {
	return CacheStats{
		LeftDropped:  fc.drops[SideLeft].Load(),
		RightDropped: fc.drops[SideRight].Load(),
		Pairs:        fc.pairs.Load(),
	}
}
