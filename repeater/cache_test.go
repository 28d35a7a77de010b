package repeater

import (
	"sync"
	"testing"

	"go.viam.com/test"

	"go.viam.com/stereorepeater/ros"
)

func TestFrameCacheLastWriterWins(t *testing.T) {
	fc := NewFrameCache()
	for seq := uint32(1); seq <= 3; seq++ {
		_, ok := fc.Put(SideLeft, testFrame(seq))
		test.That(t, ok, test.ShouldBeFalse)
	}
	left, right := fc.Pending()
	test.That(t, left, test.ShouldBeTrue)
	test.That(t, right, test.ShouldBeFalse)
	test.That(t, fc.Stats(), test.ShouldResemble, CacheStats{LeftDropped: 2})

	pair, ok := fc.Put(SideRight, testFrame(10))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pair.Left.Header.Seq, test.ShouldEqual, uint32(3))
	test.That(t, pair.Right.Header.Seq, test.ShouldEqual, uint32(10))
}

func TestFrameCacheSinglePair(t *testing.T) {
	fc := NewFrameCache()
	_, ok := fc.Put(SideRight, testFrame(1))
	test.That(t, ok, test.ShouldBeFalse)
	pair, ok := fc.Put(SideLeft, testFrame(2))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pair.Left.Header.Seq, test.ShouldEqual, uint32(2))
	test.That(t, pair.Right.Header.Seq, test.ShouldEqual, uint32(1))

	left, right := fc.Pending()
	test.That(t, left, test.ShouldBeFalse)
	test.That(t, right, test.ShouldBeFalse)
	test.That(t, fc.Stats(), test.ShouldResemble, CacheStats{Pairs: 1})

	// the next cycle starts from empty
	_, ok = fc.Put(SideLeft, testFrame(3))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFrameCacheInvalidSide(t *testing.T) {
	fc := NewFrameCache()
	test.That(t, func() { fc.Put(Side(2), testFrame(1)) }, test.ShouldPanic)
	test.That(t, Side(2).String(), test.ShouldEqual, "Side(2)")
	test.That(t, SideLeft.String(), test.ShouldEqual, "left")
}

func TestFrameCacheConcurrentPuts(t *testing.T) {
	for i := 0; i < 500; i++ {
		fc := NewFrameCache()
		var wg sync.WaitGroup
		pairs := make(chan Pair, 2)
		start := make(chan struct{})
		put := func(side Side, frame *ros.Image) {
			defer wg.Done()
			<-start
			if pair, ok := fc.Put(side, frame); ok {
				pairs <- pair
			}
		}
		left, right := testFrame(1), testFrame(2)
		wg.Add(2)
		go put(SideLeft, left)
		go put(SideRight, right)
		close(start)
		wg.Wait()
		close(pairs)

		var got []Pair
		for pair := range pairs {
			got = append(got, pair)
		}
		test.That(t, got, test.ShouldHaveLength, 1)
		test.That(t, got[0].Left, test.ShouldEqual, left)
		test.That(t, got[0].Right, test.ShouldEqual, right)
		l, r := fc.Pending()
		test.That(t, l || r, test.ShouldBeFalse)
	}
}

func TestFrameCacheManyFrames(t *testing.T) {
	fc := NewFrameCache()
	const perSide = 1000
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[*ros.Image]int{}
	put := func(side Side) {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			if pair, ok := fc.Put(side, testFrame(uint32(i))); ok {
				mu.Lock()
				seen[pair.Left]++
				seen[pair.Right]++
				mu.Unlock()
			}
		}
	}
	wg.Add(2)
	go put(SideLeft)
	go put(SideRight)
	wg.Wait()

	for _, count := range seen {
		test.That(t, count, test.ShouldEqual, 1)
	}
	stats := fc.Stats()
	left, right := fc.Pending()
	leftPending, rightPending := uint64(0), uint64(0)
	if left {
		leftPending = 1
	}
	if right {
		rightPending = 1
	}
	// every frame is either paired, dropped, or still pending
	test.That(t, stats.Pairs+stats.LeftDropped+leftPending, test.ShouldEqual, uint64(perSide))
	test.That(t, stats.Pairs+stats.RightDropped+rightPending, test.ShouldEqual, uint64(perSide))
	test.That(t, uint64(len(seen)), test.ShouldEqual, 2*stats.Pairs)
}
