package transport

import (
	"sync"
	"testing"

	"go.viam.com/test"
	"golang.org/x/time/rate"

	"go.viam.com/stereorepeater/logging"
)

func TestTopic(t *testing.T) {
	topic := NewTopic[int]("left/image_raw", logging.NewTestLogger(t))
	test.That(t, topic.Name(), test.ShouldEqual, "left/image_raw")
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 0)

	// no subscribers, nothing queued anywhere
	topic.Publish(1)

	sub1 := topic.Subscribe(2)
	sub2 := topic.Subscribe(2)
	test.That(t, sub1.ID(), test.ShouldNotEqual, sub2.ID())
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 2)

	topic.Publish(2)
	test.That(t, <-sub1.C(), test.ShouldEqual, 2)
	test.That(t, <-sub2.C(), test.ShouldEqual, 2)

	sub2.Close()
	sub2.Close()
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 1)
	_, ok := <-sub2.C()
	test.That(t, ok, test.ShouldBeFalse)

	topic.Close()
	_, ok = <-sub1.C()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 0)
	test.That(t, topic.Published(), test.ShouldEqual, uint64(2))

	late := topic.Subscribe(1)
	_, ok = <-late.C()
	test.That(t, ok, test.ShouldBeFalse)
	topic.Publish(3)
}

func TestTopicDropsOldest(t *testing.T) {
	topic := NewTopic[int]("t", logging.NewTestLogger(t))
	sub := topic.Subscribe(2)
	for i := 0; i < 5; i++ {
		topic.Publish(i)
	}
	test.That(t, sub.Dropped(), test.ShouldEqual, uint64(3))
	test.That(t, <-sub.C(), test.ShouldEqual, 3)
	test.That(t, <-sub.C(), test.ShouldEqual, 4)
}

func TestTopicConcurrentPublish(t *testing.T) {
	topic := NewTopic[int]("t", logging.NewTestLogger(t))
	sub := topic.Subscribe(0)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				topic.Publish(i)
			}
		}()
	}
	wg.Wait()
	test.That(t, len(sub.C()), test.ShouldEqual, DefaultQueueSize)
	test.That(t, sub.Dropped(), test.ShouldEqual, uint64(800-DefaultQueueSize))
	sub.Close()
}

type countingPublisher struct {
	mu        sync.Mutex
	published []int
}

func (cp *countingPublisher) NumSubscribers() int { return 1 }

func (cp *countingPublisher) Publish(msg int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.published = append(cp.published, msg)
}

func TestThrottle(t *testing.T) {
	next := &countingPublisher{}
	// one message per hour; only the initial burst gets through
	throttle := NewThrottle[int](next, 1.0/3600)
	test.That(t, throttle.NumSubscribers(), test.ShouldEqual, 1)
	for i := 0; i < 5; i++ {
		throttle.Publish(i)
	}
	test.That(t, next.published, test.ShouldResemble, []int{0})
	test.That(t, throttle.Dropped(), test.ShouldEqual, uint64(4))

	topic := NewTopic[int]("t", logging.NewTestLogger(t))
	unlimited := NewThrottle[int](topic, float64(rate.Inf))
	sub := topic.Subscribe(10)
	for i := 0; i < 5; i++ {
		unlimited.Publish(i)
	}
	test.That(t, len(sub.C()), test.ShouldEqual, 5)
	test.That(t, unlimited.Dropped(), test.ShouldEqual, uint64(0))
}
