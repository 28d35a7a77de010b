package transport

import (
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// Publisher is the outbound side of a channel.
type Publisher[T any] interface {
	NumSubscribers() int
	Publish(msg T)
}

// Throttle forwards at most hz messages per second to the next publisher and drops the rest.
type Throttle[T any] struct {
	next    Publisher[T]
	limiter *rate.Limiter

	dropped atomic.Uint64
}

// NewThrottle wraps next. A burst of one message is allowed.
func NewThrottle[T any](next Publisher[T], hz float64) *Throttle[T] {
	return &Throttle[T]{next: next, limiter: rate.NewLimiter(rate.Limit(hz), 1)}
}

// NumSubscribers returns the subscribers of the wrapped publisher.
func (t *Throttle[T]) NumSubscribers() int {
	return t.next.NumSubscribers()
}

// Publish forwards msg unless the rate has been exceeded.
func (t *Throttle[T]) Publish(msg T) {
	if !t.limiter.Allow() {
		t.dropped.Inc()
		return
	}
	t.next.Publish(msg)
}

// Dropped returns how many messages were throttled away.
func (t *Throttle[T]) Dropped() uint64 {
	return t.dropped.Load()
}
