// Package transport provides the channels the repeater reads from and publishes to: in-process
// topics and topics streamed to websocket clients.
package transport

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"go.viam.com/stereorepeater/logging"
)

// DefaultQueueSize is the per-subscriber queue length used when none is given.
const DefaultQueueSize = 4

// Topic is a named in-process publish/subscribe channel. Publish never blocks; a subscriber that
// falls behind loses its oldest queued messages.
type Topic[T any] struct {
	name   string
	logger logging.Logger

	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription[T]
	closed bool

	published atomic.Uint64
}

// NewTopic returns a topic with no subscribers.
func NewTopic[T any](name string, logger logging.Logger) *Topic[T] {
	return &Topic[T]{
		name:   name,
		logger: logger,
		subs:   map[uuid.UUID]*Subscription[T]{},
	}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// NumSubscribers returns the current number of subscriptions.
func (t *Topic[T]) NumSubscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Publish delivers msg to every subscriber.
func (t *Topic[T]) Publish(msg T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	for _, sub := range t.subs {
		sub.deliver(msg)
	}
	t.published.Inc()
}

// Published returns how many messages were published to the topic.
func (t *Topic[T]) Published() uint64 {
	return t.published.Load()
}

// Subscribe registers a new subscription with a queue of queueSize messages.
func (t *Topic[T]) Subscribe(queueSize int) *Subscription[T] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	sub := &Subscription[T]{
		id:    uuid.New(),
		ch:    make(chan T, queueSize),
		topic: t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(sub.ch)
		return sub
	}
	t.subs[sub.id] = sub
	t.logger.Debugw("subscribed", "topic", t.name, "id", sub.id.String())
	return sub
}

func (t *Topic[T]) unsubscribe(sub *Subscription[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[sub.id]; !ok {
		return
	}
	delete(t.subs, sub.id)
	close(sub.ch)
	t.logger.Debugw("unsubscribed", "topic", t.name, "id", sub.id.String())
}

// Close ends every subscription. Later publishes are ignored and later subscriptions are
// returned already closed.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, sub := range t.subs {
		close(sub.ch)
		delete(t.subs, id)
	}
}

// Subscription is one consumer of a Topic.
type Subscription[T any] struct {
	id    uuid.UUID
	ch    chan T
	topic *Topic[T]

	dropped atomic.Uint64
}

// ID returns the unique id of the subscription.
func (s *Subscription[T]) ID() uuid.UUID {
	return s.id
}

// C returns the channel messages are delivered on. It is closed when the subscription or its
// topic is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many messages were discarded because the queue was full.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes the subscription from its topic.
func (s *Subscription[T]) Close() {
	s.topic.unsubscribe(s)
}

// deliver must be called with the topic read lock held so the channel cannot be closed under it.
func (s *Subscription[T]) deliver(msg T) {
	for {
		select {
		case s.ch <- msg:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Inc()
		default:
		}
	}
}
