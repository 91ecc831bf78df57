package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber buffer used by New.
const DefaultBufferSize = 64

// Bus fans published events out to all current subscribers.
// A Bus is safe for concurrent use. The zero value is not usable; create
// instances with New or NewWithBuffer.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription[T]
	nextID  uint64
	bufSize int
	closed  bool
}

// Subscription is one subscriber's view of a Bus. Receive events from
// Events; call Cancel when done. The events channel is closed on Cancel
// and on Bus.Close.
type Subscription[T any] struct {
	id      uint64
	bus     *Bus[T]
	ch      chan T
	dropped atomic.Uint64
}

// New creates a Bus with the default per-subscriber buffer size.
func New[T any]() *Bus[T] {
	return NewWithBuffer[T](DefaultBufferSize)
}

// NewWithBuffer creates a Bus whose subscribers buffer up to size events.
func NewWithBuffer[T any](size int) *Bus[T] {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus[T]{
		subs:    make(map[uint64]*Subscription[T]),
		bufSize: size,
	}
}

// Subscribe registers a new subscriber and returns its subscription.
// Subscribing to a closed bus returns a subscription whose channel is
// already closed.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[T]{
		bus: b,
		ch:  make(chan T, b.bufSize),
	}

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers the event to every subscriber. It never blocks: a
// subscriber whose buffer is full loses its oldest undelivered event.
// Publish reports whether the bus was open.
func (b *Bus[T]) Publish(event T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false
	}

	for _, sub := range b.subs {
		sub.push(event)
	}
	return true
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels all subscriptions and rejects further publishes.
// It is safe to call Close multiple times.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Events returns the channel events are delivered on.
func (s *Subscription[T]) Events() <-chan T {
	return s.ch
}

// Dropped returns how many events this subscriber lost to buffer
// overflow.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Cancel removes the subscription from its bus and closes the events
// channel. It is safe to call Cancel multiple times and safe to call
// concurrently with Publish.
func (s *Subscription[T]) Cancel() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

// push delivers one event with a drop-oldest overflow policy. Callers
// hold the bus read lock, which excludes channel close.
func (s *Subscription[T]) push(event T) {
	select {
	case s.ch <- event:
		return
	default:
	}

	// Buffer full: evict the oldest event and retry once. The consumer
	// may drain concurrently, so both selects stay non-blocking.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}
