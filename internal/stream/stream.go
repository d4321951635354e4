// Package stream provides a small fan-out primitive used for the
// observable sequences the core exposes: pending-mutation counts, sync
// state, connectivity transitions, and optimistic-update events.
package stream

import "sync"

// defaultBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this backpressures publishers until it
// drains or cancels.
const defaultBuffer = 16

type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

// Broadcaster fans values out to any number of subscribers. Every
// subscriber registered at publish time receives every value exactly
// once, in publish order, until it cancels.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]*subscriber[T]
	nextID int
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]*subscriber[T])}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel is idempotent, closes the channel, and is
// safe to call even while a publisher is blocked on this subscriber's
// full buffer.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber[T]{
		ch:   make(chan T, defaultBuffer),
		done: make(chan struct{}),
	}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Closing done first releases any publisher parked on this
			// subscriber's buffer, so taking the lock below cannot
			// deadlock against Publish.
			close(sub.done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers v to every current subscriber. Sends happen under
// the broadcaster lock so a channel is never closed mid-send; a send
// into a full buffer parks until the subscriber drains or cancels.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- v:
		case <-sub.done:
		}
	}
}

// SubscriberCount reports how many subscribers are registered.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes all subscriber channels. Subsequent Subscribe calls
// return an already-closed channel; Publish becomes a no-op.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
