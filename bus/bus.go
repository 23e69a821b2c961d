// Package bus is the in-process pub/sub broker the engines publish their raw
// event lines on. Channels are named strings; session-scoped channels derive
// their name from a base channel and a session id. Subscribers receive
// payloads synchronously in publish order, which keeps event processing
// cooperative: the orchestrator's callbacks only ever enqueue into a
// per-session queue consumed by a single goroutine.
package bus

import (
	"sync"
)

// Handler receives the raw payload published on a channel.
type Handler func(payload []byte)

// Bus routes published payloads to channel subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]*Subscription
	nextID uint64
}

// Subscription is a handle to one active channel subscription.
type Subscription struct {
	bus     *Bus
	channel string
	handler Handler
	id      uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]*Subscription)}
}

// Subscribe registers a handler for a channel and returns its handle.
func (b *Bus) Subscribe(channel string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus:     b,
		channel: channel,
		handler: handler,
		id:      b.nextID,
	}
	b.subs[channel] = append(b.subs[channel], sub)
	return sub
}

// Channel returns the channel name this subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

// Cancel removes the subscription. Safe to call more than once, and safe to
// call from inside a handler.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[s.channel]
	for i, sub := range list {
		if sub.id == s.id {
			// Copy-on-write so an in-flight Publish keeps its snapshot.
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, s.channel)
			} else {
				b.subs[s.channel] = next
			}
			return
		}
	}
}

// Publish delivers payload to every current subscriber of channel, in
// subscription order. Handlers run on the publisher's goroutine.
func (b *Bus) Publish(channel string, payload []byte) {
	b.mu.Lock()
	list := b.subs[channel]
	b.mu.Unlock()

	for _, sub := range list {
		sub.handler(payload)
	}
}

// SubscriberCount reports the number of active subscriptions on a channel.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}
