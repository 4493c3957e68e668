// Package bus is the realtime fan-out path between the accept pipeline and
// live viewers. Delivery is best effort: a listener that is offline, slow,
// or disconnected catches up through an incremental snapshot query, never
// through the bus.
package bus

import (
	"context"
	"sync"
)

// Event is one accepted placement as pushed to viewers. CreatedAt is epoch
// milliseconds, directly usable as the next snapshot "since" value.
type Event struct {
	// AddedID is the placement's log position. Carried between server
	// instances for replay bookkeeping, never serialized to viewers.
	AddedID   int64   `json:"-"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Color     string  `json:"color"`
	UserID    *string `json:"userId"`
	CreatedAt int64   `json:"createdAt"`
}

// Publisher pushes accepted placements onto the shared channel.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker fans events out to in-process subscribers. Each subscriber gets a
// buffered channel; when a subscriber falls behind its events are dropped
// rather than blocking the publisher.
type Broker struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	buffer  int
	dropped func() // observability hook, may be nil
}

// NewBroker creates a Broker with the given per-subscriber buffer size.
// onDrop, if non-nil, is invoked once per event dropped for a slow subscriber.
func NewBroker(buffer int, onDrop func()) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{subs: make(map[int]chan Event), buffer: buffer, dropped: onDrop}
}

// Subscribe returns a channel of future events and a cancel function.
// Events published while unsubscribed are lost by design.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Dispatch delivers an event to every current subscriber without blocking.
func (b *Broker) Dispatch(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if b.dropped != nil {
				b.dropped()
			}
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
