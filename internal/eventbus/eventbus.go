// Package eventbus fans out Events to subscribers and runs a timer manager
// for scheduled wake-ups. Grounded on
// original_source/aegisquant-core/src/event_bus.rs, which uses
// crossbeam-channel subscriptions; this port uses buffered Go channels, so
// every subscription is bounded (Go has no native unbounded channel, and
// this package offers no unbounded variant).
package eventbus

import (
	"sync"
	"sync/atomic"

	"aegisgo/pkg/types"
)

const defaultCapacity = 1000

var nextSubscriptionID atomic.Uint64

type subscriberEntry struct {
	id     uint64
	filter types.EventFilter
	ch     chan types.Event
}

// Subscription is a handle a caller reads events from.
type Subscription struct {
	ID uint64
	C  <-chan types.Event
}

// Stats reports lifetime counters for the bus.
type Stats struct {
	SubscriberCount  int
	EventsPublished  int64
	EventsDelivered  int64
	EventsDropped    int64
}

// Bus fans out published events to every matching subscriber without
// blocking the publisher: a full bounded channel drops the event for that
// subscriber rather than stalling the whole bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscriberEntry

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe opens a bounded subscription with the default capacity.
func (b *Bus) Subscribe(filter types.EventFilter) Subscription {
	return b.SubscribeWithCapacity(filter, defaultCapacity)
}

func (b *Bus) SubscribeWithCapacity(filter types.EventFilter, capacity int) Subscription {
	id := nextSubscriptionID.Add(1)
	ch := make(chan types.Event, capacity)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriberEntry{id: id, filter: filter, ch: ch})
	b.mu.Unlock()

	return Subscription{ID: id, C: ch}
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			close(s.ch)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every matching subscriber without blocking. A
// subscriber whose channel is full has the event dropped for it; the
// publish call itself never waits.
func (b *Bus) Publish(evt types.Event) {
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subscribers {
		if !s.filter.Matches(evt) {
			continue
		}
		select {
		case s.ch <- evt:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishBlocking delivers evt to every matching subscriber, blocking on any
// subscriber whose channel is currently full. The engine's tick loop does
// not call it; it uses Publish so it is never blocked by a slow subscriber.
func (b *Bus) PublishBlocking(evt types.Event) {
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subscribers {
		if !s.filter.Matches(evt) {
			continue
		}
		s.ch <- evt
		b.delivered.Add(1)
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) Stats() Stats {
	return Stats{
		SubscriberCount: b.SubscriberCount(),
		EventsPublished: b.published.Load(),
		EventsDelivered: b.delivered.Load(),
		EventsDropped:   b.dropped.Load(),
	}
}

// ————————————————————————————————————————————————————————————————————————
// Timer manager
// ————————————————————————————————————————————————————————————————————————

// TimerManager tracks scheduled wake-ups and publishes EventTimer on the bus
// when the engine's tick clock reaches or passes a timer's fire time.
type TimerManager struct {
	mu      sync.Mutex
	timers  map[uint64]types.TimerEntry
	nextID  uint64
	bus     *Bus
}

func NewTimerManager(bus *Bus) *TimerManager {
	return &TimerManager{
		timers: make(map[uint64]types.TimerEntry),
		bus:    bus,
	}
}

// Schedule registers a timer. interval == 0 means one-shot.
func (tm *TimerManager) Schedule(fireAt, interval int64) uint64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.nextID++
	id := tm.nextID
	tm.timers[id] = types.TimerEntry{ID: id, FireAt: fireAt, Interval: interval}
	return id
}

func (tm *TimerManager) Cancel(id uint64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.timers, id)
}

// Advance checks all timers against the current tick timestamp, firing
// (publishing EventTimer) every timer whose FireAt has been reached.
// One-shot timers are removed; recurring timers are rescheduled by adding
// their interval.
func (tm *TimerManager) Advance(now int64) {
	tm.mu.Lock()
	var fired []types.TimerEntry
	for id, t := range tm.timers {
		if now >= t.FireAt {
			fired = append(fired, t)
			if t.Interval > 0 {
				t.FireAt = now + t.Interval
				tm.timers[id] = t
			} else {
				delete(tm.timers, id)
			}
		}
	}
	tm.mu.Unlock()

	for _, t := range fired {
		tm.bus.Publish(types.Event{
			Type:      types.EventTimer,
			Timestamp: now,
			TimerID:   t.ID,
		})
	}
}
