package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Subscription is a single subscriber's bounded event feed.
type Subscription struct {
	ch          chan *Event
	broadcaster *Broadcaster
	once        sync.Once
}

// Channel returns the receive side of the subscription.
func (s *Subscription) Channel() <-chan *Event {
	return s.ch
}

// Unsubscribe detaches the subscription from the broadcaster. The channel is
// closed once no publish is in flight.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broadcaster.remove(s)
	})
}

// Broadcaster fans events out to all active subscribers. Delivery is
// best-effort: each subscriber has a bounded buffer, and a slow subscriber
// loses its oldest buffered events rather than blocking the publisher.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	capacity int
	dropped  atomic.Uint64
	log      logrus.FieldLogger
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer
// capacity.
func NewBroadcaster(capacity int, log logrus.FieldLogger) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[*Subscription]struct{}, 8),
		capacity: capacity,
		log:      log.WithField("component", "events"),
	}
}

// Subscribe attaches a new subscriber.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		ch:          make(chan *Event, b.capacity),
		broadcaster: b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()

	close(sub.ch)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Publish delivers the event to every subscriber. On a full buffer the
// oldest buffered event is dropped to make room.
func (b *Broadcaster) Publish(event *Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- event:
			continue
		default:
		}

		// Buffer full: drop the oldest event, then retry once. The retry
		// can still lose the new event if a concurrent Publish refills the
		// buffer first; that is within the best-effort contract.
		select {
		case <-sub.ch:
			b.dropped.Add(1)
		default:
		}

		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events lost to slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// PublishAll publishes a batch in order.
func (b *Broadcaster) PublishAll(batch []*Event) {
	for _, e := range batch {
		b.Publish(e)
	}
}
