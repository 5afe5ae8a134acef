package hub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/good-yellow-bee/crowdwatch/internal/metrics"
)

// Subscription is a live attachment to one event's message channel.
// Messages arrive on C() in publish order. When the subscriber's buffer
// is full, new messages are dropped for that subscriber only; Dropped()
// reports how many.
type Subscription struct {
	eventID string
	ch      chan Message
	dropped atomic.Int64
	closed  atomic.Bool
}

// C returns the receive channel. Closed on Unsubscribe.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// EventID returns the event this subscription is attached to.
func (s *Subscription) EventID() string {
	return s.eventID
}

// Dropped returns how many messages were discarded because this
// subscriber's buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Options configures the hub.
type Options struct {
	// SubscriberBuffer is the per-subscriber channel capacity.
	SubscriberBuffer int
}

// DefaultOptions returns default hub options.
func DefaultOptions() Options {
	return Options{SubscriberBuffer: 64}
}

// Hub maintains one logical channel per event and fans published
// messages out to the event's current subscribers. Live-only: observers
// that subscribe after a publish never see it. Publish never blocks on a
// slow subscriber; the slow subscriber's messages are dropped instead.
type Hub struct {
	opts Options

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// New creates an empty hub.
func New(opts Options) *Hub {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultOptions().SubscriberBuffer
	}
	return &Hub{
		opts: opts,
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe attaches a new observer to the event's channel. The
// subscription receives only messages published after this call returns.
func (h *Hub) Subscribe(eventID string) *Subscription {
	sub := &Subscription{
		eventID: eventID,
		ch:      make(chan Message, h.opts.SubscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[*Subscription]struct{})
	}
	h.subs[eventID][sub] = struct{}{}
	metrics.HubSubscribers.Inc()
	return sub
}

// Unsubscribe detaches the observer and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.closed.Swap(true) {
		return
	}

	h.mu.Lock()
	if set, ok := h.subs[sub.eventID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.eventID)
		}
	}
	h.mu.Unlock()

	metrics.HubSubscribers.Dec()
	// Close after removal from the map: Publish holds the read lock
	// while sending, so no send can race the close.
	close(sub.ch)
}

// Publish delivers msg to every current subscriber of the event, in the
// order Publish was called. A full subscriber buffer drops the message
// for that subscriber only; other subscribers and other events are
// unaffected.
func (h *Hub) Publish(eventID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics.HubMessagesPublished.WithLabelValues(msg.Type).Inc()

	for sub := range h.subs[eventID] {
		select {
		case sub.ch <- msg:
		default:
			dropped := sub.dropped.Add(1)
			metrics.HubMessagesDropped.Inc()
			if dropped == 1 || dropped%100 == 0 {
				log.Printf("hub: slow subscriber on event %s, dropped %d messages total", eventID, dropped)
			}
		}
	}
}

// SubscriberCount returns the number of current subscribers for an
// event.
func (h *Hub) SubscriberCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}
