// Package notifier provides notification dispatching for crowd alerts.
package notifier

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// Notification carries a raised alert together with the event context
// needed to render a useful message.
type Notification struct {
	Event     *models.Event
	Alert     *models.Alert
	Headcount int
	Status    models.Status
}

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the notifier name (e.g., "email", "slack").
	Name() string
	// Send delivers an alert notification.
	Send(ctx context.Context, n *Notification) error
	// Close releases any resources.
	Close() error
}

// ErrRateLimited is returned when a notification is dropped due to rate limiting.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// Dispatcher fans a raised alert out to all registered channels.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	rateLimiter *RateLimiter

	// dispatchTimeout bounds a single fan-out when the dispatcher is
	// invoked asynchronously from the ingest pipeline.
	dispatchTimeout time.Duration
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig())
}

// NewDispatcherWithRateLimit creates a dispatcher with custom rate limit configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:       make(map[string]Notifier),
		rateLimiter:     NewRateLimiter(config),
		dispatchTimeout: 30 * time.Second,
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a notifier from the dispatcher.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// Get returns a notifier by name.
func (d *Dispatcher) Get(name string) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[name]
	return n, ok
}

// DispatchAll sends a notification to every registered channel.
// Returns ErrRateLimited if the notification is dropped due to rate limiting.
func (d *Dispatcher) DispatchAll(ctx context.Context, n *Notification) error {
	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for name, notifier := range d.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// AlertRaised delivers a persisted alert to all channels. It is called
// from the ingest pipeline and must never block it: delivery failures
// are logged, not returned.
func (d *Dispatcher) AlertRaised(event *models.Event, alert *models.Alert, headcount int, status models.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), d.dispatchTimeout)
	defer cancel()

	n := &Notification{
		Event:     event,
		Alert:     alert,
		Headcount: headcount,
		Status:    status,
	}
	if err := d.DispatchAll(ctx, n); err != nil && err != ErrRateLimited {
		log.Printf("notifier: dispatch %s alert for event %s: %v", alert.Type, event.ID, err)
	}
}

// Dropped returns the number of notifications dropped by rate limiting.
func (d *Dispatcher) Dropped() int64 {
	if d.rateLimiter == nil {
		return 0
	}
	return d.rateLimiter.Dropped()
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
