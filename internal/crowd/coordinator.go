package crowd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/crowdwatch/internal/hub"
	"github.com/good-yellow-bee/crowdwatch/internal/metrics"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

// IngestResult is returned to the caller once the snapshot is durable.
type IngestResult struct {
	Snapshot *models.Snapshot `json:"snapshot"`
	Status   models.Status    `json:"status"`
	// Alert is the persisted alert raised by this observation, if any.
	Alert *models.Alert `json:"alert,omitempty"`
	// Degraded is set when the snapshot committed but the alert record
	// could not be persisted. Surfaced to operators via metrics/logs,
	// never as an error to the ingesting caller.
	Degraded bool `json:"-"`
}

// AlertNotifier receives alerts after the ingest pipeline raised them.
// Implementations must not block; delivery runs outside the ingest path.
type AlertNotifier interface {
	AlertRaised(event *models.Event, alert *models.Alert, headcount int, status models.Status)
}

// Coordinator orchestrates observation ingestion: validate, resolve the
// event, look up the preceding snapshot, append, classify, evaluate
// alerts, and broadcast - serialized per event, parallel across events.
type Coordinator struct {
	store    storage.Storage
	hub      *hub.Hub
	policy   *PolicyHolder
	locks    *eventLocks
	notifier AlertNotifier

	// now is swappable for tests.
	now func() time.Time
}

// NewCoordinator creates an ingestion coordinator.
func NewCoordinator(store storage.Storage, h *hub.Hub, policy *PolicyHolder) *Coordinator {
	return &Coordinator{
		store:  store,
		hub:    h,
		policy: policy,
		locks:  newEventLocks(),
		now:    time.Now,
	}
}

// Policy returns the coordinator's policy holder.
func (c *Coordinator) Policy() *PolicyHolder {
	return c.policy
}

// SetNotifier installs an external notification sink for raised alerts.
// Must be called before the first Ingest.
func (c *Coordinator) SetNotifier(n AlertNotifier) {
	c.notifier = n
}

// Ingest processes one headcount observation. The durable append is the
// commit point: the call succeeds exactly when the snapshot is recorded.
// Alert persistence and broadcast run best-effort afterwards and never
// fail the caller. A nil timestamp means "now".
func (c *Coordinator) Ingest(ctx context.Context, eventID string, headcount int, source models.Source, timestamp *time.Time) (*IngestResult, error) {
	if headcount < 0 {
		metrics.IngestRejected.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("%w: headcount must be non-negative, got %d", ErrInvalidInput, headcount)
	}
	return c.ingest(ctx, eventID, source, timestamp, func(*models.Snapshot) int {
		return headcount
	})
}

// IngestDelta records an observation of the latest headcount plus
// delta. The latest lookup happens inside the per-event critical
// section, so concurrent deltas stack instead of clobbering each
// other.
func (c *Coordinator) IngestDelta(ctx context.Context, eventID string, delta int, source models.Source) (*IngestResult, error) {
	if delta < 0 {
		metrics.IngestRejected.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("%w: delta must be non-negative, got %d", ErrInvalidInput, delta)
	}
	return c.ingest(ctx, eventID, source, nil, func(prev *models.Snapshot) int {
		if prev == nil {
			return delta
		}
		return prev.Headcount + delta
	})
}

// ingest runs the shared pipeline. count resolves the observed
// headcount from the preceding snapshot, called under the event lock.
func (c *Coordinator) ingest(ctx context.Context, eventID string, source models.Source, timestamp *time.Time, count func(prev *models.Snapshot) int) (*IngestResult, error) {
	start := c.now()

	if _, ok := models.ParseSource(string(source)); !ok {
		metrics.IngestRejected.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, source)
	}

	event, err := c.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("resolve event: %w", err)
	}
	if event == nil {
		metrics.IngestRejected.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}

	policy := c.policy.Load()

	// The previous-snapshot read, alert decision, and the two writes
	// form a check-then-act sequence: serialize it per event so two
	// concurrent ingests never evaluate against the same stale
	// "previous". Publishing happens inside the same section so
	// subscribers observe messages in commit order.
	lock := c.locks.lockFor(eventID)
	lock.Lock()
	defer lock.Unlock()

	// Stamp inside the critical section: of two concurrent calls for
	// one event, the second to enter gets the later timestamp and so
	// observes the first as its predecessor.
	ts := c.now()
	if timestamp != nil {
		ts = *timestamp
	}

	prev, err := c.store.Snapshots().LatestBefore(ctx, eventID, ts)
	if err != nil {
		return nil, fmt.Errorf("previous snapshot: %w", err)
	}

	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Headcount: count(prev),
		Source:    source,
		Timestamp: ts,
	}

	if err := c.appendWithRetry(ctx, snap, policy); err != nil {
		return nil, err
	}

	status := ClassifyEvent(event, snap.Headcount)

	result := &IngestResult{Snapshot: snap, Status: status}

	alert := Evaluate(snap, event, prev, policy)
	if alert != nil {
		alert.ID = uuid.New().String()
		metrics.AlertsEmitted.WithLabelValues(string(alert.Type)).Inc()
		if err := c.store.Alerts().Create(ctx, alert); err != nil {
			// The snapshot is already durable; losing the alert record
			// degrades but does not fail the ingest.
			metrics.IngestDegraded.Inc()
			log.Printf("alert record lost for event %s (%s): %v", eventID, alert.Type, err)
			result.Degraded = true
		} else {
			result.Alert = alert
		}
	}

	// Broadcast while still holding the event lock so subscribers see
	// messages in commit order. The alert goes out even when its record
	// was lost: connected observers still want the warning.
	c.publish(eventID, snap, alert, status)

	// External channels get the alert off the ingest path.
	if alert != nil && c.notifier != nil {
		go c.notifier.AlertRaised(event, alert, snap.Headcount, status)
	}

	metrics.IngestTotal.WithLabelValues(string(source)).Inc()
	metrics.IngestDuration.Observe(c.now().Sub(start).Seconds())

	return result, nil
}

// publish pushes the derived messages to the event channel in the fixed
// order headcount_update, alert (if any), event_update. Fire-and-forget:
// hub delivery never blocks and failures never reach the caller.
func (c *Coordinator) publish(eventID string, snap *models.Snapshot, alert *models.Alert, status models.Status) {
	c.hub.Publish(eventID, hub.NewHeadcountUpdate(snap))
	if alert != nil {
		c.hub.Publish(eventID, hub.NewAlertMessage(alert))
	}
	c.hub.Publish(eventID, hub.NewEventUpdate(snap.Headcount, status))
}

// appendWithRetry performs the durable append with a per-attempt timeout
// and bounded backoff retries. All-or-nothing: on final failure nothing
// was recorded and nothing is broadcast.
func (c *Coordinator) appendWithRetry(ctx context.Context, snap *models.Snapshot, policy Policy) error {
	var lastErr error

	for attempt := 0; attempt <= policy.AppendRetries; attempt++ {
		if attempt > 0 {
			metrics.IngestAppendRetries.Inc()
			select {
			case <-ctx.Done():
				return fmt.Errorf("append aborted: %w", storageErrKind(ctx.Err()))
			case <-time.After(policy.AppendBackoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.AppendTimeout)
		err := c.store.Snapshots().Append(attemptCtx, snap)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("%w: append failed after %d attempts: %v",
		storageErrKind(lastErr), policy.AppendRetries+1, lastErr)
}

// storageErrKind maps a storage failure onto the taxonomy: deadline
// errors surface as ErrStorageTimeout, everything else as
// ErrStorageUnavailable. A canceled caller context is not a storage
// fault and passes through as context.Canceled.
func storageErrKind(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStorageTimeout
	default:
		return ErrStorageUnavailable
	}
}
