package crowd

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// Evaluate inspects a newly appended snapshot against the event's
// thresholds and the snapshot immediately preceding it by timestamp, and
// decides whether to raise an alert. At most one alert per invocation;
// the first matching rule wins:
//
//  1. capacity - headcount at or above the event capacity
//  2. spike    - relative growth over prev exceeds the policy ratio
//  3. stale    - crowd above safe levels without recent admin validation
//
// prev must be the most recent snapshot with a timestamp strictly earlier
// than snap's (not the overall latest), so out-of-order arrivals compare
// against the right neighbor.
//
// Pure decision function: the returned alert carries no ID and is not
// persisted; persistence and broadcast are the caller's responsibility.
func Evaluate(snap *models.Snapshot, event *models.Event, prev *models.Snapshot, policy Policy) *models.Alert {
	if cap := event.Capacity(); cap > 0 && snap.Headcount >= cap {
		return newAlert(event.ID, models.AlertCapacity, snap.Timestamp,
			fmt.Sprintf("Capacity breached: %d attendees at or above limit %d", snap.Headcount, cap))
	}

	if prev != nil {
		denom := prev.Headcount
		if denom < 1 {
			denom = 1
		}
		growth := float64(snap.Headcount-prev.Headcount) / float64(denom)
		if growth > policy.SpikeRatio {
			return newAlert(event.ID, models.AlertSpike, snap.Timestamp,
				fmt.Sprintf("Sudden spike: headcount rose %.0f%% (%d -> %d)",
					growth*100, prev.Headcount, snap.Headcount))
		}
	}

	if event.LastValidatedAt != nil &&
		snap.Timestamp.Sub(*event.LastValidatedAt) > policy.StalenessWindow &&
		snap.Headcount > event.SafeThreshold {
		return newAlert(event.ID, models.AlertStale, snap.Timestamp,
			fmt.Sprintf("Crowd at %d is above safe level %d with no admin validation since %s",
				snap.Headcount, event.SafeThreshold,
				event.LastValidatedAt.Format(time.RFC3339)))
	}

	return nil
}

func newAlert(eventID string, typ models.AlertType, at time.Time, msg string) *models.Alert {
	return &models.Alert{
		EventID:   eventID,
		Type:      typ,
		Message:   msg,
		CreatedAt: at,
	}
}
