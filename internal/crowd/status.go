// Package crowd implements the real-time headcount ingestion core:
// status classification, alert evaluation, and the per-event serialized
// ingestion coordinator.
package crowd

import (
	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// Classify maps a headcount onto the three-level crowd status using the
// event's thresholds. The Red check runs first, so malformed thresholds
// (crowded <= safe) still resolve deterministically in favor of Red.
// Pure; always returns a value.
func Classify(headcount, safeThreshold, crowdedThreshold int) models.Status {
	switch {
	case headcount >= crowdedThreshold:
		return models.StatusRed
	case headcount >= safeThreshold:
		return models.StatusYellow
	default:
		return models.StatusGreen
	}
}

// ClassifyEvent classifies a headcount against an event's current
// thresholds.
func ClassifyEvent(event *models.Event, headcount int) models.Status {
	return Classify(headcount, event.SafeThreshold, event.CrowdedThreshold)
}
