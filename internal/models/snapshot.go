package models

import (
	"time"
)

// Source identifies the provenance of a headcount observation.
type Source string

const (
	SourceAdmin  Source = "admin"
	SourceQR     Source = "qr"
	SourceML     Source = "ml"
	SourceSensor Source = "sensor"
)

// ParseSource converts a string to Source. Unknown strings map to
// SourceSensor as the least-trusted provenance.
func ParseSource(s string) (Source, bool) {
	switch s {
	case "admin":
		return SourceAdmin, true
	case "qr":
		return SourceQR, true
	case "ml":
		return SourceML, true
	case "sensor":
		return SourceSensor, true
	default:
		return "", false
	}
}

// Snapshot is a single timestamped headcount observation for an event.
// Snapshots are immutable once created; observations may arrive out of
// order, so the store orders them by Timestamp, not by insertion.
type Snapshot struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Headcount int       `json:"headcount"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the derived three-level crowd classification. It is never
// persisted; always recomputed from the latest headcount and the event's
// current thresholds.
type Status string

const (
	StatusGreen  Status = "Green"
	StatusYellow Status = "Yellow"
	StatusRed    Status = "Red"
)
