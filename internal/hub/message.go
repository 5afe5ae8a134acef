// Package hub implements the per-event live fan-out of headcount,
// alert, and status messages to subscribed observers.
package hub

import (
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// Message types on the wire.
const (
	TypeHeadcountUpdate = "headcount_update"
	TypeAlert           = "alert"
	TypeEventUpdate     = "event_update"
)

// Message is the transport-agnostic unit delivered to subscribers of an
// event channel. Exactly one variant's fields are populated, selected by
// Type.
type Message struct {
	Type string `json:"type"`

	// headcount_update fields
	Headcount *int       `json:"headcount,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Source    string     `json:"source,omitempty"`

	// alert fields
	Alert *models.Alert `json:"alert,omitempty"`

	// event_update fields
	Status string `json:"status,omitempty"`
}

// NewHeadcountUpdate builds a headcount_update message from a snapshot.
func NewHeadcountUpdate(snap *models.Snapshot) Message {
	headcount := snap.Headcount
	ts := snap.Timestamp
	return Message{
		Type:      TypeHeadcountUpdate,
		Headcount: &headcount,
		Timestamp: &ts,
		Source:    string(snap.Source),
	}
}

// NewAlertMessage builds an alert message.
func NewAlertMessage(alert *models.Alert) Message {
	return Message{
		Type:  TypeAlert,
		Alert: alert,
	}
}

// NewEventUpdate builds an event_update message carrying the derived
// status alongside the headcount it was computed from.
func NewEventUpdate(headcount int, status models.Status) Message {
	h := headcount
	return Message{
		Type:      TypeEventUpdate,
		Headcount: &h,
		Status:    string(status),
	}
}
