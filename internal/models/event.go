// Package models contains the core data structures for CrowdWatch.
package models

import (
	"fmt"
	"time"
)

// Event represents a monitored venue or occasion with crowd thresholds.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Date is the optional calendar date of the occasion.
	Date *time.Time `json:"date,omitempty"`

	// SafeThreshold is the green/yellow boundary: headcounts below it
	// classify as Green.
	SafeThreshold int `json:"safe_threshold"`

	// CrowdedThreshold is the yellow/red boundary: headcounts at or above
	// it classify as Red. Must be >= SafeThreshold.
	CrowdedThreshold int `json:"crowded_threshold"`

	// LastValidatedAt is the time of the last trusted admin confirmation
	// of the headcount. Nil until an admin validates.
	LastValidatedAt *time.Time `json:"last_validated_at,omitempty"`

	// QRToken is the opaque token embedded in the event's scan QR code.
	QRToken string `json:"qr_token,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent creates an Event with initialized timestamps.
func NewEvent(name string, safeThreshold, crowdedThreshold int) *Event {
	now := time.Now()
	return &Event{
		Name:             name,
		SafeThreshold:    safeThreshold,
		CrowdedThreshold: crowdedThreshold,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks the threshold invariant.
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if e.SafeThreshold < 0 {
		return fmt.Errorf("safe_threshold must be non-negative")
	}
	if e.CrowdedThreshold < e.SafeThreshold {
		return fmt.Errorf("crowded_threshold (%d) must be >= safe_threshold (%d)",
			e.CrowdedThreshold, e.SafeThreshold)
	}
	return nil
}

// Capacity returns the headcount that counts as a capacity breach:
// the crowded threshold, falling back to the safe threshold when unset.
func (e *Event) Capacity() int {
	if e.CrowdedThreshold > 0 {
		return e.CrowdedThreshold
	}
	return e.SafeThreshold
}
