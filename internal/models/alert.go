package models

import (
	"time"
)

// AlertType classifies the detected anomalous condition.
type AlertType string

const (
	// AlertCapacity fires when a headcount reaches the event's capacity.
	AlertCapacity AlertType = "capacity"
	// AlertSpike fires on a sudden relative increase in headcount.
	AlertSpike AlertType = "spike"
	// AlertStale fires when the crowd is above safe levels without a
	// recent admin validation.
	AlertStale AlertType = "stale"
)

// Alert is a persisted record of a detected anomalous condition.
// Created by the ingestion pipeline; mutated afterwards only by explicit
// acknowledge/resolve actions.
type Alert struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	Type           AlertType `json:"alert_type"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	Resolved       bool      `json:"resolved"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
}
