// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates default admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Events() EventRepository
	Snapshots() SnapshotRepository
	Alerts() AlertRepository
	Users() UserRepository
}

// EventRepository defines operations for event management.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetByQRToken(ctx context.Context, token string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Event, error)
	// SetLastValidated records a trusted admin confirmation time.
	SetLastValidated(ctx context.Context, id string, at time.Time) error
}

// SnapshotRepository is the durable append-only log of headcount
// observations. Observations may arrive out of timestamp order; all
// reads order by timestamp, not insertion.
type SnapshotRepository interface {
	// Append durably records a new observation.
	Append(ctx context.Context, snap *models.Snapshot) error
	// Latest returns the snapshot with the greatest timestamp for the
	// event, or nil if the event has none.
	Latest(ctx context.Context, eventID string) (*models.Snapshot, error)
	// LatestBefore returns the most recent snapshot with a timestamp
	// strictly earlier than the given time, or nil. This is the
	// comparison point for spike detection under out-of-order arrival.
	LatestBefore(ctx context.Context, eventID string, before time.Time) (*models.Snapshot, error)
	// Recent returns snapshots at or after since, ordered by timestamp
	// ascending. limit <= 0 means no limit.
	Recent(ctx context.Context, eventID string, since time.Time, limit int) ([]*models.Snapshot, error)
	Count(ctx context.Context, eventID string) (int64, error)
}

// AlertRepository defines operations for alert records.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error)
	Acknowledge(ctx context.Context, id, user string) error
	Resolve(ctx context.Context, id string) error
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	EventID  string
	Resolved *bool
	Limit    int
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}
