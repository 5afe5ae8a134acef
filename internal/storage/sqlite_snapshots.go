package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

type sqliteSnapshotRepo struct {
	db *sql.DB
}

func (r *sqliteSnapshotRepo) Append(ctx context.Context, snap *models.Snapshot) error {
	query := `
		INSERT INTO snapshots (id, event_id, headcount, source, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		snap.ID, snap.EventID, snap.Headcount, snap.Source, snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *sqliteSnapshotRepo) Latest(ctx context.Context, eventID string) (*models.Snapshot, error) {
	query := `
		SELECT id, event_id, headcount, source, timestamp
		FROM snapshots WHERE event_id = ?
		ORDER BY timestamp DESC LIMIT 1
	`
	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, eventID))
}

func (r *sqliteSnapshotRepo) LatestBefore(ctx context.Context, eventID string, before time.Time) (*models.Snapshot, error) {
	query := `
		SELECT id, event_id, headcount, source, timestamp
		FROM snapshots WHERE event_id = ? AND timestamp < ?
		ORDER BY timestamp DESC LIMIT 1
	`
	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, eventID, before))
}

func (r *sqliteSnapshotRepo) Recent(ctx context.Context, eventID string, since time.Time, limit int) ([]*models.Snapshot, error) {
	query := `
		SELECT id, event_id, headcount, source, timestamp
		FROM snapshots WHERE event_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`
	args := []any{eventID, since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		snap := &models.Snapshot{}
		err := rows.Scan(&snap.ID, &snap.EventID, &snap.Headcount, &snap.Source, &snap.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (r *sqliteSnapshotRepo) Count(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM snapshots WHERE event_id = ?", eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return count, nil
}

func (r *sqliteSnapshotRepo) scanSnapshot(row *sql.Row) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := row.Scan(&snap.ID, &snap.EventID, &snap.Headcount, &snap.Source, &snap.Timestamp)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return snap, nil
}
