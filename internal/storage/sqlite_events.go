package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

type sqliteEventRepo struct {
	db *sql.DB
}

func (r *sqliteEventRepo) Create(ctx context.Context, event *models.Event) error {
	if event.QRToken == "" {
		event.QRToken = generateQRToken()
	}

	query := `
		INSERT INTO events (id, name, date, safe_threshold, crowded_threshold,
			last_validated_at, qr_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Name, nullTime(event.Date),
		event.SafeThreshold, event.CrowdedThreshold,
		nullTime(event.LastValidatedAt), event.QRToken,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *sqliteEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `
		SELECT id, name, date, safe_threshold, crowded_threshold,
			last_validated_at, qr_token, created_at, updated_at
		FROM events WHERE id = ?
	`
	return r.scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteEventRepo) GetByQRToken(ctx context.Context, token string) (*models.Event, error) {
	query := `
		SELECT id, name, date, safe_threshold, crowded_threshold,
			last_validated_at, qr_token, created_at, updated_at
		FROM events WHERE qr_token = ?
	`
	return r.scanEvent(r.db.QueryRowContext(ctx, query, token))
}

func (r *sqliteEventRepo) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events SET name = ?, date = ?, safe_threshold = ?,
			crowded_threshold = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		event.Name, nullTime(event.Date),
		event.SafeThreshold, event.CrowdedThreshold,
		event.UpdatedAt, event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found: %s", event.ID)
	}
	return nil
}

func (r *sqliteEventRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

func (r *sqliteEventRepo) List(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT id, name, date, safe_threshold, crowded_threshold,
			last_validated_at, qr_token, created_at, updated_at
		FROM events ORDER BY date DESC, name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *sqliteEventRepo) SetLastValidated(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE events SET last_validated_at = ?, updated_at = ? WHERE id = ?",
		at, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set last validated: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *sqliteEventRepo) scanEvent(row *sql.Row) (*models.Event, error) {
	event, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func scanEventRow(s scanner) (*models.Event, error) {
	event := &models.Event{}
	var date, lastValidated sql.NullTime
	err := s.Scan(
		&event.ID, &event.Name, &date,
		&event.SafeThreshold, &event.CrowdedThreshold,
		&lastValidated, &event.QRToken,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if date.Valid {
		t := date.Time
		event.Date = &t
	}
	if lastValidated.Valid {
		t := lastValidated.Time
		event.LastValidatedAt = &t
	}
	return event, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
