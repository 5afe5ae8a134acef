package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, event_id, alert_type, message, created_at, resolved, acknowledged_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.EventID, alert.Type, alert.Message,
		alert.CreatedAt, boolToInt(alert.Resolved), nullString(alert.AcknowledgedBy),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `
		SELECT id, event_id, alert_type, message, created_at, resolved, acknowledged_by
		FROM alerts WHERE id = ?
	`
	alert, err := scanAlertRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (r *sqliteAlertRepo) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	query := `
		SELECT id, event_id, alert_type, message, created_at, resolved, acknowledged_by
		FROM alerts WHERE 1=1
	`
	var args []any
	if filter.EventID != "" {
		query += " AND event_id = ?"
		args = append(args, filter.EventID)
	}
	if filter.Resolved != nil {
		query += " AND resolved = ?"
		args = append(args, boolToInt(*filter.Resolved))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqliteAlertRepo) Acknowledge(ctx context.Context, id, user string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET acknowledged_by = ? WHERE id = ?", user, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) Resolve(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET resolved = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func scanAlertRow(s scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var resolved int
	var ackedBy sql.NullString
	err := s.Scan(
		&alert.ID, &alert.EventID, &alert.Type, &alert.Message,
		&alert.CreatedAt, &resolved, &ackedBy,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	alert.Resolved = resolved != 0
	alert.AcknowledgedBy = ackedBy.String
	return alert, nil
}
