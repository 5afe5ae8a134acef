package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// PredictorChecker reports whether the estimation model is loaded.
// Status reports degrade without it, so readiness surfaces the gap.
type PredictorChecker struct {
	loaded func() bool
}

// NewPredictorChecker creates a predictor health checker.
func NewPredictorChecker(loaded func() bool) *PredictorChecker {
	return &PredictorChecker{loaded: loaded}
}

// Name returns the checker name.
func (c *PredictorChecker) Name() string {
	return "predictor"
}

// Check verifies the prediction model is loaded.
func (c *PredictorChecker) Check(ctx context.Context) error {
	if c.loaded == nil || !c.loaded() {
		return fmt.Errorf("prediction model not loaded")
	}
	return nil
}
