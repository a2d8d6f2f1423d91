package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"linewatch/internal/models"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite { return &RunSQLite{db: db} }

// constants and helpers for clarity and reuse
const (
	calibrationRunRowID = 1

	upsertRunSQL = `
		INSERT INTO calibration_runs (id, artifact_id, fitted_at, yellow, red, rows_used)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			artifact_id=excluded.artifact_id,
			fitted_at=excluded.fitted_at,
			yellow=excluded.yellow,
			red=excluded.red,
			rows_used=excluded.rows_used
	`

	selectRunSQL = `
		SELECT id, artifact_id, fitted_at, yellow, red, rows_used
		FROM calibration_runs WHERE id=?
	`
)

// Save updates or inserts the calibration_runs row (id always 1).
func (r *RunSQLite) Save(ctx context.Context, run models.CalibrationRun) error {
	// ensure FittedAt is always persisted as UTC; set if zero
	tsUTC := run.FittedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertRunSQL,
		calibrationRunRowID,
		run.ArtifactID,
		tsUTC,
		run.Yellow,
		run.Red,
		run.RowsUsed,
	)
	return err
}

// Load fetches the single calibration_runs row (id=1). An empty run with
// ID 0 comes back when no fit has been recorded yet.
func (r *RunSQLite) Load(ctx context.Context) (models.CalibrationRun, error) {
	row := r.db.QueryRowContext(ctx, selectRunSQL, calibrationRunRowID)

	var run models.CalibrationRun
	if err := row.Scan(
		&run.ID,
		&run.ArtifactID,
		&run.FittedAt,
		&run.Yellow,
		&run.Red,
		&run.RowsUsed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CalibrationRun{}, nil
		}
		return models.CalibrationRun{}, err
	}
	run.FittedAt = run.FittedAt.UTC()
	return run, nil
}
