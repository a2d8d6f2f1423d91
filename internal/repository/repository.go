package repository

import (
	"context"
	"database/sql"
	"time"

	"linewatch/internal/models"
)

type AlertRepo interface {
	Append(ctx context.Context, a models.AlertEvent) error
	List(ctx context.Context, from, to time.Time, componentID string) ([]models.AlertEvent, error)
}

type RunRepo interface {
	Save(ctx context.Context, run models.CalibrationRun) error
	Load(ctx context.Context) (models.CalibrationRun, error)
}

type Repository struct {
	Alerts AlertRepo
	Runs   RunRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Alerts: NewAlertSQLite(db),
		Runs:   NewRunSQLite(db),
	}
}
