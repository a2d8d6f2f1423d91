package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"linewatch/internal/models"
)

type AlertSQLite struct {
	db *sql.DB
}

func NewAlertSQLite(db *sql.DB) *AlertSQLite { return &AlertSQLite{db: db} }

const sqliteTimestampLayout = "2006-01-02 15:04:05"

// Append inserts a new alert. If EventID or OccurredAt are empty, they're set.
func (r *AlertSQLite) Append(ctx context.Context, a models.AlertEvent) error {
	if a.EventID == "" {
		a.EventID = uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	} else {
		a.OccurredAt = a.OccurredAt.UTC()
	}

	// marshal metadata if present
	var metaPtr *string
	if a.Metadata != nil {
		if b, err := json.Marshal(a.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, occurred_at, component_id, zone, cci, message, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		a.EventID,
		a.OccurredAt.Format(sqliteTimestampLayout),
		a.ComponentID,
		string(a.Zone),
		a.CCI,
		a.Description,
		metaPtr,
	)

	return err
}

// List returns alerts filtered by [from, to] (inclusive) and/or component,
// ordered ASC by time.
func (r *AlertSQLite) List(ctx context.Context, from, to time.Time, componentID string) ([]models.AlertEvent, error) {
	var (
		conds []string
		args  []any
	)

	// occurred_at is stored as TEXT in sqliteTimestampLayout; the bounds must
	// use the identical layout or the lexicographic comparison is off.
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimestampLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimestampLayout))
	}
	if componentID = strings.TrimSpace(componentID); componentID != "" {
		conds = append(conds, "component_id = ?")
		args = append(args, componentID)
	}

	q := `SELECT id, occurred_at, component_id, zone, cci, message, meta FROM alerts`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AlertEvent, 0, 64)
	for rows.Next() {
		var (
			a       models.AlertEvent
			zone    string
			metaStr sql.NullString
		)
		if err := rows.Scan(&a.EventID, &a.OccurredAt, &a.ComponentID, &zone, &a.CCI, &a.Description, &metaStr); err != nil {
			return nil, err
		}
		a.Zone = models.Zone(zone)
		a.OccurredAt = a.OccurredAt.UTC()

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				a.Metadata = v
			} else {
				a.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
