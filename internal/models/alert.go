package models

import "time"

// AlertEvent is a single red-zone alert entry in the audit log.
type AlertEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	ComponentID string    `json:"component_id"`
	Zone        Zone      `json:"zone"`
	CCI         float64   `json:"cci"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// CalibrationRun records the outcome of the most recent pipeline fit.
// Exactly one row is persisted; refitting replaces it wholesale.
type CalibrationRun struct {
	ID         int       `json:"id"`
	ArtifactID string    `json:"artifact_id"`
	FittedAt   time.Time `json:"fitted_at"`
	Yellow     float64   `json:"yellow"`
	Red        float64   `json:"red"`
	RowsUsed   int       `json:"rows_used"`
}
