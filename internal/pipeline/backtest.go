package pipeline

import (
	"fmt"
	"time"

	"linewatch/internal/models"
)

// BacktestResult answers how much warning the pipeline would have given
// ahead of a known event. FirstRedTimestamp is nil (and LeadTimeHours 0)
// when no red alert preceded the event.
type BacktestResult struct {
	LeadTimeHours     float64    `json:"lead_time_hours"`
	FirstRedTimestamp *time.Time `json:"first_red_timestamp"`
}

// Backtest scores the given history and reports the earliest red-zone
// timestamp for componentID strictly before eventAt, together with the lead
// time that alert provided. A component that never went red before the event
// yields zero lead time, not an error.
func Backtest(p *Pipeline, rows []models.SensorReading, eventAt time.Time, componentID string) (BacktestResult, error) {
	if componentID == "" {
		return BacktestResult{}, fmt.Errorf("backtest: component id is required")
	}
	scored, err := p.Score(rows)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("backtest: %w", err)
	}

	for _, s := range scored { // scored rows are sorted per component by time
		if s.ComponentID != componentID || s.Zone != models.ZoneRed {
			continue
		}
		if !s.Timestamp.Before(eventAt) {
			break
		}
		first := s.Timestamp
		return BacktestResult{
			LeadTimeHours:     eventAt.Sub(first).Hours(),
			FirstRedTimestamp: &first,
		}, nil
	}
	return BacktestResult{}, nil
}
