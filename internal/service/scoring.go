package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"linewatch/internal/logger"
	"linewatch/internal/models"
	"linewatch/internal/repository"
)

type ScoringService struct {
	holder *pipelineHolder
	alerts repository.AlertRepo
	log    *logger.Logger
}

func NewScoringService(holder *pipelineHolder, alerts repository.AlertRepo, log *logger.Logger) *ScoringService {
	return &ScoringService{holder: holder, alerts: alerts, log: log}
}

// ScoreBatch scores a batch of readings and appends one alert per red-zone
// row to the audit log. Alert persistence is best-effort: a failed append is
// logged and scoring still returns its result, because the scored batch is
// the caller's answer and the log is an audit trail.
func (s *ScoringService) ScoreBatch(ctx context.Context, rows []models.SensorReading) ([]models.ScoredReading, error) {
	scored, err := s.holder.get().Score(rows)
	if err != nil {
		return nil, err
	}

	for _, r := range scored {
		if r.Zone != models.ZoneRed {
			continue
		}
		alert := models.AlertEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  r.Timestamp,
			ComponentID: r.ComponentID,
			Zone:        r.Zone,
			CCI:         float64(r.CCI),
			Description: fmt.Sprintf("component %s entered red zone", r.ComponentID),
			Metadata: map[string]any{
				"yellow": r.ZoneThresholds.Yellow,
				"red":    r.ZoneThresholds.Red,
			},
		}
		if err := s.alerts.Append(ctx, alert); err != nil && s.log != nil {
			s.log.Errorw("failed to persist red-zone alert",
				"component_id", r.ComponentID, "err", err)
		}
	}
	return scored, nil
}
