package service

import (
	"context"
	"fmt"
	"time"

	"linewatch/internal/logger"
	"linewatch/internal/models"
	"linewatch/internal/pipeline"
	"linewatch/internal/repository"
)

type CalibrationService struct {
	holder      *pipelineHolder
	runs        repository.RunRepo
	cfg         pipeline.Config
	artifactDir string
	log         *logger.Logger
}

func NewCalibrationService(holder *pipelineHolder, runs repository.RunRepo, cfg pipeline.Config, artifactDir string, log *logger.Logger) *CalibrationService {
	return &CalibrationService{holder: holder, runs: runs, cfg: cfg, artifactDir: artifactDir, log: log}
}

// Fit calibrates a fresh pipeline on the given readings, persists its
// artifacts, swaps it in for scoring and records the run. The previously
// active pipeline keeps serving until the swap; any failure before the swap
// leaves it untouched.
func (s *CalibrationService) Fit(ctx context.Context, rows []models.SensorReading) (models.CalibrationRun, error) {
	var opts []pipeline.Option
	if s.log != nil {
		opts = append(opts, pipeline.WithLogger(s.log))
	}
	next, err := pipeline.New(s.cfg, opts...)
	if err != nil {
		return models.CalibrationRun{}, err
	}
	if err := next.Fit(rows); err != nil {
		return models.CalibrationRun{}, err
	}
	if err := next.Save(s.artifactDir); err != nil {
		return models.CalibrationRun{}, err
	}
	meta, err := pipeline.ReadMetadata(s.artifactDir)
	if err != nil {
		return models.CalibrationRun{}, fmt.Errorf("read saved metadata: %w", err)
	}

	s.holder.swap(next)

	thresholds, _ := next.Thresholds()
	run := models.CalibrationRun{
		ID:         1,
		ArtifactID: meta.ArtifactID,
		FittedAt:   time.Now().UTC(),
		Yellow:     thresholds.Yellow,
		Red:        thresholds.Red,
		RowsUsed:   len(rows),
	}
	if err := s.runs.Save(ctx, run); err != nil {
		// The pipeline is already live; a failed run record is an audit gap,
		// not a reason to reject the calibration.
		if s.log != nil {
			s.log.Errorw("failed to persist calibration run record", "err", err)
		}
	}
	if s.log != nil {
		s.log.Infow("pipeline recalibrated",
			"artifact_id", run.ArtifactID,
			"yellow", run.Yellow, "red", run.Red, "rows", run.RowsUsed)
	}
	return run, nil
}

// State reports whether the pipeline can score, its active thresholds and
// the last recorded calibration run.
func (s *CalibrationService) State(ctx context.Context) (PipelineState, error) {
	p := s.holder.get()
	state := PipelineState{Fitted: p.Fitted()}
	if t, ok := p.Thresholds(); ok {
		state.Thresholds = &t
	}
	run, err := s.runs.Load(ctx)
	if err != nil {
		return PipelineState{}, err
	}
	state.LastRun = run
	return state, nil
}
