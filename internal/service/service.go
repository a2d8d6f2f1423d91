package service

import (
	"context"
	"sync"
	"time"

	"linewatch/internal/logger"
	"linewatch/internal/models"
	"linewatch/internal/pipeline"
	"linewatch/internal/repository"
)

// Scoring runs inference on reading batches and records red-zone alerts.
type Scoring interface {
	ScoreBatch(ctx context.Context, rows []models.SensorReading) ([]models.ScoredReading, error)
}

// PipelineState is the read-only status surface of the scoring pipeline.
type PipelineState struct {
	Fitted     bool                   `json:"fitted"`
	Thresholds *models.ZoneThresholds `json:"thresholds,omitempty"`
	LastRun    models.CalibrationRun  `json:"last_run"`
}

// Calibration refits the pipeline and reports its current state. A refit is
// atomic: concurrent scorers see either the old pipeline or the new one,
// never a half-replaced mix.
type Calibration interface {
	Fit(ctx context.Context, rows []models.SensorReading) (models.CalibrationRun, error)
	State(ctx context.Context) (PipelineState, error)
}

// AlertLog exposes the append-only red-zone alert history with filtering.
type AlertLog interface {
	List(ctx context.Context, f AlertFilter) ([]models.AlertEvent, error)
}

// Backtester answers lead-time questions against historical readings.
type Backtester interface {
	Run(ctx context.Context, p BacktestParams) (pipeline.BacktestResult, error)
}

// AlertFilter narrows an alert listing. Zero values mean "no constraint".
type AlertFilter struct {
	From        time.Time
	To          time.Time
	ComponentID string
}

// BacktestParams identifies the component, the event instant and the
// historical readings to audit.
type BacktestParams struct {
	Readings    []models.SensorReading
	EventAt     time.Time
	ComponentID string
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Scoring
	Calibration
	AlertLog
	Backtester
}

// Deps carries everything NewService needs to wire the sub-services.
type Deps struct {
	Repos       *repository.Repository
	Pipe        *pipeline.Pipeline // initial pipeline, fitted (loaded) or not
	Cfg         pipeline.Config
	ArtifactDir string
	Log         *logger.Logger
}

// NewService wires repositories and the shared pipeline holder into concrete
// services.
func NewService(d Deps) *Service {
	holder := &pipelineHolder{p: d.Pipe}
	return &Service{
		Scoring:     NewScoringService(holder, d.Repos.Alerts, d.Log),
		Calibration: NewCalibrationService(holder, d.Repos.Runs, d.Cfg, d.ArtifactDir, d.Log),
		AlertLog:    NewAlertLogService(d.Repos.Alerts),
		Backtester:  NewBacktestService(holder),
	}
}

// pipelineHolder shares one pipeline pointer between the scoring and
// calibration services. Scoring takes the read side; a refit swaps the
// pointer wholesale under the write lock.
type pipelineHolder struct {
	mu sync.RWMutex
	p  *pipeline.Pipeline
}

func (h *pipelineHolder) get() *pipeline.Pipeline {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p
}

func (h *pipelineHolder) swap(p *pipeline.Pipeline) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.p = p
}
