package handlers

import (
	"context"
	"time"

	"linewatch/internal/models"
	"linewatch/internal/pipeline"
	"linewatch/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockScoring struct {
	resp []models.ScoredReading
	err  error

	lastRows []models.SensorReading
	calls    int
}

func (m *mockScoring) ScoreBatch(ctx context.Context, rows []models.SensorReading) ([]models.ScoredReading, error) {
	m.calls++
	m.lastRows = rows
	return m.resp, m.err
}

type mockCalibration struct {
	fitRun   models.CalibrationRun
	fitErr   error
	state    service.PipelineState
	stateErr error

	lastFitRows []models.SensorReading
	fitCalls    int
}

func (m *mockCalibration) Fit(ctx context.Context, rows []models.SensorReading) (models.CalibrationRun, error) {
	m.fitCalls++
	m.lastFitRows = rows
	return m.fitRun, m.fitErr
}

func (m *mockCalibration) State(ctx context.Context) (service.PipelineState, error) {
	return m.state, m.stateErr
}

type mockAlertLog struct {
	resp []models.AlertEvent
	err  error

	lastFrom      time.Time
	lastTo        time.Time
	lastComponent string
}

func (m *mockAlertLog) List(ctx context.Context, f service.AlertFilter) ([]models.AlertEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastComponent = f.ComponentID
	return m.resp, m.err
}

type mockBacktester struct {
	resp pipeline.BacktestResult
	err  error

	lastParams service.BacktestParams
}

func (m *mockBacktester) Run(ctx context.Context, p service.BacktestParams) (pipeline.BacktestResult, error) {
	m.lastParams = p
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
