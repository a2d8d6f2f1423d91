package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linewatch/internal/ingest"
	"linewatch/internal/models"
	"linewatch/internal/pipeline"
	"linewatch/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errScoreBatch   = "failed to score readings"
	errFitPipeline  = "failed to calibrate pipeline"
	errPipelineCold = "pipeline is not calibrated yet"
	errGetState     = "failed to load pipeline state"
	errBacktest     = "failed to run backtest"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// Request DTO for scoring and fitting.
type readingsRequest struct {
	Readings []models.SensorReading `json:"readings" binding:"required"`
}

func (h *Handler) scoreBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req readingsRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}

	scored, err := h.services.Scoring.ScoreBatch(ctx, req.Readings)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFitted) {
			h.logAndJSONError(c, http.StatusConflict, errPipelineCold, "score_unfitted", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errScoreBatch, "score_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(scored),
		"scored": scored,
	})
}

// Request DTO for fitting: inline rows, a server-side CSV path, or both.
type fitRequest struct {
	Readings []models.SensorReading `json:"readings"`
	CSVPath  string                 `json:"csv_path"`
}

func (h *Handler) fitPipeline(c *gin.Context) {
	ctx := c.Request.Context()

	var req fitRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	rows := req.Readings
	if req.CSVPath != "" {
		loaded, stats, err := ingest.LoadCSV(req.CSVPath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable csv: " + err.Error()})
			return
		}
		if stats.Skipped > 0 && h.log != nil {
			h.log.Warnw("fit csv had bad rows", "path", req.CSVPath, "skipped", stats.Skipped)
		}
		rows = append(rows, loaded...)
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no readings: provide readings or csv_path"})
		return
	}

	run, err := h.services.Calibration.Fit(ctx, rows)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errFitPipeline, "fit_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "calibrated",
		"run":    run,
	})
}

func (h *Handler) pipelineState(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := h.services.Calibration.State(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "state_failed", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Request DTO for backtesting.
type backtestRequest struct {
	Readings    []models.SensorReading `json:"readings" binding:"required"`
	EventAt     time.Time              `json:"event_at" binding:"required"`
	ComponentID string                 `json:"component_id" binding:"required"`
}

func (h *Handler) backtest(c *gin.Context) {
	ctx := c.Request.Context()

	var req backtestRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}

	result, err := h.services.Backtester.Run(ctx, service.BacktestParams{
		Readings:    req.Readings,
		EventAt:     req.EventAt,
		ComponentID: req.ComponentID,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFitted) {
			h.logAndJSONError(c, http.StatusConflict, errPipelineCold, "backtest_unfitted", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errBacktest, "backtest_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
