package pipeline

import (
	"errors"
	"fmt"

	"linewatch/internal/logger"
	"linewatch/internal/models"
)

// ErrNotFitted is returned when Score or Save is called on a pipeline that
// has neither been fit nor loaded from artifacts.
var ErrNotFitted = errors.New("pipeline is not fitted: call Fit or Load first")

// FittedState is everything Fit learns: scaler statistics, the combiner's
// column selection and the calibrated zone thresholds. It is immutable after
// Fit; recalibration replaces the whole value.
type FittedState struct {
	Scaler     Scaler     `json:"scaler"`
	Combiner   Combiner   `json:"combiner"`
	Calibrator Calibrator `json:"calibrator"`
}

// Pipeline sequences normalization, feature extraction, scaling, score
// combination, zone labeling and time-left projection. It is safe for
// concurrent Score calls once fitted: Fit swaps the fitted state in whole,
// and Score never mutates it.
type Pipeline struct {
	cfg    Config
	log    *logger.Logger
	fitted *FittedState
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithLogger attaches a logger for data-quality diagnostics (dropped rows,
// degenerate columns, threshold fallback). Without it the pipeline is silent.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New constructs an unfitted pipeline with a validated config.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Fitted reports whether the pipeline is ready to score.
func (p *Pipeline) Fitted() bool { return p.fitted != nil }

// Thresholds returns the active zone thresholds. ok is false before fitting.
func (p *Pipeline) Thresholds() (models.ZoneThresholds, bool) {
	if p.fitted == nil {
		return models.ZoneThresholds{}, false
	}
	return p.fitted.Calibrator.Thresholds(), true
}

// Fit calibrates the pipeline on a reference data set. The previous fitted
// state, if any, stays fully intact unless the whole calibration succeeds;
// the swap at the end is what makes refitting atomic for concurrent readers.
func (p *Pipeline) Fit(rows []models.SensorReading) error {
	normalized, stats := Normalize(rows)
	p.logDrops("fit", stats)
	if len(normalized) == 0 {
		return errors.New("pipeline fit: no valid rows in calibration data")
	}

	frame := ExtractFeatures(normalized, p.cfg)

	var next FittedState
	if err := next.Scaler.Fit(frame, nil); err != nil {
		return fmt.Errorf("pipeline fit: %w", err)
	}
	if len(next.Scaler.DegenerateColumns) > 0 && p.log != nil {
		p.log.Warnw("zero-variance feature columns in calibration data",
			"columns", next.Scaler.DegenerateColumns)
	}
	if err := next.Scaler.Transform(frame); err != nil {
		return fmt.Errorf("pipeline fit: %w", err)
	}

	next.Combiner.Fit(frame, p.cfg.FeatureColumns)
	cci := next.Combiner.Transform(frame, p.cfg)

	next.Calibrator.Fit(cci, p.cfg)
	if p.log != nil && p.cfg.UseQuantileZones && !next.Calibrator.FromQuantiles {
		p.log.Infow("too few valid scores for quantile calibration, using fixed thresholds",
			"yellow", next.Calibrator.Yellow, "red", next.Calibrator.Red)
	}

	p.fitted = &next
	return nil
}

// Score runs the full inference path and returns the normalized rows
// enriched with cci, zone, the active thresholds and the per-component
// time-left projection. The input slice is never mutated; scoring the same
// input twice yields identical output.
func (p *Pipeline) Score(rows []models.SensorReading) ([]models.ScoredReading, error) {
	if p.fitted == nil {
		return nil, ErrNotFitted
	}
	st := p.fitted

	normalized, stats := Normalize(rows)
	p.logDrops("score", stats)

	frame := ExtractFeatures(normalized, p.cfg)
	if err := st.Scaler.Transform(frame); err != nil {
		return nil, fmt.Errorf("pipeline score: %w", err)
	}

	cci := st.Combiner.Transform(frame, p.cfg)
	zones := st.Calibrator.Transform(cci)
	thresholds := st.Calibrator.Thresholds()
	timeLeft := ProjectTimeLeft(normalized, cci, thresholds.Red, p.cfg)

	scored := make([]models.ScoredReading, len(normalized))
	for i, r := range normalized {
		s := models.ScoredReading{
			SensorReading:  r,
			CCI:            models.JSONFloat(cci[i]),
			Zone:           zones[i],
			ZoneThresholds: thresholds,
			TimeLeftHours:  models.JSONFloat(timeLeft[i]),
		}
		// The ground-truth label, when present, rides along under its audit
		// name and never feeds the features.
		s.OriginalCableState = r.CableState
		s.SensorReading.CableState = ""
		scored[i] = s
	}
	return scored, nil
}

func (p *Pipeline) logDrops(op string, stats NormalizeStats) {
	if p.log == nil || stats.Dropped == 0 {
		return
	}
	p.log.Infow("dropped invalid sensor rows",
		"op", op, "input", stats.Input, "dropped", stats.Dropped)
}
