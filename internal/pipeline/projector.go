package pipeline

import (
	"math"
	"sort"

	"linewatch/internal/models"
)

// minTrendSamples is the minimum number of valid CCI values required before
// a trend is worth extrapolating.
const minTrendSamples = 3

// ProjectTimeLeft estimates, per component, the hours until the CCI trend
// crosses the red threshold. The projection is recomputed from scratch every
// call; nothing about it is persisted state.
//
// The returned slice is aligned with rows. Only the last row of each
// component carries a real value; earlier rows get NaN, because the
// projection is only meaningful as of the newest sample. The value is 0 when
// the component is already red, +Inf when no breach is on the trend, and
// clamped to cfg.MaxTimeLeftHours otherwise.
func ProjectTimeLeft(rows []models.SensorReading, cci []float64, red float64, cfg Config) []float64 {
	out := nanSlice(len(rows))
	for _, g := range componentGroups(rows) {
		out[g[1]-1] = projectGroup(rows[g[0]:g[1]], cci[g[0]:g[1]], red, cfg)
	}
	return out
}

func projectGroup(rows []models.SensorReading, cci []float64, red float64, cfg Config) float64 {
	lo := len(cci) - cfg.TrendLookback
	if lo < 0 {
		lo = 0
	}
	window := cci[lo:]

	valid := make([]float64, 0, len(window))
	lastValid := math.NaN()
	for _, v := range window {
		if !math.IsNaN(v) {
			valid = append(valid, v)
			lastValid = v
		}
	}
	if len(valid) < minTrendSamples {
		return math.Inf(1)
	}

	slope, intercept, ok := lsFit(valid)
	if !ok {
		return math.Inf(1)
	}

	// Already critical takes precedence over the slope test.
	if lastValid >= red {
		return 0
	}
	if slope <= 0 {
		return math.Inf(1)
	}

	breachStep := (red - intercept) / slope
	stepsLeft := breachStep - float64(len(valid)-1)
	if stepsLeft < 0 {
		stepsLeft = 0
	}

	hours := stepsLeft * sampleGapHours(rows, cfg)
	if hours > cfg.MaxTimeLeftHours {
		hours = cfg.MaxTimeLeftHours
	}
	return hours
}

// sampleGapHours infers the component's step duration as the median
// inter-sample gap of its timestamps. With fewer than two samples it falls
// back to the configured hint, then to 1 hour.
func sampleGapHours(rows []models.SensorReading, cfg Config) float64 {
	if len(rows) < 2 {
		if cfg.SampleGapHintHours > 0 {
			return cfg.SampleGapHintHours
		}
		return 1.0
	}
	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		gaps = append(gaps, rows[i].Timestamp.Sub(rows[i-1].Timestamp).Hours())
	}
	sort.Float64s(gaps)
	var med float64
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		med = gaps[mid]
	} else {
		med = (gaps[mid-1] + gaps[mid]) / 2
	}
	if med <= 0 {
		if cfg.SampleGapHintHours > 0 {
			return cfg.SampleGapHintHours
		}
		return 1.0
	}
	return med
}
