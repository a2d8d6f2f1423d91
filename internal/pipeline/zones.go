package pipeline

import (
	"math"
	"sort"

	"linewatch/internal/models"
)

// minQuantileSamples is the floor below which quantile calibration is
// skipped in favor of the fixed config thresholds; quantiles estimated on
// fewer valid scores are statistically meaningless.
const minQuantileSamples = 100

// Calibrator labels CCI values with risk zones using a two-threshold step
// function. Thresholds are learned once at fit time and frozen until the
// pipeline is refit.
type Calibrator struct {
	Yellow float64 `json:"yellow"`
	Red    float64 `json:"red"`
	// FromQuantiles records whether the thresholds came from the fit-set
	// CCI quantiles or from the fixed config fallback.
	FromQuantiles bool `json:"from_quantiles"`
}

// Fit calibrates the yellow/red cutoffs on the fit-set CCI distribution.
// Quantile calibration requires UseQuantileZones and at least
// minQuantileSamples valid (non-NaN) scores; otherwise the fixed config
// thresholds apply.
func (z *Calibrator) Fit(cci []float64, cfg Config) {
	valid := make([]float64, 0, len(cci))
	for _, v := range cci {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if cfg.UseQuantileZones && len(valid) >= minQuantileSamples {
		sort.Float64s(valid)
		z.Yellow = quantileSorted(valid, cfg.YellowQ)
		z.Red = quantileSorted(valid, cfg.RedQ)
		z.FromQuantiles = true
		return
	}
	z.Yellow = cfg.FixedYellow
	z.Red = cfg.FixedRed
	z.FromQuantiles = false
}

// Zone maps one CCI value onto its risk bucket. A NaN score (row without
// enough history to score) maps to green: insufficient evidence is not an
// alert condition.
func (z *Calibrator) Zone(cci float64) models.Zone {
	switch {
	case math.IsNaN(cci):
		return models.ZoneGreen
	case cci >= z.Red:
		return models.ZoneRed
	case cci >= z.Yellow:
		return models.ZoneYellow
	default:
		return models.ZoneGreen
	}
}

// Transform labels every score.
func (z *Calibrator) Transform(cci []float64) []models.Zone {
	zones := make([]models.Zone, len(cci))
	for i, v := range cci {
		zones[i] = z.Zone(v)
	}
	return zones
}

// Thresholds returns the active (yellow, red) pair.
func (z *Calibrator) Thresholds() models.ZoneThresholds {
	return models.ZoneThresholds{Yellow: z.Yellow, Red: z.Red}
}

// quantileSorted computes the q-quantile of ascending vals with linear
// interpolation between the two nearest ranks.
func quantileSorted(vals []float64, q float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return vals[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo]*(1-frac) + vals[hi]*frac
}
