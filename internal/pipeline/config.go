package pipeline

import (
	"errors"
	"fmt"
)

// Config is the immutable set of tuning parameters for the scoring pipeline.
// Window lengths are counted in samples, not wall-clock time. Construct it
// once (DefaultConfig plus overrides), validate it, and never mutate it after
// handing it to New.
type Config struct {
	// Rolling window lengths, in samples.
	ShortWin int `json:"short_win" mapstructure:"short_win"`
	MidWin   int `json:"mid_win" mapstructure:"mid_win"`
	LongWin  int `json:"long_win" mapstructure:"long_win"`

	// Spectral estimate segment length and overlap, in samples.
	PSDSegLen  int `json:"psd_seg_len" mapstructure:"psd_seg_len"`
	PSDOverlap int `json:"psd_overlap" mapstructure:"psd_overlap"`

	// Per-signal combination weights. Caller-chosen; not required to sum to 1.
	WVibration   float64 `json:"w_vibration" mapstructure:"w_vibration"`
	WTemperature float64 `json:"w_temperature" mapstructure:"w_temperature"`
	WStrain      float64 `json:"w_strain" mapstructure:"w_strain"`

	// Zone threshold calibration. When UseQuantileZones is set and the fit
	// sample is large enough, yellow/red come from the CCI quantiles;
	// otherwise the fixed thresholds apply.
	UseQuantileZones bool    `json:"use_quantile_zones" mapstructure:"use_quantile_zones"`
	YellowQ          float64 `json:"yellow_q" mapstructure:"yellow_q"`
	RedQ             float64 `json:"red_q" mapstructure:"red_q"`
	FixedYellow      float64 `json:"fixed_yellow" mapstructure:"fixed_yellow"`
	FixedRed         float64 `json:"fixed_red" mapstructure:"fixed_red"`

	// Trend projection.
	TrendLookback      int     `json:"trend_lookback" mapstructure:"trend_lookback"`
	MaxTimeLeftHours   float64 `json:"max_time_left_hours" mapstructure:"max_time_left_hours"`
	SampleGapHintHours float64 `json:"sample_gap_hint_hours" mapstructure:"sample_gap_hint_hours"`

	// FeatureColumns overrides the combiner's default feature selection.
	// Leave empty to let the combiner pick its standard set at fit time.
	FeatureColumns []string `json:"feature_columns,omitempty" mapstructure:"feature_columns"`
}

// DefaultConfig returns the standard tuning used in production scoring.
func DefaultConfig() Config {
	return Config{
		ShortWin:           12,
		MidWin:             36,
		LongWin:            96,
		PSDSegLen:          32,
		PSDOverlap:         16,
		WVibration:         0.5,
		WTemperature:       0.25,
		WStrain:            0.25,
		UseQuantileZones:   true,
		YellowQ:            0.80,
		RedQ:               0.95,
		FixedYellow:        0.60,
		FixedRed:           0.80,
		TrendLookback:      48,
		MaxTimeLeftHours:   24 * 365,
		SampleGapHintHours: 1.0,
	}
}

var errWindowOrder = errors.New("window lengths must satisfy 0 < short_win <= mid_win <= long_win")

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ShortWin <= 0 || c.MidWin < c.ShortWin || c.LongWin < c.MidWin {
		return errWindowOrder
	}
	if c.PSDSegLen <= 0 {
		return errors.New("psd_seg_len must be positive")
	}
	if c.PSDOverlap < 0 || c.PSDOverlap >= c.PSDSegLen {
		return fmt.Errorf("psd_overlap must be in [0, psd_seg_len): got %d", c.PSDOverlap)
	}
	if c.YellowQ <= 0 || c.YellowQ >= 1 || c.RedQ <= 0 || c.RedQ >= 1 {
		return errors.New("quantile levels must be in (0, 1)")
	}
	if c.YellowQ >= c.RedQ {
		return fmt.Errorf("yellow_q %.3f must be below red_q %.3f", c.YellowQ, c.RedQ)
	}
	if c.FixedYellow >= c.FixedRed {
		return fmt.Errorf("fixed_yellow %.3f must be below fixed_red %.3f", c.FixedYellow, c.FixedRed)
	}
	if c.TrendLookback < 3 {
		return errors.New("trend_lookback must be at least 3")
	}
	if c.MaxTimeLeftHours <= 0 {
		return errors.New("max_time_left_hours must be positive")
	}
	if c.SampleGapHintHours < 0 {
		return errors.New("sample_gap_hint_hours must not be negative")
	}
	return nil
}
