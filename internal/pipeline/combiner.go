package pipeline

import "math"

// Fixed design constants of the score combination. They control squashing
// sharpness and the relative emphasis of bandpower and wind; they are
// deliberately not config-exposed, and changing any of them invalidates
// previously calibrated zone thresholds.
const (
	sigmoidGain     = 1.5
	bandpowerWeight = 0.6
	windWeight      = 0.15
)

// Combiner folds the scaled stress/bandpower columns into the Component
// Condition Index. The column selection is frozen at fit time.
type Combiner struct {
	Columns []string `json:"columns"`
}

// defaultCombinerColumns is the standard feature selection; wind stress is
// included only when the calibration frame carries it.
func defaultCombinerColumns(f *Frame) []string {
	cols := []string{
		colVibration + suffixStress,
		colBandpower,
		colTemperature + suffixStress,
		colStrain + suffixStress,
	}
	if _, ok := f.Col(colWindSpeed + suffixStress); ok {
		cols = append(cols, colWindSpeed+suffixStress)
	}
	return cols
}

// Fit selects the feature columns. A non-empty override wins; otherwise the
// default set is derived from the calibration frame.
func (c *Combiner) Fit(f *Frame, override []string) {
	if len(override) > 0 {
		c.Columns = append([]string(nil), override...)
		return
	}
	c.Columns = defaultCombinerColumns(f)
}

// Transform computes the CCI for every frame row:
//
//	vib = vibration_stress + 0.6*vibration_bandpower
//	raw = w_v*vib + w_t*temperature_stress + w_s*strain_stress + 0.15*wind_stress
//	cci = sigmoid(1.5 * raw)
//
// A selected column that is absent from the frame contributes zero. A NaN
// cell in a present column makes the row's CCI NaN; unresolved missing
// history must surface, not default to mid-scale.
func (c *Combiner) Transform(f *Frame, cfg Config) []float64 {
	cci := make([]float64, f.Len())
	for i := range cci {
		vib := c.term(f, colVibration+suffixStress, i) +
			bandpowerWeight*c.term(f, colBandpower, i)
		raw := cfg.WVibration*vib +
			cfg.WTemperature*c.term(f, colTemperature+suffixStress, i) +
			cfg.WStrain*c.term(f, colStrain+suffixStress, i) +
			windWeight*c.term(f, colWindSpeed+suffixStress, i)
		cci[i] = sigmoid(sigmoidGain * raw)
	}
	return cci
}

// term returns the row value of a selected column, 0 when the column was not
// selected at fit time or does not exist in the frame, and NaN when the
// column exists but the cell is NaN.
func (c *Combiner) term(f *Frame, name string, row int) float64 {
	if !c.selected(name) {
		return 0
	}
	col, ok := f.Col(name)
	if !ok {
		return 0
	}
	return col[row]
}

func (c *Combiner) selected(name string) bool {
	for _, n := range c.Columns {
		if n == name {
			return true
		}
	}
	return false
}

func sigmoid(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	return 1.0 / (1.0 + math.Exp(-x))
}
