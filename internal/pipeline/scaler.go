package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Scaler standardizes feature columns with statistics learned once at fit
// time. Transform never refits; scoring always reuses the calibration-set
// mean/std.
type Scaler struct {
	Columns []string           `json:"columns"`
	Mean    map[string]float64 `json:"mean"`
	Std     map[string]float64 `json:"std"`

	// DegenerateColumns lists fit columns with zero variance. Such columns
	// transform to zero deviation instead of ±Inf; the list is surfaced so
	// callers can flag the data-quality problem instead of masking it.
	DegenerateColumns []string `json:"degenerate_columns,omitempty"`
}

// Fit learns per-column mean and standard deviation from the frame. When
// cols is empty the column set is inferred as every frame column not ending
// in "timestamp". NaN cells are excluded from the statistics.
func (s *Scaler) Fit(f *Frame, cols []string) error {
	if len(cols) == 0 {
		for _, name := range f.Names() {
			if strings.HasSuffix(name, "timestamp") {
				continue
			}
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 {
		return fmt.Errorf("scaler: no feature columns to fit")
	}

	s.Columns = append([]string(nil), cols...)
	s.Mean = make(map[string]float64, len(cols))
	s.Std = make(map[string]float64, len(cols))
	s.DegenerateColumns = nil

	for _, name := range cols {
		col, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("scaler: fit column %q not present in frame", name)
		}
		mean, std, cnt := meanStd(col)
		if cnt == 0 {
			// A column that is all NaN carries no signal; record it as
			// degenerate and keep its values untouched at transform time.
			mean, std = 0, 0
		}
		s.Mean[name] = mean
		s.Std[name] = std
		if std == 0 {
			s.DegenerateColumns = append(s.DegenerateColumns, name)
		}
	}
	sort.Strings(s.DegenerateColumns)
	return nil
}

// Transform replaces every fitted column in the frame with its standardized
// values (x - mean) / std. Zero-variance columns map to 0 deviation rather
// than ±Inf. NaN cells stay NaN.
func (s *Scaler) Transform(f *Frame) error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("scaler: not fitted")
	}
	for _, name := range s.Columns {
		col, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("scaler: column %q missing from frame", name)
		}
		mean, std := s.Mean[name], s.Std[name]
		out := make([]float64, len(col))
		for i, v := range col {
			switch {
			case math.IsNaN(v):
				out[i] = math.NaN()
			case std == 0:
				out[i] = 0
			default:
				out[i] = (v - mean) / std
			}
		}
		f.Set(name, out)
	}
	return nil
}

// meanStd computes the population mean/std over non-NaN values.
func meanStd(vals []float64) (mean, std float64, cnt int) {
	var sum float64
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		cnt++
	}
	if cnt == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(cnt)
	var sq float64
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(cnt))
	return mean, std, cnt
}
