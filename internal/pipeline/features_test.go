package pipeline

import (
	"math"
	"testing"
	"time"

	"linewatch/internal/models"
)

const floatTol = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ShortWin = 4
	cfg.MidWin = 8
	cfg.LongWin = 16
	cfg.PSDSegLen = 16
	cfg.PSDOverlap = 8
	return cfg
}

func TestEWMA(t *testing.T) {
	t.Parallel()

	t.Run("hand-computed recursion", func(t *testing.T) {
		// span 3 -> alpha 0.5
		dst := nanSlice(3)
		ewmaInto(dst, []float64{1, 2, 3}, 3)
		want := []float64{1, 1.5, 2.25}
		for i := range want {
			if !almostEqual(dst[i], want[i], floatTol) {
				t.Fatalf("ewma[%d]: want %v, got %v", i, want[i], dst[i])
			}
		}
	})

	t.Run("NaN head and carry-through", func(t *testing.T) {
		dst := nanSlice(4)
		ewmaInto(dst, []float64{math.NaN(), 2, math.NaN(), 4}, 3)
		if !math.IsNaN(dst[0]) {
			t.Errorf("output before first valid sample must stay NaN")
		}
		if dst[1] != 2 {
			t.Errorf("first valid sample seeds the average: want 2, got %v", dst[1])
		}
		if dst[2] != 2 {
			t.Errorf("NaN input carries the previous average: want 2, got %v", dst[2])
		}
		if !almostEqual(dst[3], 3, floatTol) {
			t.Errorf("want 3, got %v", dst[3])
		}
	})
}

func TestRollingStd(t *testing.T) {
	t.Parallel()

	// win 4 -> defined once 2 of 4 slots are filled
	dst := nanSlice(5)
	rollingStdInto(dst, []float64{1, 2, 3, 4, 4}, 4)

	if !math.IsNaN(dst[0]) {
		t.Errorf("half-window rule: index 0 must be NaN")
	}
	// window [1,2]: sample std = sqrt(0.5)
	if !almostEqual(dst[1], math.Sqrt(0.5), floatTol) {
		t.Errorf("index 1: want %v, got %v", math.Sqrt(0.5), dst[1])
	}
	// window [1,2,3,4]: sample std = sqrt(5/3)
	if !almostEqual(dst[3], math.Sqrt(5.0/3.0), floatTol) {
		t.Errorf("index 3: want %v, got %v", math.Sqrt(5.0/3.0), dst[3])
	}

	t.Run("constant window has zero std", func(t *testing.T) {
		dst := nanSlice(4)
		rollingStdInto(dst, []float64{7, 7, 7, 7}, 4)
		if dst[3] != 0 {
			t.Errorf("want 0, got %v", dst[3])
		}
	})
}

func TestRollingSlope_RequiresFullWindow(t *testing.T) {
	t.Parallel()

	dst := nanSlice(4)
	rollingSlopeInto(dst, []float64{0, 1, 2, 3}, 3)

	// Stricter than rolling std: nothing before the window is full.
	if !math.IsNaN(dst[0]) || !math.IsNaN(dst[1]) {
		t.Errorf("slope must be NaN until the window is completely filled")
	}
	if !almostEqual(dst[2], 1, floatTol) || !almostEqual(dst[3], 1, floatTol) {
		t.Errorf("slope of a unit ramp is 1, got %v, %v", dst[2], dst[3])
	}
}

func TestLSFit(t *testing.T) {
	t.Parallel()

	slope, intercept, ok := lsFit([]float64{2, 4, 6, 8})
	if !ok {
		t.Fatalf("expected fit to succeed")
	}
	if !almostEqual(slope, 2, floatTol) || !almostEqual(intercept, 2, floatTol) {
		t.Fatalf("want slope 2 intercept 2, got %v %v", slope, intercept)
	}

	if _, ok := lsSlope([]float64{1}); ok {
		t.Errorf("single sample must not fit")
	}
	if _, ok := lsSlope([]float64{1, math.NaN(), 3}); ok {
		t.Errorf("NaN sample must not fit")
	}
}

func TestExtractFeatures_StressAndColumns(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Rising vibration: recent average exceeds the long-run baseline, so
	// stress must turn positive.
	var rows []models.SensorReading
	for i := 0; i < 64; i++ {
		rows = append(rows, reading("c1", base.Add(time.Duration(i)*time.Hour),
			float64(i)*0.5, 20, 100))
	}
	rows, _ = Normalize(rows)
	f := ExtractFeatures(rows, cfg)

	for _, col := range []string{
		"vibration_short_ewma", "vibration_long_ewma", "vibration_rolling_std",
		"vibration_rolling_slope", "vibration_stress",
		"temperature_stress", "strain_stress", "vibration_bandpower",
	} {
		if _, ok := f.Col(col); !ok {
			t.Fatalf("expected column %q", col)
		}
	}
	if _, ok := f.Col("wind_speed_stress"); ok {
		t.Errorf("wind column must be absent when no reading reports wind")
	}

	stress, _ := f.Col("vibration_stress")
	if stress[len(stress)-1] <= 0 {
		t.Errorf("rising signal must yield positive stress, got %v", stress[len(stress)-1])
	}
	tempStress, _ := f.Col("temperature_stress")
	if !almostEqual(tempStress[len(tempStress)-1], 0, 1e-6) {
		t.Errorf("flat signal stress must be ~0, got %v", tempStress[len(tempStress)-1])
	}
}

func TestExtractFeatures_WindOptIn(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wind := 5.0

	var rows []models.SensorReading
	for i := 0; i < 8; i++ {
		r := reading("c1", base.Add(time.Duration(i)*time.Hour), 1, 20, 100)
		if i >= 2 {
			r.WindSpeed = &wind
		}
		rows = append(rows, r)
	}
	f := ExtractFeatures(rows, cfg)

	ws, ok := f.Col("wind_speed_stress")
	if !ok {
		t.Fatalf("wind stress column expected when any reading reports wind")
	}
	if !math.IsNaN(ws[0]) {
		t.Errorf("wind stress before the first wind sample must be NaN")
	}
	if math.IsNaN(ws[7]) {
		t.Errorf("wind stress after samples arrive must be defined")
	}
	if _, ok := f.Col("wind_speed_rolling_std"); ok {
		t.Errorf("wind gets only the EWMA/stress treatment, not rolling std")
	}
}

func TestBandpower(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	t.Run("NaN below minimum history", func(t *testing.T) {
		vals := make([]float64, minBandpowerSamples+4)
		for i := range vals {
			vals[i] = math.Sin(float64(i))
		}
		dst := nanSlice(len(vals))
		bandpowerInto(dst, vals, cfg)
		if !math.IsNaN(dst[minBandpowerSamples-2]) {
			t.Errorf("bandpower must be NaN before %d samples", minBandpowerSamples)
		}
		if math.IsNaN(dst[len(dst)-1]) {
			t.Errorf("bandpower must be defined with full history")
		}
	})

	t.Run("high-frequency energy weighs more", func(t *testing.T) {
		n := 64
		highFreq := make([]float64, n) // alternating at Nyquist
		lowFreq := make([]float64, n)  // slow oscillation
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				highFreq[i] = 1
			} else {
				highFreq[i] = -1
			}
			lowFreq[i] = math.Sin(2 * math.Pi * float64(i) / float64(n))
		}
		dstHigh := nanSlice(n)
		dstLow := nanSlice(n)
		bandpowerInto(dstHigh, highFreq, cfg)
		bandpowerInto(dstLow, lowFreq, cfg)

		h, l := dstHigh[n-1], dstLow[n-1]
		if math.IsNaN(h) || math.IsNaN(l) {
			t.Fatalf("bandpower undefined: high=%v low=%v", h, l)
		}
		if h <= l {
			t.Errorf("oscillatory signal must out-score slow drift: high=%v low=%v", h, l)
		}
	})
}
