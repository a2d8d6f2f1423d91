package pipeline

import (
	"math"
	"reflect"
	"testing"
	"time"

	"linewatch/internal/models"
)

// rampSeries builds the canonical degradation scenario: a long flat baseline
// with small deterministic wiggle, then a sharp sustained vibration ramp.
// The ambient wiggle dies out over the first ramp samples; a lingering
// oscillation would dominate the trend window and mask the climb.
func rampSeries(component string, baseline, ramp int) []models.SensorReading {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.SensorReading, 0, baseline+ramp)
	for i := 0; i < baseline+ramp; i++ {
		wiggle, accel := 1.0, 0.0
		if i >= baseline {
			d := float64(i - baseline)
			accel = 0.0004 * d * d
			wiggle = 1 - d/30
			if wiggle < 0 {
				wiggle = 0
			}
		}
		rows = append(rows, models.SensorReading{
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			ComponentID: component,
			Vibration:   5 + 0.2*wiggle*math.Sin(0.9*float64(i)) + accel,
			Temperature: 20 + 0.3*wiggle*math.Sin(0.31*float64(i)),
			Strain:      100 + 0.8*wiggle*math.Sin(0.11*float64(i)),
		})
	}
	return rows
}

func fittedPipeline(t *testing.T, rows []models.SensorReading) *Pipeline {
	t.Helper()
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := p.Fit(rows); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return p
}

func TestPipeline_ScoreBeforeFit(t *testing.T) {
	t.Parallel()

	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.Score(rampSeries("c1", 10, 0)); err != ErrNotFitted {
		t.Fatalf("want ErrNotFitted, got %v", err)
	}
	if err := p.Save(t.TempDir()); err != ErrNotFitted {
		t.Fatalf("save unfitted: want ErrNotFitted, got %v", err)
	}
}

func TestPipeline_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ShortWin = 0
	if _, err := New(cfg); err == nil {
		t.Fatalf("invalid config must be rejected at construction")
	}
}

func TestPipeline_ScoreInvariants(t *testing.T) {
	t.Parallel()

	rows := rampSeries("tower-17", 1000, 200)
	p := fittedPipeline(t, rows)

	scored, err := p.Score(rows)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(scored) != len(rows) {
		t.Fatalf("row count: want %d, got %d", len(rows), len(scored))
	}

	for i, s := range scored {
		cci := float64(s.CCI)
		if !math.IsNaN(cci) && (cci < 0 || cci > 1) {
			t.Fatalf("row %d: cci %v out of [0,1]", i, cci)
		}
		// zone is a pure step function of cci against the row's thresholds
		var want models.Zone
		switch {
		case math.IsNaN(cci):
			want = models.ZoneGreen
		case cci >= s.ZoneThresholds.Red:
			want = models.ZoneRed
		case cci >= s.ZoneThresholds.Yellow:
			want = models.ZoneYellow
		default:
			want = models.ZoneGreen
		}
		if s.Zone != want {
			t.Fatalf("row %d: zone %s does not match cci %v vs %v", i, s.Zone, cci, s.ZoneThresholds)
		}
		if i < len(scored)-1 && !math.IsNaN(float64(s.TimeLeftHours)) {
			t.Fatalf("row %d: non-terminal row carries time_left %v", i, s.TimeLeftHours)
		}
	}
}

func TestPipeline_RampScenario(t *testing.T) {
	t.Parallel()

	const baseline, ramp = 1000, 200
	rows := rampSeries("tower-17", baseline, ramp)
	p := fittedPipeline(t, rows)

	scored, err := p.Score(rows)
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	firstRed := -1
	greenInEarlyRamp := false
	for i, s := range scored {
		if s.Zone == models.ZoneRed && firstRed < 0 {
			firstRed = i
		}
		if i >= baseline && i < baseline+30 && s.Zone == models.ZoneGreen {
			greenInEarlyRamp = true
		}
	}
	if firstRed < baseline {
		t.Fatalf("red zone before the ramp started: first red at %d", firstRed)
	}
	if firstRed < 0 {
		t.Fatalf("sustained ramp never reached red")
	}
	if !greenInEarlyRamp {
		t.Errorf("early ramp rows should still include green")
	}
	if last := scored[len(scored)-1]; last.Zone != models.ZoneRed {
		t.Fatalf("final ramp row must be red, got %s (cci %v)", last.Zone, last.CCI)
	}

	// Time-left counts down monotonically across the ramp, never flipping
	// back to +Inf, and bottoms out at zero.
	lastTimeLeft := func(n int) float64 {
		s, err := p.Score(rows[:n])
		if err != nil {
			t.Fatalf("score prefix %d: %v", n, err)
		}
		return float64(s[len(s)-1].TimeLeftHours)
	}
	checkpoints := []int{baseline + 60, baseline + 80, baseline + 100, baseline + 120}
	projections := make([]float64, len(checkpoints))
	for i, n := range checkpoints {
		projections[i] = lastTimeLeft(n)
	}
	for i, v := range projections {
		if math.IsInf(v, 1) || math.IsNaN(v) || v <= 0 {
			t.Fatalf("projection at row %d must be finite and positive, got %v", checkpoints[i], v)
		}
		if i > 0 && v >= projections[i-1] {
			t.Errorf("time-left must shrink: %v hours at row %d, then %v at row %d",
				projections[i-1], checkpoints[i-1], v, checkpoints[i])
		}
	}
	if final := lastTimeLeft(baseline + ramp); final != 0 {
		t.Errorf("component at red must report 0 hours, got %v", final)
	}
}

func TestPipeline_TwoSampleComponent(t *testing.T) {
	t.Parallel()

	p := fittedPipeline(t, rampSeries("calib", 1000, 200))

	scored, err := p.Score(rampSeries("sparse", 2, 0))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("want 2 rows, got %d", len(scored))
	}
	if !math.IsInf(float64(scored[1].TimeLeftHours), 1) {
		t.Fatalf("2-sample component must project +Inf, got %v", scored[1].TimeLeftHours)
	}
}

func TestPipeline_ScoreIdempotent(t *testing.T) {
	t.Parallel()

	rows := rampSeries("tower-17", 1000, 200)
	p := fittedPipeline(t, rows)

	first, err := p.Score(rows)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	second, err := p.Score(rows)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !scoredEqual(first, second) {
		t.Fatalf("scoring the same input twice diverged")
	}
}

// scoredEqual compares scored batches treating NaN as equal to NaN.
func scoredEqual(a, b []models.ScoredReading) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if !floatEqualNaN(float64(x.CCI), float64(y.CCI)) ||
			!floatEqualNaN(float64(x.TimeLeftHours), float64(y.TimeLeftHours)) {
			return false
		}
		x.CCI, y.CCI = 0, 0
		x.TimeLeftHours, y.TimeLeftHours = 0, 0
		if !reflect.DeepEqual(x, y) {
			return false
		}
	}
	return true
}

func floatEqualNaN(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

func TestPipeline_RefitIsAtomic(t *testing.T) {
	t.Parallel()

	rows := rampSeries("tower-17", 1000, 200)
	p := fittedPipeline(t, rows)
	before, _ := p.Thresholds()

	// A failed refit must leave the previous calibration fully usable.
	if err := p.Fit(nil); err == nil {
		t.Fatalf("fitting on no rows must fail")
	}
	after, ok := p.Thresholds()
	if !ok || after != before {
		t.Fatalf("failed refit disturbed fitted state: %v -> %v", before, after)
	}
	if _, err := p.Score(rows[:100]); err != nil {
		t.Fatalf("score after failed refit: %v", err)
	}
}

func TestPipeline_LabelAudit(t *testing.T) {
	t.Parallel()

	rows := rampSeries("tower-17", 1000, 200)
	for i := range rows {
		rows[i].CableState = "ok"
	}
	p := fittedPipeline(t, rows)
	scored, err := p.Score(rows[:50])
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scored[0].OriginalCableState != "ok" {
		t.Errorf("ground-truth label must survive under its audit name")
	}
	if scored[0].SensorReading.CableState != "" {
		t.Errorf("label must not remain in the feature-facing fields")
	}
}
