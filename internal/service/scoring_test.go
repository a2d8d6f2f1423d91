package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"linewatch/internal/models"
	"linewatch/internal/pipeline"
)

// scoringAlertRepoStub is a local stub that satisfies repository.AlertRepo.
type scoringAlertRepoStub struct {
	appended  []models.AlertEvent
	appendErr error
}

func (s *scoringAlertRepoStub) Append(ctx context.Context, a models.AlertEvent) error {
	s.appended = append(s.appended, a)
	return s.appendErr
}

func (s *scoringAlertRepoStub) List(ctx context.Context, from, to time.Time, componentID string) ([]models.AlertEvent, error) {
	return nil, nil
}

// degradationSeries builds a flat baseline followed by an accelerating
// vibration ramp, hourly samples.
func degradationSeries(component string, baseline, ramp int) []models.SensorReading {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.SensorReading, 0, baseline+ramp)
	for i := 0; i < baseline+ramp; i++ {
		vib := 5 + 0.2*math.Sin(0.9*float64(i))
		if i >= baseline {
			d := float64(i - baseline)
			vib += 0.002 * d * d
		}
		rows = append(rows, models.SensorReading{
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			ComponentID: component,
			Vibration:   vib,
			Temperature: 20 + 0.3*math.Sin(0.31*float64(i)),
			Strain:      100 + 0.8*math.Sin(0.11*float64(i)),
		})
	}
	return rows
}

func fittedHolder(t *testing.T, rows []models.SensorReading) *pipelineHolder {
	t.Helper()
	p, err := pipeline.New(pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if err := p.Fit(rows); err != nil {
		t.Fatalf("fit pipeline: %v", err)
	}
	return &pipelineHolder{p: p}
}

func TestScoringService_ScoreBatch_AppendsRedAlerts(t *testing.T) {
	t.Parallel()

	rows := degradationSeries("tower-17", 200, 100)
	holder := fittedHolder(t, rows)
	repo := &scoringAlertRepoStub{}
	svc := NewScoringService(holder, repo, nil)

	scored, err := svc.ScoreBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(scored) != len(rows) {
		t.Fatalf("scored rows: want %d, got %d", len(rows), len(scored))
	}

	var reds []models.ScoredReading
	for _, r := range scored {
		if r.Zone == models.ZoneRed {
			reds = append(reds, r)
		}
	}
	if len(reds) == 0 {
		t.Fatalf("degradation series must produce red rows")
	}
	if len(repo.appended) != len(reds) {
		t.Fatalf("alerts appended: want %d, got %d", len(reds), len(repo.appended))
	}

	first := repo.appended[0]
	want := reds[0]
	if first.ComponentID != want.ComponentID {
		t.Errorf("component: want %q, got %q", want.ComponentID, first.ComponentID)
	}
	if first.Zone != models.ZoneRed {
		t.Errorf("zone: want red, got %q", first.Zone)
	}
	if !first.OccurredAt.Equal(want.Timestamp) {
		t.Errorf("occurred_at: want %v, got %v", want.Timestamp, first.OccurredAt)
	}
	if first.CCI != float64(want.CCI) {
		t.Errorf("cci: want %v, got %v", float64(want.CCI), first.CCI)
	}
	meta, ok := first.Metadata.(map[string]any)
	if !ok {
		t.Fatalf("metadata: want map, got %T", first.Metadata)
	}
	if meta["red"] != want.ZoneThresholds.Red || meta["yellow"] != want.ZoneThresholds.Yellow {
		t.Errorf("metadata thresholds mismatch: %v vs %+v", meta, want.ZoneThresholds)
	}
	if first.EventID == "" {
		t.Errorf("event id must be set")
	}
}

func TestScoringService_ScoreBatch_AppendFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	rows := degradationSeries("tower-17", 200, 100)
	holder := fittedHolder(t, rows)
	repo := &scoringAlertRepoStub{appendErr: errors.New("db down")}
	svc := NewScoringService(holder, repo, nil)

	scored, err := svc.ScoreBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("ScoreBatch must not fail on alert persistence: %v", err)
	}
	if len(scored) != len(rows) {
		t.Fatalf("scored rows: want %d, got %d", len(rows), len(scored))
	}
}

func TestScoringService_ScoreBatch_Unfitted(t *testing.T) {
	t.Parallel()

	p, err := pipeline.New(pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	svc := NewScoringService(&pipelineHolder{p: p}, &scoringAlertRepoStub{}, nil)

	if _, err := svc.ScoreBatch(context.Background(), degradationSeries("c", 10, 0)); !errors.Is(err, pipeline.ErrNotFitted) {
		t.Fatalf("want ErrNotFitted, got %v", err)
	}
}
