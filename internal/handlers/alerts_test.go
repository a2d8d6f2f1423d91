package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linewatch/internal/models"
	"linewatch/internal/service"
)

func TestGetAlertsHandler(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	t.Run("lists with parsed filters", func(t *testing.T) {
		log := &mockAlertLog{resp: []models.AlertEvent{
			{EventID: "a1", OccurredAt: now, ComponentID: "tower-17", Zone: models.ZoneRed, CCI: 0.9},
			{EventID: "a2", OccurredAt: now.Add(time.Hour), ComponentID: "tower-17", Zone: models.ZoneRed, CCI: 0.95},
		}}
		r := newTestRouter(&service.Service{AlertLog: log})

		w := httptest.NewRecorder()
		url := "/api/v1/alerts?from=" + now.Format(time.RFC3339) +
			"&to=" + now.Add(2*time.Hour).Format(time.RFC3339) +
			"&component_id=tower-17"
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
		}

		var out struct {
			Count  int                 `json:"count"`
			Alerts []models.AlertEvent `json:"alerts"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out.Count != 2 || len(out.Alerts) != 2 {
			t.Fatalf("unexpected response: %+v", out)
		}
		if !log.lastFrom.Equal(now) || log.lastComponent != "tower-17" {
			t.Fatalf("filter not passed through: from=%v component=%q", log.lastFrom, log.lastComponent)
		}
	})

	t.Run("date-only to is end-of-day inclusive", func(t *testing.T) {
		log := &mockAlertLog{}
		r := newTestRouter(&service.Service{AlertLog: log})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?to=2026-07-01", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
		}
		wantTo := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
		if !log.lastTo.Equal(wantTo) {
			t.Fatalf("to: want %v, got %v", wantTo, log.lastTo)
		}
	})

	t.Run("invalid from rejected", func(t *testing.T) {
		r := newTestRouter(&service.Service{AlertLog: &mockAlertLog{}})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?from=notatime", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		r := newTestRouter(&service.Service{AlertLog: &mockAlertLog{}})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/alerts?from=2026-07-02&to=2026-07-01", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("service error maps to 500", func(t *testing.T) {
		r := newTestRouter(&service.Service{AlertLog: &mockAlertLog{err: errors.New("db down")}})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}
