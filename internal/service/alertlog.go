package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"linewatch/internal/models"
	"linewatch/internal/repository"
)

type AlertLogService struct {
	alerts repository.AlertRepo
}

func NewAlertLogService(alerts repository.AlertRepo) *AlertLogService {
	return &AlertLogService{alerts: alerts}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f AlertFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	return from, to, strings.TrimSpace(f.ComponentID), nil
}

func (s *AlertLogService) List(ctx context.Context, f AlertFilter) ([]models.AlertEvent, error) {
	from, to, componentID, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.alerts.List(ctx, from, to, componentID)
}
