package service

import (
	"context"
	"errors"

	"linewatch/internal/pipeline"
)

type BacktestService struct {
	holder *pipelineHolder
}

func NewBacktestService(holder *pipelineHolder) *BacktestService {
	return &BacktestService{holder: holder}
}

// Run scores the supplied history with the active pipeline and reports how
// much red-zone lead time preceded the event instant.
func (s *BacktestService) Run(ctx context.Context, p BacktestParams) (pipeline.BacktestResult, error) {
	if p.EventAt.IsZero() {
		return pipeline.BacktestResult{}, errors.New("backtest: event instant is required")
	}
	return pipeline.Backtest(s.holder.get(), p.Readings, p.EventAt.UTC(), p.ComponentID)
}
