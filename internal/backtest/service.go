package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quantdesk/internal/domain"
	"quantdesk/internal/metrics"
	"quantdesk/internal/store"
)

// Service validates backtest requests, runs them through the engine, derives
// performance metrics, and persists the result.
type Service struct {
	strategies store.StrategyStore
	backtests  store.BacktestStore
	archive    store.RunArchive
	engine     *Engine
	log        *slog.Logger
}

// NewService wires a backtest service. archive may be nil to skip Parquet
// archiving.
func NewService(strategies store.StrategyStore, backtests store.BacktestStore, archive store.RunArchive, engine *Engine, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		strategies: strategies,
		backtests:  backtests,
		archive:    archive,
		engine:     engine,
		log:        log,
	}
}

// Run executes one backtest for userID and returns the persisted result.
// Validation failures wrap domain.ErrInvalidRequest; an unknown strategy
// surfaces store.ErrStrategyNotFound.
func (s *Service) Run(ctx context.Context, req domain.BacktestRequest, userID string) (*domain.BacktestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strat, err := s.strategies.GetStrategy(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}

	out := s.engine.Run(req)

	finalValue := req.InitialCapital
	if n := len(out.DailyValues); n > 0 {
		finalValue = out.DailyValues[n-1].Value
	}

	values := make([]float64, len(out.DailyValues))
	for i, dv := range out.DailyValues {
		values[i] = dv.Value
	}
	returns := metrics.DailyReturns(values)
	_, _, wins, losses := metrics.SplitTrades(out.Trades)

	result := &domain.BacktestResult{
		ID:             uuid.NewString(),
		StrategyID:     strat.ID,
		UserID:         userID,
		InitialCapital: req.InitialCapital,
		FinalValue:     finalValue,
		TotalReturnPct: metrics.TotalReturn(req.InitialCapital, finalValue),
		MaxDrawdownPct: out.MaxDrawdownPct,
		SharpeRatio:    metrics.BacktestSharpe(returns),
		TotalTrades:    len(out.Trades),
		WinningTrades:  wins,
		LosingTrades:   losses,
		ProfitFactor:   metrics.ProfitFactor(out.Trades),
		DailyValues:    out.DailyValues,
		Trades:         out.Trades,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.backtests.CreateBacktest(ctx, result); err != nil {
		return nil, fmt.Errorf("persisting backtest %s: %w", result.ID, err)
	}

	if s.archive != nil {
		if err := s.archive.WriteRunDetail(ctx, result.ID, out.DailyValues, out.Trades); err != nil {
			// The SQLite row is the source of truth; a failed archive write
			// should not fail the run.
			s.log.Warn("archiving run detail failed", "run_id", result.ID, "error", err)
		}
	}

	s.log.Info("backtest complete",
		"run_id", result.ID,
		"strategy_id", strat.ID,
		"days", len(out.DailyValues),
		"trades", result.TotalTrades,
		"total_return_pct", result.TotalReturnPct)
	return result, nil
}

// Get loads a persisted result by ID, including its equity curve and trades.
func (s *Service) Get(ctx context.Context, id string) (*domain.BacktestResult, error) {
	return s.backtests.GetBacktest(ctx, id)
}

// List returns result summaries for a user, most recent first. An empty
// strategyID matches all strategies.
func (s *Service) List(ctx context.Context, userID, strategyID string, limit int) ([]domain.BacktestResult, error) {
	return s.backtests.ListBacktests(ctx, userID, strategyID, limit)
}
