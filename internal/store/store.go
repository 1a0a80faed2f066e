// Package store defines storage interfaces for persisting and retrieving
// strategies, backtest results, and portfolio value history, plus the
// Parquet archive for full run detail.
package store

import (
	"context"
	"errors"

	"quantdesk/internal/domain"
)

// Sentinel errors surfaced to callers as not-found conditions.
var (
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrBacktestNotFound = errors.New("backtest not found")
)

// StrategyStore persists and retrieves strategy definitions.
type StrategyStore interface {
	// SaveStrategy inserts or replaces a strategy definition.
	SaveStrategy(ctx context.Context, s *domain.Strategy) error

	// GetStrategy retrieves a strategy by ID. Returns ErrStrategyNotFound if
	// no such strategy exists.
	GetStrategy(ctx context.Context, id string) (*domain.Strategy, error)

	// ListStrategies returns all strategies ordered by creation time.
	ListStrategies(ctx context.Context) ([]domain.Strategy, error)

	// DeleteStrategy removes a strategy by ID.
	DeleteStrategy(ctx context.Context, id string) error
}

// BacktestStore persists and retrieves backtest results. Results are
// write-once: there is no update operation.
type BacktestStore interface {
	// CreateBacktest inserts a completed backtest result.
	CreateBacktest(ctx context.Context, result *domain.BacktestResult) error

	// GetBacktest retrieves a result by ID, including its detail blob.
	// Returns ErrBacktestNotFound if no such result exists.
	GetBacktest(ctx context.Context, id string) (*domain.BacktestResult, error)

	// ListBacktests returns summary rows (no detail blob) for a user, most
	// recent first, up to limit. An empty strategyID matches all strategies.
	ListBacktests(ctx context.Context, userID, strategyID string, limit int) ([]domain.BacktestResult, error)
}

// PortfolioStore persists and retrieves portfolio value history.
type PortfolioStore interface {
	// RecordPortfolioValue appends one portfolio value snapshot.
	RecordPortfolioValue(ctx context.Context, v domain.PortfolioValue) error

	// GetPortfolioHistory returns the most recent limit snapshots for a
	// user in chronological (oldest-first) order.
	GetPortfolioHistory(ctx context.Context, userID string, limit int) ([]domain.PortfolioValue, error)
}

// RunArchive persists the full daily-value and trade detail of a backtest
// run for later inspection.
type RunArchive interface {
	// WriteRunDetail archives the equity curve and trade list for a run.
	WriteRunDetail(ctx context.Context, runID string, values []domain.DailyValue, trades []domain.SimulatedTrade) error

	// ReadRunDetail loads the archived equity curve and trade list.
	ReadRunDetail(ctx context.Context, runID string) ([]domain.DailyValue, []domain.SimulatedTrade, error)
}
