// Package risk computes live portfolio risk metrics from recorded portfolio
// value history.
package risk

import (
	"context"
	"fmt"
	"log/slog"

	"quantdesk/internal/domain"
	"quantdesk/internal/metrics"
	"quantdesk/internal/store"
)

// DefaultHistoryWindow is how many recent portfolio snapshots feed the risk
// calculation when the caller does not configure one.
const DefaultHistoryWindow = 30

// Service computes on-demand risk metrics over a user's recent portfolio
// history. Nothing is persisted; every call reads fresh history.
type Service struct {
	portfolio    store.PortfolioStore
	window       int
	riskFreeRate float64
	log          *slog.Logger
}

// NewService wires a risk service. A window of zero or less falls back to
// DefaultHistoryWindow.
func NewService(portfolio store.PortfolioStore, window int, riskFreeRate float64, log *slog.Logger) *Service {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		portfolio:    portfolio,
		window:       window,
		riskFreeRate: riskFreeRate,
		log:          log,
	}
}

// PortfolioRiskMetrics returns the current risk profile for userID. An empty
// history yields the zero-valued metrics rather than an error.
func (s *Service) PortfolioRiskMetrics(ctx context.Context, userID string) (domain.PortfolioRiskMetrics, error) {
	history, err := s.portfolio.GetPortfolioHistory(ctx, userID, s.window)
	if err != nil {
		return domain.PortfolioRiskMetrics{}, fmt.Errorf("loading portfolio history: %w", err)
	}

	m := metrics.ComputePortfolioRiskMetrics(history, s.riskFreeRate)
	s.log.Debug("risk metrics computed", "user_id", userID, "history_points", len(history))
	return m, nil
}

// RecordValue appends one portfolio value snapshot for userID.
func (s *Service) RecordValue(ctx context.Context, v domain.PortfolioValue) error {
	return s.portfolio.RecordPortfolioValue(ctx, v)
}

// History returns the most recent limit snapshots in chronological order. A
// limit of zero or less uses the configured window.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.PortfolioValue, error) {
	if limit <= 0 {
		limit = s.window
	}
	return s.portfolio.GetPortfolioHistory(ctx, userID, limit)
}
