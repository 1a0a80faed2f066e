// Package domain defines the core value objects shared across the quantdesk
// platform: strategies, backtest requests and results, simulated trades,
// portfolio history, risk metrics, and broker orders.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Side identifies the direction of a trade or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType identifies how an order is executed by the broker.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeBracket      OrderType = "BRACKET"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
	OrderTypeIceberg      OrderType = "ICEBERG"
	OrderTypeTimeBased    OrderType = "TIME_BASED"
)

// OrderStatus tracks the lifecycle of a broker order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// ---------------------------------------------------------------------------
// Strategies and backtests
// ---------------------------------------------------------------------------

// Strategy is a user-authored trading strategy definition. Only its identity
// matters to the simulation engine; the parameters are free-form knobs shown
// on the dashboard.
type Strategy struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Symbols     []string           `json:"symbols"`
	Params      map[string]float64 `json:"params"`
	CreatedAt   time.Time          `json:"created_at"`
}

// MinInitialCapital is the smallest initial capital accepted for a backtest.
const MinInitialCapital = 1000.0

// BacktestRequest describes a single backtest run over an inclusive date
// range.
type BacktestRequest struct {
	StrategyID     string    `json:"strategy_id"`
	Start          time.Time `json:"start_date"`
	End            time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
}

// ErrInvalidRequest wraps all backtest request validation failures.
var ErrInvalidRequest = errors.New("invalid backtest request")

// Validate checks the request invariants: the end date must not precede the
// start date (a single-day range, start == end, is allowed) and the initial
// capital must meet the minimum.
func (r BacktestRequest) Validate() error {
	if r.StrategyID == "" {
		return fmt.Errorf("%w: strategy_id is required", ErrInvalidRequest)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidRequest)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end_date %s precedes start_date %s",
			ErrInvalidRequest, r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	if r.InitialCapital < MinInitialCapital {
		return fmt.Errorf("%w: initial_capital %.2f below minimum %.2f",
			ErrInvalidRequest, r.InitialCapital, MinInitialCapital)
	}
	return nil
}

// SimulatedTrade is a single synthetic trade emitted during a simulation run.
// Immutable once created.
type SimulatedTrade struct {
	Date     time.Time `json:"date"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	PnL      float64   `json:"pnl"`
}

// DailyValue is one point on a portfolio equity curve.
type DailyValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestResult is the persisted aggregate produced by one backtest run.
// Created once and read-only thereafter.
//
// SharpeRatio is a pointer so a degenerate return series (fewer than two
// points) is recorded as absent rather than conflated with a computed zero.
type BacktestResult struct {
	ID             string           `json:"id"`
	StrategyID     string           `json:"strategy_id"`
	UserID         string           `json:"user_id"`
	InitialCapital float64          `json:"initial_capital"`
	FinalValue     float64          `json:"final_value"`
	TotalReturnPct float64          `json:"total_return_pct"`
	MaxDrawdownPct float64          `json:"max_drawdown_pct"`
	SharpeRatio    *float64         `json:"sharpe_ratio"`
	TotalTrades    int              `json:"total_trades"`
	WinningTrades  int              `json:"winning_trades"`
	LosingTrades   int              `json:"losing_trades"`
	ProfitFactor   float64          `json:"profit_factor"`
	DailyValues    []DailyValue     `json:"daily_values,omitempty"`
	Trades         []SimulatedTrade `json:"trades,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Portfolio and risk
// ---------------------------------------------------------------------------

// PortfolioValue is one recorded snapshot of a user's total portfolio value.
type PortfolioValue struct {
	UserID    string    `json:"user_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// PortfolioRiskMetrics summarises the risk profile of a portfolio over a
// recent history window. Computed fresh on every request, never persisted.
type PortfolioRiskMetrics struct {
	TotalValue           float64 `json:"total_value"`
	DailyPnL             float64 `json:"daily_pnl"`
	WeeklyPnL            float64 `json:"weekly_pnl"`
	MonthlyPnL           float64 `json:"monthly_pnl"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	CurrentDrawdownPct   float64 `json:"current_drawdown_pct"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	ValueAtRisk95        float64 `json:"value_at_risk_95"`
}

// ---------------------------------------------------------------------------
// Broker surface
// ---------------------------------------------------------------------------

// Order is a broker order as seen by the dashboard. Advanced types (bracket,
// trailing stop, iceberg, time-based) carry their extra parameters in the
// optional fields.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Type        OrderType   `json:"type"`
	Qty         int         `json:"qty"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	StopLoss    float64     `json:"stop_loss,omitempty"`
	Target      float64     `json:"target,omitempty"`
	TrailPct    float64     `json:"trail_pct,omitempty"`
	DisplayQty  int         `json:"display_qty,omitempty"`
	TriggerAt   *time.Time  `json:"trigger_at,omitempty"`
	Status      OrderStatus `json:"status"`
	FilledPrice float64     `json:"filled_price,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Candle is a single OHLCV bar of historical market data.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}
