// Package backtest runs probabilistic trading simulations: a day-by-day walk
// over an inclusive date range where each day may emit at most one randomized
// trade whose profit or loss moves the portfolio value.
package backtest

import (
	"math/rand/v2"
	"time"

	"quantdesk/internal/domain"
)

// Simulation knobs. One potential trade per day, small position sizes, and a
// bounded per-trade PnL keep single runs readable on the dashboard.
const (
	tradeProbability = 0.10
	maxQuantity      = 10
	maxTradePnL      = 500.0
)

// Rand is the randomness the engine consumes. Satisfied by *rand.Rand from
// math/rand/v2; tests substitute a scripted sequence.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// PriceSource supplies per-symbol prices for simulated fills.
type PriceSource interface {
	PriceFor(symbol string) float64
	Symbols() []string
}

// RunOutput is the raw output of one simulation run, before metrics.
type RunOutput struct {
	DailyValues    []domain.DailyValue
	Trades         []domain.SimulatedTrade
	MaxDrawdownPct float64
}

// Engine walks a date range day by day and produces an equity curve plus the
// trades that shaped it.
type Engine struct {
	prices PriceSource
	rng    Rand
}

// NewEngine creates a simulation engine. A nil rng falls back to a
// time-seeded generator.
func NewEngine(prices PriceSource, rng Rand) *Engine {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>32))
	}
	return &Engine{prices: prices, rng: rng}
}

// Run simulates the request's date range, inclusive of both endpoints. Every
// day appends exactly one DailyValue whether or not a trade fired, so the
// curve length always equals the day count.
func (e *Engine) Run(req domain.BacktestRequest) RunOutput {
	start := midnightUTC(req.Start)
	end := midnightUTC(req.End)

	symbols := e.prices.Symbols()
	value := req.InitialCapital

	var out RunOutput
	peak := value
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if e.rng.Float64() < tradeProbability && len(symbols) > 0 {
			trade := e.drawTrade(day, symbols)
			value += trade.PnL
			out.Trades = append(out.Trades, trade)
		}

		out.DailyValues = append(out.DailyValues, domain.DailyValue{Date: day, Value: value})

		if value > peak {
			peak = value
		}
		if peak > 0 {
			dd := (peak - value) / peak * 100
			if dd > out.MaxDrawdownPct {
				out.MaxDrawdownPct = dd
			}
		}
	}
	return out
}

// drawTrade synthesizes one trade: random symbol, side, and quantity, filled
// at the day's simulated price, with PnL drawn uniformly from
// [-maxTradePnL, +maxTradePnL].
func (e *Engine) drawTrade(day time.Time, symbols []string) domain.SimulatedTrade {
	symbol := symbols[e.rng.IntN(len(symbols))]
	side := domain.SideBuy
	if e.rng.IntN(2) == 1 {
		side = domain.SideSell
	}
	qty := e.rng.IntN(maxQuantity) + 1
	price := e.prices.PriceFor(symbol)
	pnl := (e.rng.Float64()*2 - 1) * maxTradePnL

	return domain.SimulatedTrade{
		Date:     day,
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		PnL:      pnl,
	}
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
