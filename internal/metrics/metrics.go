// Package metrics computes performance and risk statistics from portfolio
// value series and trade lists. All functions are pure and deterministic:
// the same inputs always produce the same outputs, and degenerate inputs
// (empty series, zero variance) yield a defined zero or sentinel value
// rather than an error, so dashboard widgets always have a number to render.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"quantdesk/internal/domain"
)

const (
	// TradingDaysPerYear is the annualization factor for daily return series.
	TradingDaysPerYear = 252

	// DefaultRiskFreeRate is the annual risk-free rate used by the live
	// Sharpe ratio when the caller does not supply one.
	DefaultRiskFreeRate = 0.05

	// DefaultVaRConfidence is the confidence level for Value-at-Risk.
	DefaultVaRConfidence = 0.95

	// ProfitFactorCap stands in for an infinite profit factor when a run has
	// gross profit but no gross loss.
	ProfitFactorCap = 999.0
)

// TotalReturn returns the percentage return of final over initial. Returns 0
// when initial is 0 even though callers guarantee a positive initial capital.
func TotalReturn(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}
	return (final - initial) / initial * 100
}

// DailyReturns derives period-over-period returns from a value series:
// (v[i]-v[i-1])/v[i-1] for each consecutive pair. Pairs whose previous value
// is 0 are skipped. Series shorter than two points yield nil.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}
	return returns
}

// MaxDrawdown returns the largest peak-to-trough percentage decline in the
// value series. Empty or monotonically non-decreasing series yield 0.
func MaxDrawdown(values []float64) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// WindowDrawdown reports both the maximum drawdown over a chronologically
// ordered window and the current drawdown (running peak versus the most
// recent value). Empty input yields (0, 0).
func WindowDrawdown(values []float64) (maxDD, currentDD float64) {
	peak := math.Inf(-1)
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
			currentDD = dd
		}
	}
	return maxDD, currentDD
}

// popStdDev is the population standard deviation (divides by n, not n-1).
// The contract here calls for the population form, so gonum's sample-based
// StdDev is not used; the mean still comes from gonum.
func popStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// SharpeRatio computes the backtest-path Sharpe ratio of a daily return
// series: mean over population standard deviation, annualized by √252, with
// the risk-free rate assumed zero. Zero variance yields 0, never NaN.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := popStdDev(returns)
	if std == 0 {
		return 0
	}
	mean := stat.Mean(returns, nil)
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

// BacktestSharpe returns the Sharpe ratio as an explicit optional: nil when
// the return series is too short to define one (fewer than two points),
// otherwise a pointer to the computed value, which may itself be the
// zero-variance guard value 0.
func BacktestSharpe(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	s := SharpeRatio(returns)
	return &s
}

// LiveSharpe computes the live-risk-path Sharpe ratio of a daily return
// series: (annualized mean − riskFreeRate) / annualized volatility. Zero
// volatility yields 0.
func LiveSharpe(returns []float64, riskFreeRate float64) float64 {
	vol := AnnualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	annualizedMean := stat.Mean(returns, nil) * TradingDaysPerYear
	return (annualizedMean - riskFreeRate) / vol
}

// AnnualizedVolatility is the population standard deviation of daily returns
// scaled by √252. Empty input yields 0.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return popStdDev(returns) * math.Sqrt(TradingDaysPerYear)
}

// SplitTrades buckets trades by sign of realized P&L. A trade is winning iff
// its P&L is strictly positive and losing iff strictly negative; flat trades
// count in neither bucket. grossLoss is reported as a positive magnitude.
func SplitTrades(trades []domain.SimulatedTrade) (grossProfit, grossLoss float64, wins, losses int) {
	for _, tr := range trades {
		switch {
		case tr.PnL > 0:
			grossProfit += tr.PnL
			wins++
		case tr.PnL < 0:
			grossLoss += -tr.PnL
			losses++
		}
	}
	return grossProfit, grossLoss, wins, losses
}

// ProfitFactor is gross profit over gross loss. With no losing trades the
// result is the ProfitFactorCap sentinel when there is profit, else 0.
func ProfitFactor(trades []domain.SimulatedTrade) float64 {
	grossProfit, grossLoss, _, _ := SplitTrades(trades)
	if grossLoss == 0 {
		if grossProfit > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	return grossProfit / grossLoss
}

// ValueAtRisk estimates the one-day loss magnitude at the given confidence
// level from a daily return series: the historical return at the
// floor((1−confidence)·n) quantile, reported as an absolute value. Empty
// input yields 0.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return math.Abs(sorted[idx])
}

// pnlOver returns the value change versus k records back, clamped to the
// oldest record when the window is shorter than k.
func pnlOver(values []float64, k int) float64 {
	if len(values) == 0 {
		return 0
	}
	idx := len(values) - 1 - k
	if idx < 0 {
		idx = 0
	}
	return values[len(values)-1] - values[idx]
}

// ComputePortfolioRiskMetrics derives the full live risk summary from a
// chronologically ordered portfolio history window. It is a pure function:
// calling it twice with the same history produces identical output. An empty
// history yields the zero-value metrics.
func ComputePortfolioRiskMetrics(history []domain.PortfolioValue, riskFreeRate float64) domain.PortfolioRiskMetrics {
	if len(history) == 0 {
		return domain.PortfolioRiskMetrics{}
	}

	values := make([]float64, len(history))
	for i, h := range history {
		values[i] = h.Value
	}
	returns := DailyReturns(values)
	maxDD, currentDD := WindowDrawdown(values)

	return domain.PortfolioRiskMetrics{
		TotalValue:           values[len(values)-1],
		DailyPnL:             pnlOver(values, 1),
		WeeklyPnL:            pnlOver(values, 7),
		MonthlyPnL:           pnlOver(values, 30),
		MaxDrawdownPct:       maxDD,
		CurrentDrawdownPct:   currentDD,
		SharpeRatio:          LiveSharpe(returns, riskFreeRate),
		AnnualizedVolatility: AnnualizedVolatility(returns),
		ValueAtRisk95:        ValueAtRisk(returns, DefaultVaRConfidence),
	}
}
