// Package marketdata provides the synthetic price feed used by the
// simulation engine and the mock broker: a fixed per-symbol base price table
// with randomized daily jitter.
package marketdata

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"quantdesk/internal/domain"
)

// dailyJitter bounds the per-quote price movement around the base price.
const dailyJitter = 0.02

// defaultBasePrices is the fixed symbol universe with per-symbol base prices
// in currency units.
var defaultBasePrices = map[string]float64{
	"RELIANCE":  2500,
	"TCS":       3500,
	"HDFCBANK":  1600,
	"INFY":      1400,
	"ICICIBANK": 950,
}

// fallbackBasePrice is used for symbols outside the known universe.
const fallbackBasePrice = 1000.0

// MockPriceSource produces prices around fixed per-symbol bases with ±2%
// randomized daily volatility. Safe for concurrent use.
type MockPriceSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	base map[string]float64
}

// NewMockPriceSource creates a price source over the default symbol
// universe. A nil rng falls back to a time-seeded generator.
func NewMockPriceSource(rng *rand.Rand) *MockPriceSource {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>32))
	}
	return &MockPriceSource{
		rng:  rng,
		base: defaultBasePrices,
	}
}

// PriceFor returns a price for the symbol: the per-symbol base adjusted by a
// uniform draw in [-2%, +2%]. Unknown symbols use a generic base price.
func (s *MockPriceSource) PriceFor(symbol string) float64 {
	base, ok := s.base[symbol]
	if !ok {
		base = fallbackBasePrice
	}

	s.mu.Lock()
	jitter := (s.rng.Float64()*2 - 1) * dailyJitter
	s.mu.Unlock()

	return base * (1 + jitter)
}

// Symbols returns the sorted symbol universe.
func (s *MockPriceSource) Symbols() []string {
	symbols := make([]string, 0, len(s.base))
	for sym := range s.base {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Quote returns a point-in-time quote for the symbol.
func (s *MockPriceSource) Quote(symbol string) domain.Quote {
	return domain.Quote{
		Symbol:    symbol,
		Price:     s.PriceFor(symbol),
		Timestamp: time.Now().UTC(),
	}
}

// Candles synthesizes one daily OHLCV candle per calendar day in
// [start, end] inclusive. Open and close are independent draws around the
// base price; high and low bound them with a little extra range.
func (s *MockPriceSource) Candles(symbol string, start, end time.Time) []domain.Candle {
	start = midnightUTC(start)
	end = midnightUTC(end)
	if end.Before(start) {
		return nil
	}

	var candles []domain.Candle
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		open := s.PriceFor(symbol)
		cls := s.PriceFor(symbol)
		high := open
		if cls > high {
			high = cls
		}
		low := open
		if cls < low {
			low = cls
		}

		s.mu.Lock()
		spread := s.rng.Float64() * dailyJitter / 2
		volume := int64(100000 + s.rng.IntN(900000))
		s.mu.Unlock()

		candles = append(candles, domain.Candle{
			Symbol:    symbol,
			Timestamp: day,
			Open:      open,
			High:      high * (1 + spread),
			Low:       low * (1 - spread),
			Close:     cls,
			Volume:    volume,
		})
	}
	return candles
}

// midnightUTC truncates t to its calendar day in UTC.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
