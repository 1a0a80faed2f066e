package domain

import (
	"testing"
	"time"
)

func TestBacktestRequestValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	valid := BacktestRequest{
		StrategyID:     "momentum_v1",
		Start:          start,
		End:            end,
		InitialCapital: 10000,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() returned error for valid request: %v", err)
	}

	// A single-day range (start == end) is valid.
	oneDay := valid
	oneDay.End = start
	if err := oneDay.Validate(); err != nil {
		t.Errorf("Validate() rejected single-day range: %v", err)
	}

	// End before start is rejected.
	reversed := valid
	reversed.Start = end
	reversed.End = start
	if err := reversed.Validate(); err == nil {
		t.Error("Validate() accepted reversed date range")
	}

	// Capital below the minimum is rejected.
	poor := valid
	poor.InitialCapital = 500
	if err := poor.Validate(); err == nil {
		t.Error("Validate() accepted capital below minimum")
	}

	// Missing strategy is rejected.
	anon := valid
	anon.StrategyID = ""
	if err := anon.Validate(); err == nil {
		t.Error("Validate() accepted empty strategy_id")
	}
}

func TestTypesExist(t *testing.T) {
	// Verify enum constants hold their wire values.
	if SideBuy != "BUY" || SideSell != "SELL" {
		t.Error("Side constants have unexpected values")
	}
	if OrderStatusOpen != "OPEN" || OrderStatusFilled != "FILLED" {
		t.Error("OrderStatus constants have unexpected values")
	}
	if OrderTypeTrailingStop != "TRAILING_STOP" {
		t.Errorf("OrderTypeTrailingStop = %q, want %q", OrderTypeTrailingStop, "TRAILING_STOP")
	}

	// Verify BacktestResult zero value has an absent Sharpe ratio, not zero.
	res := BacktestResult{}
	if res.SharpeRatio != nil {
		t.Error("zero-value BacktestResult should have nil SharpeRatio")
	}

	trade := SimulatedTrade{
		Date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbol:   "RELIANCE",
		Side:     SideBuy,
		Quantity: 5,
		Price:    2480.25,
		PnL:      -120.5,
	}
	if trade.Side != SideBuy || trade.Quantity != 5 {
		t.Errorf("SimulatedTrade fields not preserved: %+v", trade)
	}
}
