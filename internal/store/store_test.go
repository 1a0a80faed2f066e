package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quantdesk/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "quantdesk.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStrategyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	strat := &domain.Strategy{
		ID:          "momentum-1",
		Name:        "Momentum",
		Description: "Buys recent winners",
		Symbols:     []string{"RELIANCE", "TCS"},
		Params:      map[string]float64{"lookback": 20, "threshold": 0.05},
	}
	if err := s.SaveStrategy(ctx, strat); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}

	got, err := s.GetStrategy(ctx, "momentum-1")
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if got.Name != "Momentum" || got.Description != "Buys recent winners" {
		t.Errorf("GetStrategy = %+v", got)
	}
	if len(got.Symbols) != 2 || got.Symbols[0] != "RELIANCE" {
		t.Errorf("symbols round-trip failed: %v", got.Symbols)
	}
	if got.Params["lookback"] != 20 {
		t.Errorf("params round-trip failed: %v", got.Params)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set on save")
	}

	all, err := s.ListStrategies(ctx)
	if err != nil {
		t.Fatalf("ListStrategies: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListStrategies returned %d, want 1", len(all))
	}

	if err := s.DeleteStrategy(ctx, "momentum-1"); err != nil {
		t.Fatalf("DeleteStrategy: %v", err)
	}
	if _, err := s.GetStrategy(ctx, "momentum-1"); !errors.Is(err, ErrStrategyNotFound) {
		t.Errorf("GetStrategy after delete = %v, want ErrStrategyNotFound", err)
	}
	if err := s.DeleteStrategy(ctx, "momentum-1"); !errors.Is(err, ErrStrategyNotFound) {
		t.Errorf("DeleteStrategy of missing = %v, want ErrStrategyNotFound", err)
	}
}

func TestGetStrategyNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetStrategy(context.Background(), "nope"); !errors.Is(err, ErrStrategyNotFound) {
		t.Errorf("GetStrategy = %v, want ErrStrategyNotFound", err)
	}
}

func TestBacktestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sharpe := 1.42
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result := &domain.BacktestResult{
		ID:             "run-1",
		StrategyID:     "momentum-1",
		UserID:         "alice",
		InitialCapital: 10000,
		FinalValue:     10850,
		TotalReturnPct: 8.5,
		MaxDrawdownPct: 3.2,
		SharpeRatio:    &sharpe,
		TotalTrades:    4,
		WinningTrades:  3,
		LosingTrades:   1,
		ProfitFactor:   3.75,
		DailyValues: []domain.DailyValue{
			{Date: day, Value: 10000},
			{Date: day.AddDate(0, 0, 1), Value: 10850},
		},
		Trades: []domain.SimulatedTrade{
			{Date: day, Symbol: "TCS", Side: domain.SideBuy, Quantity: 5, Price: 3512.5, PnL: 240},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateBacktest(ctx, result); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	got, err := s.GetBacktest(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.FinalValue != 10850 || got.TotalReturnPct != 8.5 {
		t.Errorf("GetBacktest = %+v", got)
	}
	if got.SharpeRatio == nil || *got.SharpeRatio != 1.42 {
		t.Errorf("SharpeRatio = %v, want 1.42", got.SharpeRatio)
	}
	if len(got.DailyValues) != 2 || len(got.Trades) != 1 {
		t.Errorf("detail blob round-trip failed: %d values, %d trades", len(got.DailyValues), len(got.Trades))
	}
	if got.Trades[0].Side != domain.SideBuy || got.Trades[0].PnL != 240 {
		t.Errorf("trade round-trip failed: %+v", got.Trades[0])
	}
}

func TestBacktestNilSharpe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := &domain.BacktestResult{
		ID:             "run-degenerate",
		StrategyID:     "momentum-1",
		UserID:         "alice",
		InitialCapital: 10000,
		FinalValue:     10000,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.CreateBacktest(ctx, result); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	got, err := s.GetBacktest(ctx, "run-degenerate")
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.SharpeRatio != nil {
		t.Errorf("SharpeRatio = %v, want nil", *got.SharpeRatio)
	}
}

func TestGetBacktestNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetBacktest(context.Background(), "missing"); !errors.Is(err, ErrBacktestNotFound) {
		t.Errorf("GetBacktest = %v, want ErrBacktestNotFound", err)
	}
}

func TestListBacktests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		strategy := "s1"
		if id == "run-c" {
			strategy = "s2"
		}
		err := s.CreateBacktest(ctx, &domain.BacktestResult{
			ID:             id,
			StrategyID:     strategy,
			UserID:         "alice",
			InitialCapital: 10000,
			FinalValue:     10000,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateBacktest(%s): %v", id, err)
		}
	}

	results, err := s.ListBacktests(ctx, "alice", "", 10)
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("ListBacktests returned %d, want 3", len(results))
	}
	if results[0].ID != "run-c" || results[2].ID != "run-a" {
		t.Errorf("not most-recent-first: %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
	if results[0].DailyValues != nil || results[0].Trades != nil {
		t.Error("summaries should not carry the detail blob")
	}

	byStrategy, err := s.ListBacktests(ctx, "alice", "s1", 10)
	if err != nil {
		t.Fatalf("ListBacktests(s1): %v", err)
	}
	if len(byStrategy) != 2 {
		t.Errorf("ListBacktests(s1) returned %d, want 2", len(byStrategy))
	}

	limited, err := s.ListBacktests(ctx, "alice", "", 1)
	if err != nil {
		t.Fatalf("ListBacktests(limit=1): %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-c" {
		t.Errorf("ListBacktests(limit=1) = %+v", limited)
	}

	other, err := s.ListBacktests(ctx, "bob", "", 10)
	if err != nil {
		t.Fatalf("ListBacktests(bob): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListBacktests(bob) returned %d, want 0", len(other))
	}
}

func TestPortfolioHistoryWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.RecordPortfolioValue(ctx, domain.PortfolioValue{
			UserID:    "alice",
			Value:     10000 + float64(i)*100,
			Timestamp: base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("RecordPortfolioValue: %v", err)
		}
	}

	history, err := s.GetPortfolioHistory(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("GetPortfolioHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("GetPortfolioHistory returned %d, want 3", len(history))
	}
	// Most recent 3, chronological: 10200, 10300, 10400.
	if history[0].Value != 10200 || history[2].Value != 10400 {
		t.Errorf("window/order wrong: %v, %v, %v", history[0].Value, history[1].Value, history[2].Value)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Errorf("history not chronological at %d", i)
		}
	}

	empty, err := s.GetPortfolioHistory(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("GetPortfolioHistory(bob): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetPortfolioHistory(bob) returned %d, want 0", len(empty))
	}
}

func TestRunDetailRoundTrip(t *testing.T) {
	archive := NewParquetStore(t.TempDir())
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	values := []domain.DailyValue{
		{Date: day, Value: 10000},
		{Date: day.AddDate(0, 0, 1), Value: 10120},
		{Date: day.AddDate(0, 0, 2), Value: 9980},
	}
	trades := []domain.SimulatedTrade{
		{Date: day, Symbol: "INFY", Side: domain.SideSell, Quantity: 3, Price: 1387.2, PnL: -120},
		{Date: day.AddDate(0, 0, 1), Symbol: "TCS", Side: domain.SideBuy, Quantity: 7, Price: 3521.9, PnL: 310.5},
	}

	if err := archive.WriteRunDetail(ctx, "run-xyz", values, trades); err != nil {
		t.Fatalf("WriteRunDetail: %v", err)
	}

	gotValues, gotTrades, err := archive.ReadRunDetail(ctx, "run-xyz")
	if err != nil {
		t.Fatalf("ReadRunDetail: %v", err)
	}
	if len(gotValues) != 3 || len(gotTrades) != 2 {
		t.Fatalf("ReadRunDetail returned %d values, %d trades", len(gotValues), len(gotTrades))
	}
	if !gotValues[0].Date.Equal(day) || gotValues[2].Value != 9980 {
		t.Errorf("equity round-trip failed: %+v", gotValues)
	}
	if gotTrades[0].Side != domain.SideSell || gotTrades[1].PnL != 310.5 {
		t.Errorf("trade round-trip failed: %+v", gotTrades)
	}
}

func TestReadRunDetailMissing(t *testing.T) {
	archive := NewParquetStore(t.TempDir())
	if _, _, err := archive.ReadRunDetail(context.Background(), "no-such-run"); err == nil {
		t.Error("ReadRunDetail of missing run should fail")
	}
}

func TestWriteRunDetailEmptyRun(t *testing.T) {
	archive := NewParquetStore(t.TempDir())
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	values := []domain.DailyValue{{Date: day, Value: 10000}}

	if err := archive.WriteRunDetail(ctx, "run-quiet", values, nil); err != nil {
		t.Fatalf("WriteRunDetail: %v", err)
	}
	gotValues, gotTrades, err := archive.ReadRunDetail(ctx, "run-quiet")
	if err != nil {
		t.Fatalf("ReadRunDetail: %v", err)
	}
	if len(gotValues) != 1 || len(gotTrades) != 0 {
		t.Errorf("ReadRunDetail = %d values, %d trades; want 1, 0", len(gotValues), len(gotTrades))
	}
}
