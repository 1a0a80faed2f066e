package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantdesk/internal/domain"
	"quantdesk/internal/store"
)

// fakeStores is an in-memory StrategyStore + BacktestStore for service tests.
type fakeStores struct {
	strategies map[string]*domain.Strategy
	backtests  map[string]*domain.BacktestResult
	createErr  error
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		strategies: make(map[string]*domain.Strategy),
		backtests:  make(map[string]*domain.BacktestResult),
	}
}

func (f *fakeStores) SaveStrategy(_ context.Context, s *domain.Strategy) error {
	f.strategies[s.ID] = s
	return nil
}

func (f *fakeStores) GetStrategy(_ context.Context, id string) (*domain.Strategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return nil, store.ErrStrategyNotFound
	}
	return s, nil
}

func (f *fakeStores) ListStrategies(_ context.Context) ([]domain.Strategy, error) {
	var all []domain.Strategy
	for _, s := range f.strategies {
		all = append(all, *s)
	}
	return all, nil
}

func (f *fakeStores) DeleteStrategy(_ context.Context, id string) error {
	delete(f.strategies, id)
	return nil
}

func (f *fakeStores) CreateBacktest(_ context.Context, r *domain.BacktestResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.backtests[r.ID] = r
	return nil
}

func (f *fakeStores) GetBacktest(_ context.Context, id string) (*domain.BacktestResult, error) {
	r, ok := f.backtests[id]
	if !ok {
		return nil, store.ErrBacktestNotFound
	}
	return r, nil
}

func (f *fakeStores) ListBacktests(_ context.Context, userID, strategyID string, limit int) ([]domain.BacktestResult, error) {
	var out []domain.BacktestResult
	for _, r := range f.backtests {
		if r.UserID == userID && (strategyID == "" || r.StrategyID == strategyID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeArchive records WriteRunDetail calls and can be made to fail.
type fakeArchive struct {
	writes   int
	writeErr error
}

func (a *fakeArchive) WriteRunDetail(context.Context, string, []domain.DailyValue, []domain.SimulatedTrade) error {
	a.writes++
	return a.writeErr
}

func (a *fakeArchive) ReadRunDetail(context.Context, string) ([]domain.DailyValue, []domain.SimulatedTrade, error) {
	return nil, nil, errors.New("not implemented")
}

func newTestService(t *testing.T, stores *fakeStores, archive store.RunArchive, rng Rand) *Service {
	t.Helper()
	engine := NewEngine(fixedPrices{symbols: []string{"TCS", "INFY"}, price: 3500}, rng)
	return NewService(stores, stores, archive, engine, nil)
}

func TestServiceRunHappyPath(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1", Name: "Momentum"}
	archive := &fakeArchive{}
	svc := newTestService(t, stores, archive, &scriptedRand{}) // no trades

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), request(start, start.AddDate(0, 0, 9), 10000), "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ID == "" {
		t.Error("result ID not assigned")
	}
	if result.UserID != "alice" || result.StrategyID != "s1" {
		t.Errorf("result identity = %s/%s", result.UserID, result.StrategyID)
	}
	if len(result.DailyValues) != 10 {
		t.Errorf("DailyValues has %d points, want 10", len(result.DailyValues))
	}
	// No trades: flat curve, zero return, present-but-zero Sharpe.
	if result.FinalValue != 10000 || result.TotalReturnPct != 0 {
		t.Errorf("final=%v return=%v, want 10000 / 0", result.FinalValue, result.TotalReturnPct)
	}
	if result.SharpeRatio == nil || *result.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want present zero", result.SharpeRatio)
	}
	if result.TotalTrades != 0 || result.ProfitFactor != 0 {
		t.Errorf("trades=%d pf=%v, want 0 / 0", result.TotalTrades, result.ProfitFactor)
	}
	if _, ok := stores.backtests[result.ID]; !ok {
		t.Error("result not persisted")
	}
	if archive.writes != 1 {
		t.Errorf("archive writes = %d, want 1", archive.writes)
	}
}

func TestServiceRunSingleDay(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1"}
	svc := newTestService(t, stores, nil, &scriptedRand{})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), request(day, day, 10000), "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.DailyValues) != 1 {
		t.Errorf("DailyValues has %d points, want 1", len(result.DailyValues))
	}
	// One value point means no computable return series.
	if result.SharpeRatio != nil {
		t.Errorf("SharpeRatio = %v, want nil for single-point curve", *result.SharpeRatio)
	}
}

func TestServiceRunValidation(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1"}
	svc := newTestService(t, stores, nil, &scriptedRand{})

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.Run(context.Background(), request(start, start.AddDate(0, 0, -1), 10000), "alice")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("reversed range: err = %v, want ErrInvalidRequest", err)
	}

	_, err = svc.Run(context.Background(), request(start, start, 500), "alice")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("low capital: err = %v, want ErrInvalidRequest", err)
	}
}

func TestServiceRunUnknownStrategy(t *testing.T) {
	svc := newTestService(t, newFakeStores(), nil, &scriptedRand{})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Run(context.Background(), request(day, day, 10000), "alice")
	if !errors.Is(err, store.ErrStrategyNotFound) {
		t.Errorf("err = %v, want ErrStrategyNotFound", err)
	}
}

func TestServiceRunArchiveFailureIsNotFatal(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1"}
	archive := &fakeArchive{writeErr: errors.New("disk full")}
	svc := newTestService(t, stores, archive, &scriptedRand{})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), request(day, day, 10000), "alice")
	if err != nil {
		t.Fatalf("Run should survive archive failure: %v", err)
	}
	if _, ok := stores.backtests[result.ID]; !ok {
		t.Error("result not persisted despite archive failure")
	}
}

func TestServiceRunPersistFailure(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1"}
	stores.createErr = errors.New("locked")
	svc := newTestService(t, stores, nil, &scriptedRand{})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), request(day, day, 10000), "alice"); err == nil {
		t.Error("Run should fail when the store rejects the write")
	}
}

func TestServiceRunWithTrades(t *testing.T) {
	stores := newFakeStores()
	stores.strategies["s1"] = &domain.Strategy{ID: "s1"}
	// Two days, one winning trade on day one.
	rng := &scriptedRand{
		floats: []float64{0.05, 0.8, 0.99}, // trade +300, then no trade
		ints:   []int{0, 0, 2},
	}
	svc := newTestService(t, stores, nil, rng)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), request(start, start.AddDate(0, 0, 1), 10000), "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalTrades != 1 || result.WinningTrades != 1 || result.LosingTrades != 0 {
		t.Errorf("trade counts = %d/%d/%d", result.TotalTrades, result.WinningTrades, result.LosingTrades)
	}
	// (0.8*2-1)*500 = +300 on a 10000 base.
	if got, want := result.TotalReturnPct, 3.0; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("TotalReturnPct = %v, want %v", got, want)
	}
	if got := result.ProfitFactor; got != 999 {
		t.Errorf("ProfitFactor = %v, want 999 (profit with no losses)", got)
	}
}
