package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"quantdesk/internal/domain"
)

// Compile-time interface check.
var _ RunArchive = (*ParquetStore)(nil)

// ParquetStore implements RunArchive using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// EquityRecord is the Parquet schema for one point of a run's equity curve.
type EquityRecord struct {
	Date  int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Value float64 `parquet:"value"`
}

// RunTradeRecord is the Parquet schema for one simulated trade of a run.
type RunTradeRecord struct {
	Date     int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Symbol   string  `parquet:"symbol"`
	Side     string  `parquet:"side"`
	Quantity int64   `parquet:"quantity"`
	Price    float64 `parquet:"price"`
	Pnl      float64 `parquet:"pnl"`
}

// ---------------------------------------------------------------------------
// RunArchive implementation
// ---------------------------------------------------------------------------

// WriteRunDetail archives the equity curve and trade list for a run. Each run
// gets its own directory:
//
//	<DataDir>/backtests/<runID>/equity.parquet
//	<DataDir>/backtests/<runID>/trades.parquet
func (s *ParquetStore) WriteRunDetail(_ context.Context, runID string, values []domain.DailyValue, trades []domain.SimulatedTrade) error {
	equity := make([]EquityRecord, 0, len(values))
	for _, v := range values {
		equity = append(equity, EquityRecord{
			Date:  v.Date.UnixMilli(),
			Value: v.Value,
		})
	}
	if err := writeParquetFile(s.equityPath(runID), equity); err != nil {
		return fmt.Errorf("writing equity curve for run %s: %w", runID, err)
	}

	records := make([]RunTradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, RunTradeRecord{
			Date:     t.Date.UnixMilli(),
			Symbol:   t.Symbol,
			Side:     string(t.Side),
			Quantity: int64(t.Quantity),
			Price:    t.Price,
			Pnl:      t.PnL,
		})
	}
	if err := writeParquetFile(s.tradesPath(runID), records); err != nil {
		return fmt.Errorf("writing trades for run %s: %w", runID, err)
	}
	return nil
}

// ReadRunDetail loads the archived equity curve and trade list for a run.
func (s *ParquetStore) ReadRunDetail(_ context.Context, runID string) ([]domain.DailyValue, []domain.SimulatedTrade, error) {
	equity, err := readParquetFile[EquityRecord](s.equityPath(runID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading equity curve for run %s: %w", runID, err)
	}
	records, err := readParquetFile[RunTradeRecord](s.tradesPath(runID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading trades for run %s: %w", runID, err)
	}

	values := make([]domain.DailyValue, 0, len(equity))
	for _, r := range equity {
		values = append(values, domain.DailyValue{
			Date:  time.UnixMilli(r.Date).UTC(),
			Value: r.Value,
		})
	}

	var trades []domain.SimulatedTrade
	for _, r := range records {
		trades = append(trades, domain.SimulatedTrade{
			Date:     time.UnixMilli(r.Date).UTC(),
			Symbol:   r.Symbol,
			Side:     domain.Side(r.Side),
			Quantity: int(r.Quantity),
			Price:    r.Price,
			PnL:      r.Pnl,
		})
	}
	return values, trades, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

func (s *ParquetStore) equityPath(runID string) string {
	return filepath.Join(s.DataDir, "backtests", runID, "equity.parquet")
}

func (s *ParquetStore) tradesPath(runID string) string {
	return filepath.Join(s.DataDir, "backtests", runID, "trades.parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
