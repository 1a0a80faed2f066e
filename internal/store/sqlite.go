package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"quantdesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ StrategyStore = (*SQLiteStore)(nil)
var _ BacktestStore = (*SQLiteStore)(nil)
var _ PortfolioStore = (*SQLiteStore)(nil)

// SQLiteStore implements StrategyStore, BacktestStore, and PortfolioStore
// backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS strategies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	symbols     TEXT NOT NULL DEFAULT '[]',
	params      TEXT NOT NULL DEFAULT '{}',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backtests (
	id               TEXT PRIMARY KEY,
	strategy_id      TEXT NOT NULL,
	user_id          TEXT NOT NULL DEFAULT '',
	initial_capital  REAL NOT NULL,
	final_value      REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	sharpe_ratio     REAL,
	total_trades     INTEGER NOT NULL,
	winning_trades   INTEGER NOT NULL,
	losing_trades    INTEGER NOT NULL,
	profit_factor    REAL NOT NULL,
	detail           TEXT NOT NULL DEFAULT '{}',
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtests_user ON backtests(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_backtests_strategy ON backtests(strategy_id, created_at);

CREATE TABLE IF NOT EXISTS portfolio_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     TEXT NOT NULL,
	value       REAL NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_portfolio_user ON portfolio_history(user_id, recorded_at);
`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// StrategyStore implementation
// ---------------------------------------------------------------------------

// SaveStrategy inserts or replaces a strategy definition.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, strat *domain.Strategy) error {
	symbols, err := json.Marshal(strat.Symbols)
	if err != nil {
		return fmt.Errorf("encoding symbols: %w", err)
	}
	params, err := json.Marshal(strat.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	if strat.CreatedAt.IsZero() {
		strat.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO strategies (id, name, description, symbols, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		strat.ID, strat.Name, strat.Description, string(symbols), string(params), strat.CreatedAt.UnixMilli())
	return err
}

// GetStrategy retrieves a strategy by ID.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*domain.Strategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, symbols, params, created_at
		FROM strategies WHERE id = ?`, id)
	return scanStrategy(row)
}

// ListStrategies returns all strategies ordered by creation time.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, symbols, params, created_at
		FROM strategies ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strategies []domain.Strategy
	for rows.Next() {
		strat, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *strat)
	}
	return strategies, rows.Err()
}

// DeleteStrategy removes a strategy by ID.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStrategyNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var (
		strat     domain.Strategy
		symbols   string
		params    string
		createdAt int64
	)
	err := row.Scan(&strat.ID, &strat.Name, &strat.Description, &symbols, &params, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(symbols), &strat.Symbols); err != nil {
		return nil, fmt.Errorf("decoding symbols: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &strat.Params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}
	strat.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &strat, nil
}

// ---------------------------------------------------------------------------
// BacktestStore implementation
// ---------------------------------------------------------------------------

// backtestDetail is the JSON shape of the raw detail blob column.
type backtestDetail struct {
	DailyValues []domain.DailyValue     `json:"daily_values"`
	Trades      []domain.SimulatedTrade `json:"trades"`
}

// CreateBacktest inserts a completed backtest result with its detail blob.
func (s *SQLiteStore) CreateBacktest(ctx context.Context, result *domain.BacktestResult) error {
	detail, err := json.Marshal(backtestDetail{
		DailyValues: result.DailyValues,
		Trades:      result.Trades,
	})
	if err != nil {
		return fmt.Errorf("encoding detail: %w", err)
	}

	sharpe := sql.NullFloat64{}
	if result.SharpeRatio != nil {
		sharpe = sql.NullFloat64{Float64: *result.SharpeRatio, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtests (
			id, strategy_id, user_id, initial_capital, final_value,
			total_return_pct, max_drawdown_pct, sharpe_ratio,
			total_trades, winning_trades, losing_trades, profit_factor,
			detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.StrategyID, result.UserID,
		result.InitialCapital, result.FinalValue,
		result.TotalReturnPct, result.MaxDrawdownPct, sharpe,
		result.TotalTrades, result.WinningTrades, result.LosingTrades, result.ProfitFactor,
		string(detail), result.CreatedAt.UnixMilli())
	return err
}

// GetBacktest retrieves a result by ID, including the detail blob.
func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*domain.BacktestResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy_id, user_id, initial_capital, final_value,
		       total_return_pct, max_drawdown_pct, sharpe_ratio,
		       total_trades, winning_trades, losing_trades, profit_factor,
		       detail, created_at
		FROM backtests WHERE id = ?`, id)

	result, detail, err := scanBacktest(row)
	if err != nil {
		return nil, err
	}

	var d backtestDetail
	if err := json.Unmarshal([]byte(detail), &d); err != nil {
		return nil, fmt.Errorf("decoding detail: %w", err)
	}
	result.DailyValues = d.DailyValues
	result.Trades = d.Trades
	return result, nil
}

// ListBacktests returns summary rows for a user, most recent first. The
// detail blob is not loaded.
func (s *SQLiteStore) ListBacktests(ctx context.Context, userID, strategyID string, limit int) ([]domain.BacktestResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy_id, user_id, initial_capital, final_value,
		       total_return_pct, max_drawdown_pct, sharpe_ratio,
		       total_trades, winning_trades, losing_trades, profit_factor,
		       '{}', created_at
		FROM backtests WHERE user_id = ?`
	args := []any{userID}
	if strategyID != "" {
		query += ` AND strategy_id = ?`
		args = append(args, strategyID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.BacktestResult
	for rows.Next() {
		result, _, err := scanBacktest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, rows.Err()
}

func scanBacktest(row rowScanner) (*domain.BacktestResult, string, error) {
	var (
		result    domain.BacktestResult
		sharpe    sql.NullFloat64
		detail    string
		createdAt int64
	)
	err := row.Scan(
		&result.ID, &result.StrategyID, &result.UserID,
		&result.InitialCapital, &result.FinalValue,
		&result.TotalReturnPct, &result.MaxDrawdownPct, &sharpe,
		&result.TotalTrades, &result.WinningTrades, &result.LosingTrades, &result.ProfitFactor,
		&detail, &createdAt)
	if err == sql.ErrNoRows {
		return nil, "", ErrBacktestNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if sharpe.Valid {
		v := sharpe.Float64
		result.SharpeRatio = &v
	}
	result.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &result, detail, nil
}

// ---------------------------------------------------------------------------
// PortfolioStore implementation
// ---------------------------------------------------------------------------

// RecordPortfolioValue appends one portfolio value snapshot.
func (s *SQLiteStore) RecordPortfolioValue(ctx context.Context, v domain.PortfolioValue) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_history (user_id, value, recorded_at)
		VALUES (?, ?, ?)`,
		v.UserID, v.Value, v.Timestamp.UnixMilli())
	return err
}

// GetPortfolioHistory returns the most recent limit snapshots in
// chronological order.
func (s *SQLiteStore) GetPortfolioHistory(ctx context.Context, userID string, limit int) ([]domain.PortfolioValue, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, value, recorded_at
		FROM portfolio_history
		WHERE user_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.PortfolioValue
	for rows.Next() {
		var (
			v          domain.PortfolioValue
			recordedAt int64
		)
		if err := rows.Scan(&v.UserID, &v.Value, &recordedAt); err != nil {
			return nil, err
		}
		v.Timestamp = time.UnixMilli(recordedAt).UTC()
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came back newest-first; reverse to chronological.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}
