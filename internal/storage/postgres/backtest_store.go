package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// BacktestStore implements storage.BacktestStore using PostgreSQL.
// A run and its trades are written atomically in one transaction.
type BacktestStore struct {
	pool *Pool
}

// NewBacktestStore creates a new BacktestStore.
func NewBacktestStore(pool *Pool) *BacktestStore {
	return &BacktestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestStore = (*BacktestStore)(nil)

// Insert adds a run with its trades. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO backtest_runs (
			run_id, symbol, timeframe, start_ms, end_ms, policy_id,
			total_trades, winners, losers, win_rate,
			profit_factor, avg_r, max_drawdown_r, return_ratio,
			median_r, p10_r, p25_r, p75_r, p90_r, stddev_r,
			max_consecutive_losses, equity_drawdown_r
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22
		)
	`

	st := r.Stats
	_, err = tx.Exec(ctx, runQuery,
		r.RunID, r.Symbol, string(r.Timeframe), r.StartMs, r.EndMs, r.PolicyID,
		st.TotalTrades, st.Winners, st.Losers, st.WinRate,
		st.ProfitFactor, st.AvgR, st.MaxDrawdownR, st.ReturnRatio,
		st.MedianR, st.P10R, st.P25R, st.P75R, st.P90R, st.StddevR,
		st.MaxConsecutiveLosses, st.EquityDrawdownR,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}

	tradeQuery := `
		INSERT INTO backtest_trades (
			run_id, trade_seq, side,
			entry_price, entry_time_ms, entry_index,
			stop_price, target_price,
			exit_price, exit_time_ms, exit_index, exit_reason,
			r_multiple, mae, mfe
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		)
	`

	for seq, tr := range r.Trades {
		_, err := tx.Exec(ctx, tradeQuery,
			r.RunID, seq, string(tr.Side),
			tr.EntryPrice, tr.EntryTimeMs, tr.EntryIndex,
			tr.Stop, tr.Target,
			tr.ExitPrice, tr.ExitTimeMs, tr.ExitIndex, tr.ExitReason,
			tr.RMultiple, tr.MAE, tr.MFE,
		)
		if err != nil {
			return fmt.Errorf("insert backtest trade %d: %w", seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a run with its trades. Returns ErrNotFound if not exists.
func (s *BacktestStore) GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	query := runSelect + ` WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}

	r.Trades, err = s.getTrades(ctx, runID)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// GetBySymbol retrieves all runs for a symbol with their trades.
func (s *BacktestStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestResult, error) {
	query := runSelect + ` WHERE symbol = $1 ORDER BY start_ms ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by symbol: %w", err)
	}
	defer rows.Close()

	return s.collectRuns(ctx, rows)
}

// GetAll retrieves all runs with their trades.
func (s *BacktestStore) GetAll(ctx context.Context) ([]*domain.BacktestResult, error) {
	query := runSelect + ` ORDER BY start_ms ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	return s.collectRuns(ctx, rows)
}

const runSelect = `
	SELECT
		run_id, symbol, timeframe, start_ms, end_ms, policy_id,
		total_trades, winners, losers, win_rate,
		profit_factor, avg_r, max_drawdown_r, return_ratio,
		median_r, p10_r, p25_r, p75_r, p90_r, stddev_r,
		max_consecutive_losses, equity_drawdown_r
	FROM backtest_runs
`

func (s *BacktestStore) collectRuns(ctx context.Context, rows pgx.Rows) ([]*domain.BacktestResult, error) {
	var runs []*domain.BacktestResult
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}
	rows.Close()

	for _, r := range runs {
		trades, err := s.getTrades(ctx, r.RunID)
		if err != nil {
			return nil, err
		}
		r.Trades = trades
	}

	return runs, nil
}

func (s *BacktestStore) getTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	query := `
		SELECT
			side, entry_price, entry_time_ms, entry_index,
			stop_price, target_price,
			exit_price, exit_time_ms, exit_index, exit_reason,
			r_multiple, mae, mfe
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY trade_seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get backtest trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			tr   domain.Trade
			side string
		)
		err := rows.Scan(
			&side, &tr.EntryPrice, &tr.EntryTimeMs, &tr.EntryIndex,
			&tr.Stop, &tr.Target,
			&tr.ExitPrice, &tr.ExitTimeMs, &tr.ExitIndex, &tr.ExitReason,
			&tr.RMultiple, &tr.MAE, &tr.MFE,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest trade row: %w", err)
		}
		tr.Side = domain.Side(side)
		trades = append(trades, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest trade rows: %w", err)
	}

	return trades, nil
}

// scanRun scans a single row into a BacktestResult without trades.
func scanRun(row pgx.Row) (*domain.BacktestResult, error) {
	var (
		r  domain.BacktestResult
		tf string
	)

	err := row.Scan(
		&r.RunID, &r.Symbol, &tf, &r.StartMs, &r.EndMs, &r.PolicyID,
		&r.Stats.TotalTrades, &r.Stats.Winners, &r.Stats.Losers, &r.Stats.WinRate,
		&r.Stats.ProfitFactor, &r.Stats.AvgR, &r.Stats.MaxDrawdownR, &r.Stats.ReturnRatio,
		&r.Stats.MedianR, &r.Stats.P10R, &r.Stats.P25R, &r.Stats.P75R, &r.Stats.P90R, &r.Stats.StddevR,
		&r.Stats.MaxConsecutiveLosses, &r.Stats.EquityDrawdownR,
	)
	if err != nil {
		return nil, err
	}

	r.Timeframe = domain.Timeframe(tf)
	return &r, nil
}
