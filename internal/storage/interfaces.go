package storage

import (
	"context"

	"smc-lab/internal/domain"
)

// CandleStore provides access to candle storage.
type CandleStore interface {
	// InsertBulk adds candles. Fails the entire batch on a duplicate
	// (symbol, timeframe, open_time_ms).
	InsertBulk(ctx context.Context, candles []domain.Candle) error

	// GetSeries retrieves all candles for (symbol, timeframe), ordered
	// by open time ASC.
	GetSeries(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error)

	// GetSeriesRange retrieves candles within [start, end] (inclusive),
	// ordered by open time ASC.
	GetSeriesRange(ctx context.Context, symbol string, tf domain.Timeframe, start, end int64) ([]domain.Candle, error)
}

// SignalStore provides access to emitted signal storage.
type SignalStore interface {
	// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// GetByID retrieves a signal. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetBySymbol retrieves all signals for a symbol, ordered by
	// timestamp ASC, signal_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Signal, error)
}

// BacktestStore provides access to backtest run storage.
type BacktestStore interface {
	// Insert adds a run with its trades. Returns ErrDuplicateKey if
	// run_id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a run with its trades. Returns ErrNotFound if
	// not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error)

	// GetBySymbol retrieves all runs for a symbol, ordered by start ASC,
	// run_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestResult, error)

	// GetAll retrieves all runs.
	GetAll(ctx context.Context) ([]*domain.BacktestResult, error)
}

// SettingsStore provides key/value settings CRUD.
type SettingsStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
