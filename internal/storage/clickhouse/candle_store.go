package clickhouse

import (
	"context"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds candles. Fails entire batch on duplicate
// (symbol, timeframe, open_time_ms). MergeTree does not enforce
// uniqueness, so duplicates are checked explicitly before the batch.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol     string
		timeframe  domain.Timeframe
		openTimeMs int64
	}
	seen := make(map[key]struct{})
	for _, c := range candles {
		if c.Symbol == "" || c.Timeframe == "" {
			return storage.ErrInvalidInput
		}
		k := key{c.Symbol, c.Timeframe, c.OpenTimeMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, c := range candles {
		exists, err := s.exists(ctx, c.Symbol, c.Timeframe, c.OpenTimeMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, timeframe, open_time_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.Symbol, string(c.Timeframe), uint64(c.OpenTimeMs),
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetSeries retrieves all candles for (symbol, timeframe), ordered by open time ASC.
func (s *CandleStore) GetSeries(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	query := `
		SELECT symbol, timeframe, open_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY open_time_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(tf))
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetSeriesRange retrieves candles within [start, end] (inclusive).
func (s *CandleStore) GetSeriesRange(ctx context.Context, symbol string, tf domain.Timeframe, start, end int64) ([]domain.Candle, error) {
	query := `
		SELECT symbol, timeframe, open_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND open_time_ms >= ? AND open_time_ms <= ?
		ORDER BY open_time_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(tf), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query series range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// exists checks if a candle with the given key exists.
func (s *CandleStore) exists(ctx context.Context, symbol string, tf domain.Timeframe, openTimeMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM candles
		WHERE symbol = ? AND timeframe = ? AND open_time_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, string(tf), uint64(openTimeMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]domain.Candle, error) {
	var candles []domain.Candle

	for rows.Next() {
		var (
			c          domain.Candle
			tf         string
			openTimeMs uint64
		)

		err := rows.Scan(
			&c.Symbol, &tf, &openTimeMs,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Timeframe = domain.Timeframe(tf)
		c.OpenTimeMs = int64(openTimeMs)
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
