package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO signals (
			signal_id, symbol, timeframe, side,
			entry, stop_loss, take_profit, confidence,
			filters_passed, zone_type, zone_polarity, zone_index,
			trend_bias, bar_index, timestamp_ms
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		)
	`

	filters := sig.FiltersPassed
	if filters == nil {
		filters = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.Symbol, string(sig.Timeframe), string(sig.Side),
		sig.Entry, sig.StopLoss, sig.TakeProfit, sig.Confidence,
		filters, string(sig.ZoneType), string(sig.ZonePolarity), sig.ZoneIndex,
		string(sig.TrendBias), sig.BarIndex, sig.TimestampMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `
		SELECT
			signal_id, symbol, timeframe, side,
			entry, stop_loss, take_profit, confidence,
			filters_passed, zone_type, zone_polarity, zone_index,
			trend_bias, bar_index, timestamp_ms
		FROM signals
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetBySymbol retrieves all signals for a symbol.
func (s *SignalStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Signal, error) {
	query := `
		SELECT
			signal_id, symbol, timeframe, side,
			entry, stop_loss, take_profit, confidence,
			filters_passed, zone_type, zone_polarity, zone_index,
			trend_bias, bar_index, timestamp_ms
		FROM signals
		WHERE symbol = $1
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get signals by symbol: %w", err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		sig                    domain.Signal
		tf, side, zt, zp, bias string
	)

	err := row.Scan(
		&sig.SignalID, &sig.Symbol, &tf, &side,
		&sig.Entry, &sig.StopLoss, &sig.TakeProfit, &sig.Confidence,
		&sig.FiltersPassed, &zt, &zp, &sig.ZoneIndex,
		&bias, &sig.BarIndex, &sig.TimestampMs,
	)
	if err != nil {
		return nil, err
	}

	sig.Timeframe = domain.Timeframe(tf)
	sig.Side = domain.Side(side)
	sig.ZoneType = domain.ZoneType(zt)
	sig.ZonePolarity = domain.Polarity(zp)
	sig.TrendBias = domain.TrendBias(bias)

	return &sig, nil
}
