package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// Backfiller handles historical candle ingestion in batches.
type Backfiller struct {
	source    KlineSource
	store     storage.CandleStore
	batchSize int
	logger    *log.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source KlineSource
	Store  storage.CandleStore
	// BatchSize is the number of candles per insert batch. Defaults to 1000.
	BatchSize int
	Logger    *log.Logger
}

// NewBackfiller creates a new historical candle backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Backfiller{
		source:    opts.Source,
		store:     opts.Store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	CandlesIngested   int
	DuplicatesSkipped int
	Errors            int
	Duration          time.Duration
}

// BackfillSince backfills candles from a given timestamp until now.
func (b *Backfiller) BackfillSince(ctx context.Context, symbol string, tf domain.Timeframe, since time.Time) (*BackfillResult, error) {
	return b.BackfillRange(ctx, symbol, tf, since, time.Now())
}

// BackfillRange backfills candles for a specific time range.
func (b *Backfiller) BackfillRange(ctx context.Context, symbol string, tf domain.Timeframe, from, to time.Time) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{}

	fromMs := from.UnixMilli()
	toMs := to.UnixMilli()

	b.logger.Printf("Starting backfill %s %s from %s to %s",
		symbol, tf, from.Format(time.RFC3339), to.Format(time.RFC3339))

	candles, err := b.source.Fetch(ctx, symbol, tf, fromMs, toMs)
	if err != nil {
		return result, fmt.Errorf("fetch candles: %w", err)
	}

	b.logger.Printf("Fetched %d candles", len(candles))

	SortCandles(candles)

	stored, dupes, errs := b.storeCandles(ctx, candles)
	result.CandlesIngested = stored
	result.DuplicatesSkipped = dupes
	result.Errors = errs

	result.Duration = time.Since(start)
	b.logger.Printf("Backfill complete: %d candles, %d dupes, %d errors in %v",
		result.CandlesIngested, result.DuplicatesSkipped, result.Errors, result.Duration)

	return result, nil
}

// storeCandles stores candles in batches, handling duplicates.
func (b *Backfiller) storeCandles(ctx context.Context, candles []domain.Candle) (stored, dupes, errs int) {
	if b.store == nil {
		return 0, 0, 0
	}

	for i := 0; i < len(candles); i += b.batchSize {
		end := i + b.batchSize
		if end > len(candles) {
			end = len(candles)
		}

		batch := candles[i:end]
		err := b.store.InsertBulk(ctx, batch)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// Insert one by one to find which are duplicates
				for _, c := range batch {
					if err := b.store.InsertBulk(ctx, []domain.Candle{c}); err != nil {
						if errors.Is(err, storage.ErrDuplicateKey) {
							dupes++
						} else {
							errs++
						}
					} else {
						stored++
					}
				}
			} else {
				errs += len(batch)
				b.logger.Printf("Error storing batch: %v", err)
			}
		} else {
			stored += len(batch)
		}
	}

	return stored, dupes, errs
}
