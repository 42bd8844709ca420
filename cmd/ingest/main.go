package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smc-lab/internal/domain"
	"smc-lab/internal/ingestion"
	"smc-lab/internal/observability"
	"smc-lab/internal/storage"
	chstore "smc-lab/internal/storage/clickhouse"
	"smc-lab/internal/storage/memory"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using flags and environment")
	}

	// Parse flags
	mode := flag.String("mode", "live", "Ingestion mode: live or backfill")
	wsEndpoint := flag.String("ws-endpoint", "", "Exchange WebSocket endpoint")
	restEndpoint := flag.String("rest-endpoint", "", "Exchange REST base URL for backfill")
	symbols := flag.String("symbols", "", "Comma-separated symbols (e.g. BTCUSDT,ETHUSDT)")
	timeframes := flag.String("timeframes", "15m", "Comma-separated timeframes (e.g. 15m,4h)")
	fromTime := flag.String("from-time", "", "Start time for backfill (RFC3339)")
	toTime := flag.String("to-time", "", "End time for backfill (RFC3339)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("SMC_CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	symbolList := splitList(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("No symbols specified. Use --symbols")
	}
	tfList, err := parseTimeframes(*timeframes)
	if err != nil {
		logger.Fatalf("Invalid timeframes: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	switch *mode {
	case "live":
		err = runLive(ctx, logger, *wsEndpoint, *clickhouseDSN, symbolList, tfList, *useMemory)
	case "backfill":
		err = runBackfill(ctx, logger, *restEndpoint, *clickhouseDSN, symbolList, tfList, *fromTime, *toTime, *useMemory)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// splitList splits a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseTimeframes validates a comma-separated timeframe list.
func parseTimeframes(s string) ([]domain.Timeframe, error) {
	var out []domain.Timeframe
	for _, v := range splitList(s) {
		tf := domain.Timeframe(v)
		if tf.Minutes() == 0 {
			return nil, fmt.Errorf("unknown timeframe %q", v)
		}
		out = append(out, tf)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timeframes specified")
	}
	return out, nil
}

// newCandleStore creates the candle store for the selected backend.
func newCandleStore(ctx context.Context, clickhouseDSN string, useMemory bool) (storage.CandleStore, func(), error) {
	if useMemory {
		return memory.NewCandleStore(), func() {}, nil
	}
	if clickhouseDSN == "" {
		return nil, nil, fmt.Errorf("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	return chstore.NewCandleStore(conn), func() { conn.Close() }, nil
}

// runLive consumes kline streams and stores every closed bar.
func runLive(ctx context.Context, logger *log.Logger, wsEndpoint, clickhouseDSN string, symbols []string, tfs []domain.Timeframe, useMemory bool) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for live mode")
	}

	store, closeStore, err := newCandleStore(ctx, clickhouseDSN, useMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := ingestion.NewStreamClient(ctx, wsEndpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("create stream client: %w", err)
	}
	defer client.Close()

	manager := ingestion.NewManager(ingestion.ManagerOptions{Store: store})

	// One channel per (symbol, timeframe) stream, drained concurrently.
	subs := 0
	errCh := make(chan error, len(symbols)*len(tfs))
	for _, symbol := range symbols {
		for _, tf := range tfs {
			ch, err := client.SubscribeKlines(ctx, symbol, tf)
			if err != nil {
				return fmt.Errorf("subscribe %s %s: %w", symbol, tf, err)
			}
			subs++
			go drainStream(ctx, logger, manager, ch, errCh)
		}
	}
	observability.UpdateStreamSubscriptions(subs)
	logger.Printf("Live ingestion running: %d streams", subs)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// drainStream stores closed bars from one kline channel.
func drainStream(ctx context.Context, logger *log.Logger, manager *ingestion.Manager, ch <-chan ingestion.KlineEvent, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			observability.RecordKlineProcessed(string(event.Candle.Timeframe))
			if !event.Final {
				continue
			}
			if err := manager.IngestClosed(ctx, event.Candle); err != nil {
				observability.RecordKlineError("store")
				logger.Printf("Store closed bar %s %s @ %d failed: %v",
					event.Candle.Symbol, event.Candle.Timeframe, event.Candle.OpenTimeMs, err)
				continue
			}
			observability.RecordKlinesStored(1)
		}
	}
}

// runBackfill fetches historical klines over REST and bulk-stores them.
func runBackfill(ctx context.Context, logger *log.Logger, restEndpoint, clickhouseDSN string, symbols []string, tfs []domain.Timeframe, fromTimeStr, toTimeStr string, useMemory bool) error {
	if restEndpoint == "" {
		return fmt.Errorf("--rest-endpoint is required for backfill mode")
	}

	store, closeStore, err := newCandleStore(ctx, clickhouseDSN, useMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	source := ingestion.NewRESTKlineSource(ingestion.RESTKlineSourceOptions{BaseURL: restEndpoint})
	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source: source,
		Store:  store,
		Logger: logger,
	})

	// Determine time range; default is the last 24 hours.
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	if fromTimeStr != "" {
		from, err = time.Parse(time.RFC3339, fromTimeStr)
		if err != nil {
			return fmt.Errorf("parse from-time: %w", err)
		}
	}
	if toTimeStr != "" {
		to, err = time.Parse(time.RFC3339, toTimeStr)
		if err != nil {
			return fmt.Errorf("parse to-time: %w", err)
		}
	}

	for _, symbol := range symbols {
		for _, tf := range tfs {
			result, err := backfiller.BackfillRange(ctx, symbol, tf, from, to)
			if err != nil {
				return fmt.Errorf("backfill %s %s: %w", symbol, tf, err)
			}
			observability.RecordKlinesStored(result.CandlesIngested)
			logger.Printf("Backfilled %s %s: %d candles, %d dupes, %d errors in %v",
				symbol, tf, result.CandlesIngested, result.DuplicatesSkipped,
				result.Errors, result.Duration)
		}
	}

	return nil
}
