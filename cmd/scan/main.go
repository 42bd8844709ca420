// Package main runs a structure scan and signal evaluation over stored
// candles: HTF zones and bias first, then a bar-by-bar LTF replay
// through the confirmation engine and synthesizer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smc-lab/internal/confirm"
	"smc-lab/internal/domain"
	"smc-lab/internal/observability"
	smcsignal "smc-lab/internal/signal"
	"smc-lab/internal/storage"
	chstore "smc-lab/internal/storage/clickhouse"
	"smc-lab/internal/storage/memory"
	pgstore "smc-lab/internal/storage/postgres"
	"smc-lab/internal/structure"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "Symbol to scan (required)")
	htf := flag.String("htf", "4h", "Higher timeframe for the structure scan")
	ltf := flag.String("ltf", "15m", "Lower timeframe for signal evaluation")
	fromTime := flag.String("from-time", "", "Range start (RFC3339, required)")
	toTime := flag.String("to-time", "", "Range end (RFC3339, required)")

	// Storage
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (signals)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	persistSignals := flag.Bool("persist", false, "Persist emitted signals to storage")

	verbose := flag.Bool("verbose", false, "Print rejected evaluation steps")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *fromTime == "" || *toTime == "" {
		logger.Fatal("--from-time and --to-time are required")
	}

	htfTF := domain.Timeframe(*htf)
	ltfTF := domain.Timeframe(*ltf)
	if htfTF.Minutes() == 0 || ltfTF.Minutes() == 0 {
		logger.Fatalf("Invalid timeframes: htf=%s ltf=%s", *htf, *ltf)
	}

	from, err := time.Parse(time.RFC3339, *fromTime)
	if err != nil {
		logger.Fatalf("parse from-time: %v", err)
	}
	to, err := time.Parse(time.RFC3339, *toTime)
	if err != nil {
		logger.Fatalf("parse to-time: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Printf("Received signal %v, shutting down...", s)
		cancel()
	}()

	// Create stores
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var signalStore storage.SignalStore = memory.NewSignalStore()

	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (candles)")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		candleStore = chstore.NewCandleStore(conn)

		if *persistSignals {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required with --persist (signals)")
			}
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()
			signalStore = pgstore.NewSignalStore(pool)
		}
	}

	// Load series
	htfBars, err := candleStore.GetSeriesRange(ctx, *symbol, htfTF, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		logger.Fatalf("load htf candles: %v", err)
	}
	ltfBars, err := candleStore.GetSeriesRange(ctx, *symbol, ltfTF, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		logger.Fatalf("load ltf candles: %v", err)
	}
	if len(htfBars) == 0 {
		logger.Fatalf("no %s candles for %s in range", htfTF, *symbol)
	}

	// HTF structure scan
	detector := structure.NewDetector(domain.DefaultDetectorConfig(), logger)
	scan := detector.Scan(htfBars)
	arena := scan.Arena()

	printScan(scan)

	// LTF evaluation
	engine, err := confirm.NewEngine(domain.DefaultFilterConfig(), logger)
	if err != nil {
		logger.Fatalf("build confirmation engine: %v", err)
	}
	synth, err := smcsignal.NewSynthesizer(domain.DefaultRiskConfig(), engine, logger)
	if err != nil {
		logger.Fatalf("build synthesizer: %v", err)
	}

	emitted := 0
	for i := range ltfBars {
		if ctx.Err() != nil {
			logger.Fatal("cancelled")
		}

		step := synth.Evaluate(scan, arena, ltfBars[:i+1])
		switch step.State {
		case smcsignal.StateEmitted:
			emitted++
			observability.RecordSignalEmitted(string(step.Signal.Side))
			printSignal(step.Signal)

			if *persistSignals {
				if err := signalStore.Insert(ctx, step.Signal); err != nil {
					if errors.Is(err, storage.ErrDuplicateKey) {
						logger.Printf("Signal %s already stored, skipping", step.Signal.SignalID)
						continue
					}
					logger.Fatalf("persist signal: %v", err)
				}
			}
		case smcsignal.StateRejected:
			if *verbose {
				logger.Printf("bar %d rejected: %s", i, step.Reason)
			}
		}
	}

	fmt.Printf("\nScan complete: %d LTF bars evaluated, %d signals emitted\n", len(ltfBars), emitted)
}

// printScan outputs the HTF scan summary.
func printScan(scan *structure.ScanResult) {
	fmt.Println("=== Structure Scan ===")
	fmt.Printf("Bias: %s\n", scan.Bias)

	printZones("Order Blocks", scan.OrderBlocks)
	printZones("Fair Value Gaps", scan.FairValueGaps)
	printZones("Liquidity Pools", scan.Pools)
	fmt.Println()
}

// printZones outputs one sub-detector result.
func printZones(name string, res structure.SubResult) {
	if res.Err != nil {
		fmt.Printf("%s: failed (%v)\n", name, res.Err)
		return
	}
	fmt.Printf("%s: %d\n", name, len(res.Zones))
	for _, z := range res.Zones {
		fmt.Printf("  %s %s [%.4f .. %.4f] bars %d-%d\n",
			z.Type, z.Polarity, z.Bottom, z.Top, z.StartIndex, z.EndIndex)
	}
}

// printSignal outputs one emitted signal.
func printSignal(s *domain.Signal) {
	fmt.Printf("SIGNAL %s %s %s entry=%.4f stop=%.4f target=%.4f conf=%.2f zone=%s filters=%v\n",
		s.SignalID[:12], s.Side, time.UnixMilli(s.TimestampMs).Format(time.RFC3339),
		s.Entry, s.StopLoss, s.TakeProfit, s.Confidence, s.ZoneType, s.FiltersPassed)
}
