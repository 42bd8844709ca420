package memory

import (
	"context"
	"errors"
	"testing"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

func makeSignal(id, symbol string, timestampMs int64) *domain.Signal {
	return &domain.Signal{
		SignalID:    id,
		Symbol:      symbol,
		Timeframe:   domain.Timeframe15m,
		Side:        domain.SideLong,
		Entry:       100,
		StopLoss:    98,
		TakeProfit:  104,
		Confidence:  0.6,
		TimestampMs: timestampMs,
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, makeSignal("sig1", "BTCUSDT", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Entry != 100 {
		t.Errorf("Entry mismatch: got %f, want %f", got.Entry, 100.0)
	}
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := makeSignal("sig1", "BTCUSDT", 1000)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, sig)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_NotFound(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSignalStore_GetBySymbolOrdering(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		makeSignal("sig-b", "ETHUSDT", 2000),
		makeSignal("sig-a", "ETHUSDT", 2000),
		makeSignal("sig-c", "ETHUSDT", 1000),
		makeSignal("sig-d", "BTCUSDT", 500),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySymbol(ctx, "ETHUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 signals, got %d", len(got))
	}

	want := []string{"sig-c", "sig-a", "sig-b"}
	for i, id := range want {
		if got[i].SignalID != id {
			t.Errorf("Position %d: got %s, want %s", i, got[i].SignalID, id)
		}
	}
}
