package idhash

import "testing"

func TestComputeRunID_Deterministic(t *testing.T) {
	first := ComputeRunID("BTCUSDT", "15m", 1700000000000, 1700086400000, "BREAKOUT_n20_rr2.0_longfalse")
	for i := 0; i < 10; i++ {
		got := ComputeRunID("BTCUSDT", "15m", 1700000000000, 1700086400000, "BREAKOUT_n20_rr2.0_longfalse")
		if got != first {
			t.Fatal("Identical inputs must produce identical run IDs")
		}
	}
	if len(first) != 64 {
		t.Errorf("ID length = %d, want 64 hex characters", len(first))
	}
}

func TestComputeRunID_Distinct(t *testing.T) {
	base := ComputeRunID("BTCUSDT", "15m", 1000, 2000, "P1")

	variants := []string{
		ComputeRunID("ETHUSDT", "15m", 1000, 2000, "P1"),
		ComputeRunID("BTCUSDT", "1h", 1000, 2000, "P1"),
		ComputeRunID("BTCUSDT", "15m", 1001, 2000, "P1"),
		ComputeRunID("BTCUSDT", "15m", 1000, 2001, "P1"),
		ComputeRunID("BTCUSDT", "15m", 1000, 2000, "P2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("Variant %d collided with the base ID", i)
		}
	}
}
