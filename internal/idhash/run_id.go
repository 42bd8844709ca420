package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic backtest run identifier from the
// run's full identity: symbol, timeframe, date range and policy ID
// (which includes the parameter set).
func ComputeRunID(symbol, timeframe string, startMs, endMs int64, policyID string) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%s", symbol, timeframe, startMs, endMs, policyID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
