// Package idhash computes deterministic identifiers so that identical
// inputs always map to identical records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal identifier.
// Formula: SHA256(symbol|timeframe|timestamp_ms|side|zone_index)
// Returns the hex-encoded hash (64 characters).
func ComputeSignalID(symbol, timeframe string, timestampMs int64, side string, zoneIndex int) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%d", symbol, timeframe, timestampMs, side, zoneIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
