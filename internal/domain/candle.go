package domain

import "errors"

// Timeframe identifies a candle aggregation interval.
type Timeframe string

// Supported timeframes.
const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Minutes returns the timeframe length in minutes, or 0 for unknown values.
func (tf Timeframe) Minutes() int64 {
	switch tf {
	case Timeframe1m:
		return 1
	case Timeframe5m:
		return 5
	case Timeframe15m:
		return 15
	case Timeframe1h:
		return 60
	case Timeframe4h:
		return 240
	case Timeframe1d:
		return 1440
	}
	return 0
}

// Candle is a single immutable OHLCV bar.
type Candle struct {
	Symbol     string
	Timeframe  Timeframe
	OpenTimeMs int64 // Unix timestamp of bar open in milliseconds
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// BullishBody reports whether the bar closed above its open.
func (c Candle) BullishBody() bool { return c.Close > c.Open }

// BearishBody reports whether the bar closed below its open.
func (c Candle) BearishBody() bool { return c.Close < c.Open }

// Series is the capability set a candle provider must implement.
// Providers are checked once at the boundary via Materialize; detection
// code operates on plain []Candle afterwards.
type Series interface {
	// Len returns the number of bars.
	Len() int

	// At returns the bar at index i, 0-based, oldest first.
	At(i int) Candle
}

// SliceSeries adapts a []Candle to the Series interface.
type SliceSeries []Candle

func (s SliceSeries) Len() int        { return len(s) }
func (s SliceSeries) At(i int) Candle { return s[i] }

// Series validation errors.
var (
	ErrUnsortedSeries     = errors.New("candle series is not sorted ascending by open time")
	ErrDuplicateTimestamp = errors.New("candle series contains duplicate open time")
)

// Materialize copies a Series into a validated []Candle.
// Bars must be strictly ascending by open time with no duplicates;
// normalizing malformed input is the caller's responsibility.
func Materialize(s Series) ([]Candle, error) {
	n := s.Len()
	out := make([]Candle, n)
	for i := 0; i < n; i++ {
		out[i] = s.At(i)
	}
	if err := ValidateCandles(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateCandles checks strict ascending open-time order.
func ValidateCandles(bars []Candle) error {
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].OpenTimeMs == bars[i-1].OpenTimeMs:
			return ErrDuplicateTimestamp
		case bars[i].OpenTimeMs < bars[i-1].OpenTimeMs:
			return ErrUnsortedSeries
		}
	}
	return nil
}
