package signal

import (
	"errors"
	"strings"
	"testing"

	"smc-lab/internal/confirm"
	"smc-lab/internal/domain"
	"smc-lab/internal/structure"
)

// lenientEngine passes whenever OBV slopes with the trade direction.
func lenientEngine(t *testing.T) *confirm.Engine {
	t.Helper()
	cfg := domain.DefaultFilterConfig()
	cfg.Enabled = []domain.FilterName{domain.FilterOBV}
	cfg.MinPasses = 1
	cfg.OBVSlopeBars = 2

	engine, err := confirm.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func newTestSynthesizer(t *testing.T, risk domain.RiskConfig) *Synthesizer {
	t.Helper()
	synth, err := NewSynthesizer(risk, lenientEngine(t), nil)
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}
	return synth
}

// bullishSetup returns a bullish scan with one live order block under price.
func bullishSetup() (*structure.ScanResult, *structure.Arena) {
	scan := &structure.ScanResult{Bias: domain.TrendBullish, LastIndex: 12}
	arena := &structure.Arena{}
	arena.Add(domain.StructuralZone{
		Type:     domain.ZoneOrderBlock,
		Polarity: domain.PolarityBullish,
		Top:      101,
		Bottom:   95,
		EndIndex: 10,
	})
	return scan, arena
}

// risingLTF builds an uptrending LTF series ending at 100+n-1.
func risingLTF(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       price, High: price + 1, Low: price - 1, Close: price,
			Volume: 100,
		}
	}
	return out
}

func TestSynthesizer_EmitsLongSignal(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()
	ltf := risingLTF(10)

	step := synth.Evaluate(scan, arena, ltf)
	if step.State != StateEmitted {
		t.Fatalf("State = %s (%s), want EMITTED", step.State, step.Reason)
	}

	sig := step.Signal
	if sig.Side != domain.SideLong {
		t.Errorf("Side = %s, want LONG", sig.Side)
	}
	if sig.Entry != 109 {
		t.Errorf("Entry = %f, want 109", sig.Entry)
	}
	// ATR needs 15 bars, so the stop sits exactly at the zone bottom.
	if sig.StopLoss != 95 {
		t.Errorf("StopLoss = %f, want 95", sig.StopLoss)
	}
	// Target at MinRiskReward times the risk distance.
	if sig.TakeProfit != 109+(109-95)*2 {
		t.Errorf("TakeProfit = %f, want %f", sig.TakeProfit, 109+(109-95)*2.0)
	}
	if sig.ZoneIndex != 0 || sig.ZoneType != domain.ZoneOrderBlock {
		t.Errorf("Zone provenance = %d %s", sig.ZoneIndex, sig.ZoneType)
	}
	if len(sig.FiltersPassed) != 1 || sig.FiltersPassed[0] != string(domain.FilterOBV) {
		t.Errorf("FiltersPassed = %v, want [obv]", sig.FiltersPassed)
	}
	// Base 0.3 + one filter 0.1 + trend bonus 0.15.
	if sig.Confidence < 0.54 || sig.Confidence > 0.56 {
		t.Errorf("Confidence = %f, want 0.55", sig.Confidence)
	}
	if sig.SignalID == "" {
		t.Error("SignalID must be set")
	}
	if err := sig.Validate(); err != nil {
		t.Errorf("Emitted signal failed validation: %v", err)
	}
}

func TestSynthesizer_EmitsShortSignal(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())

	scan := &structure.ScanResult{Bias: domain.TrendBearish, LastIndex: 12}
	arena := &structure.Arena{}
	arena.Add(domain.StructuralZone{
		Type:     domain.ZoneOrderBlock,
		Polarity: domain.PolarityBearish,
		Top:      205,
		Bottom:   201,
		EndIndex: 10,
	})

	ltf := make([]domain.Candle, 10)
	for i := range ltf {
		price := 200 - float64(i)
		ltf[i] = domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       price, High: price + 1, Low: price - 1, Close: price,
			Volume: 100,
		}
	}

	step := synth.Evaluate(scan, arena, ltf)
	if step.State != StateEmitted {
		t.Fatalf("State = %s (%s), want EMITTED", step.State, step.Reason)
	}
	sig := step.Signal
	if sig.Side != domain.SideShort {
		t.Errorf("Side = %s, want SHORT", sig.Side)
	}
	if sig.StopLoss != 205 {
		t.Errorf("StopLoss = %f, want the zone top 205", sig.StopLoss)
	}
	if sig.TakeProfit >= sig.Entry {
		t.Errorf("TakeProfit %f must sit below entry %f", sig.TakeProfit, sig.Entry)
	}
}

func TestSynthesizer_DuplicateSuppression(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()

	first := synth.Evaluate(scan, arena, risingLTF(10))
	if first.State != StateEmitted {
		t.Fatalf("First step = %s (%s), want EMITTED", first.State, first.Reason)
	}

	second := synth.Evaluate(scan, arena, risingLTF(11))
	if second.State != StateRejected {
		t.Fatalf("Second step = %s, want REJECTED", second.State)
	}
	if !strings.Contains(second.Reason, "already produced") {
		t.Errorf("Unexpected reason: %s", second.Reason)
	}
}

func TestSynthesizer_NeutralBias(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	_, arena := bullishSetup()

	scan := &structure.ScanResult{Bias: domain.TrendNeutral, LastIndex: 12}
	step := synth.Evaluate(scan, arena, risingLTF(10))
	if step.State != StateScanning {
		t.Errorf("State = %s, want SCANNING under neutral bias", step.State)
	}
}

func TestSynthesizer_NoMatchingZone(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())

	scan := &structure.ScanResult{Bias: domain.TrendBullish, LastIndex: 12}
	step := synth.Evaluate(scan, &structure.Arena{}, risingLTF(10))
	if step.State != StateScanning {
		t.Errorf("State = %s, want SCANNING without a zone", step.State)
	}
}

func TestSynthesizer_FilterPolicyRejection(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()

	// Falling closes above the zone: OBV slopes against the long side.
	ltf := make([]domain.Candle, 6)
	for i := range ltf {
		price := 100 - float64(i)*0.5 // drifts down but stays above the stop
		ltf[i] = domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       price, High: price + 1, Low: price - 1, Close: price,
			Volume: 100,
		}
	}

	step := synth.Evaluate(scan, arena, ltf)
	if step.State != StateRejected {
		t.Fatalf("State = %s, want REJECTED", step.State)
	}
	if !strings.Contains(step.Reason, "filter policy") {
		t.Errorf("Unexpected reason: %s", step.Reason)
	}
}

// swingBreakLTF builds an LTF series with a swing high at 105 and a
// swing low at 99 (fractal window 2), last bar supplied by the caller.
// Closes drift upward so the OBV filter keeps confirming longs.
func swingBreakLTF(lastLow, lastClose, lastVolume float64) []domain.Candle {
	closes := []float64{100, 100.5, 101, 102, 101.5, 102.5, 103}
	bars := make([]domain.Candle, 0, len(closes)+1)
	for i, c := range closes {
		high := c + 1
		if i == 3 {
			high = 105
		}
		bars = append(bars, domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       c, High: high, Low: 99, Close: c,
			Volume: 100,
		})
	}

	high := lastClose + 1
	if high < 104 {
		high = 104
	}
	bars = append(bars, domain.Candle{
		Symbol:     "BTCUSDT",
		Timeframe:  domain.Timeframe15m,
		OpenTimeMs: int64(len(closes)) * 900_000,
		Open:       103, High: high, Low: lastLow, Close: lastClose,
		Volume: lastVolume,
	})
	return bars
}

func TestSynthesizer_StructureBreakRaisesConfidence(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()

	// Close above the swing high: base 0.3 + obv 0.1 + trend 0.15 + break 0.1.
	step := synth.Evaluate(scan, arena, swingBreakLTF(102, 106, 100))
	if step.State != StateEmitted {
		t.Fatalf("State = %s (%s), want EMITTED", step.State, step.Reason)
	}
	if step.Signal.Confidence < 0.64 || step.Signal.Confidence > 0.66 {
		t.Errorf("Confidence = %f, want 0.65 with the break increment", step.Signal.Confidence)
	}

	// The same setup closing below the swing high earns no increment.
	control := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scanB, arenaB := bullishSetup()
	base := control.Evaluate(scanB, arenaB, swingBreakLTF(102, 104, 100))
	if base.State != StateEmitted {
		t.Fatalf("Control state = %s (%s), want EMITTED", base.State, base.Reason)
	}
	if base.Signal.Confidence < 0.54 || base.Signal.Confidence > 0.56 {
		t.Errorf("Control confidence = %f, want 0.55 without a break", base.Signal.Confidence)
	}
}

func TestSynthesizer_SweepRaisesConfidence(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()

	// Wick below the swing low at 99 with the close back above it. The
	// shrunken last-bar volume keeps the OBV slope positive through the
	// down close.
	step := synth.Evaluate(scan, arena, swingBreakLTF(98, 100, 10))
	if step.State != StateEmitted {
		t.Fatalf("State = %s (%s), want EMITTED", step.State, step.Reason)
	}
	if step.Signal.Confidence < 0.64 || step.Signal.Confidence > 0.66 {
		t.Errorf("Confidence = %f, want 0.65 with the sweep increment", step.Signal.Confidence)
	}
}

func TestSynthesizer_ConfidenceGate(t *testing.T) {
	risk := domain.DefaultRiskConfig()
	risk.MinConfidence = 0.99

	synth := newTestSynthesizer(t, risk)
	scan, arena := bullishSetup()

	step := synth.Evaluate(scan, arena, risingLTF(10))
	if step.State != StateRejected {
		t.Fatalf("State = %s, want REJECTED", step.State)
	}
	if !strings.Contains(step.Reason, "confidence") {
		t.Errorf("Unexpected reason: %s", step.Reason)
	}
}

func TestSynthesizer_DegenerateStop(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())

	scan := &structure.ScanResult{Bias: domain.TrendBullish, LastIndex: 12}
	arena := &structure.Arena{}
	arena.Add(domain.StructuralZone{
		Type:     domain.ZoneOrderBlock,
		Polarity: domain.PolarityBullish,
		Top:      120,
		Bottom:   109, // equals the entry close
		EndIndex: 10,
	})

	step := synth.Evaluate(scan, arena, risingLTF(10))
	if step.State != StateRejected {
		t.Fatalf("State = %s, want REJECTED", step.State)
	}
	if !strings.Contains(step.Reason, "degenerate") {
		t.Errorf("Unexpected reason: %s", step.Reason)
	}
}

func TestSynthesizer_EmptySeries(t *testing.T) {
	synth := newTestSynthesizer(t, domain.DefaultRiskConfig())
	scan, arena := bullishSetup()

	step := synth.Evaluate(scan, arena, nil)
	if step.State != StateScanning {
		t.Errorf("State = %s, want SCANNING for empty input", step.State)
	}
}

func TestNewSynthesizer_RejectsInvalidRisk(t *testing.T) {
	risk := domain.DefaultRiskConfig()
	risk.MinRiskReward = 0

	_, err := NewSynthesizer(risk, lenientEngine(t), nil)
	if !errors.Is(err, domain.ErrNonPositiveRiskReward) {
		t.Errorf("Expected ErrNonPositiveRiskReward, got %v", err)
	}
}
