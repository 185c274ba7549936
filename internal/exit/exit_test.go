package exit

import (
	"math"
	"testing"
	"time"

	"intraday-scanner/internal/types"
)

var loc = time.FixedZone("IST", 5*3600+1800)

func bar(t *testing.T, hhmm string, open, high, low, close float64) types.Bar {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", "2024-03-05 "+hhmm, loc)
	if err != nil {
		t.Fatalf("bad bar time %q: %v", hhmm, err)
	}
	return types.Bar{Ts: ts, Open: open, High: high, Low: low, Close: close, TradeDate: "2024-03-05"}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestStopLossATRBasedFillsAtLevel(t *testing.T) {
	// entry 637.08, ATR 0.26 x 2.0 => stop 636.56. A bar trading down to
	// 636.00 must fill at the stop, not at the bar's low.
	s := Strategy{Kind: KindStopLoss, ATRMultiplier: 2.0}
	bars := []types.Bar{
		bar(t, "09:36", 637.10, 637.30, 636.90, 637.00),
		bar(t, "09:37", 637.00, 637.05, 636.00, 636.20),
	}
	sig := s.Evaluate(637.08, bars[0].Ts, bars, true, 0.26)
	if sig == nil {
		t.Fatal("expected a stop-loss exit")
	}
	if !approx(sig.Price, 636.56) {
		t.Errorf("exit price = %.4f, want 636.56", sig.Price)
	}
	if sig.Reason != types.ExitStopLoss {
		t.Errorf("reason = %s, want stopLoss", sig.Reason)
	}
	if !sig.Ts.Equal(bars[1].Ts) {
		t.Errorf("exit ts = %v, want %v", sig.Ts, bars[1].Ts)
	}
}

func TestStopLossPercentFromEntry(t *testing.T) {
	// 1% below 637.08 is 630.7092.
	s := Strategy{Kind: KindStopLoss, PercentFromEntry: 1.0}
	bars := []types.Bar{
		bar(t, "09:36", 636.00, 636.50, 630.50, 630.80),
	}
	sig := s.Evaluate(637.08, bars[0].Ts, bars, true, 0)
	if sig == nil {
		t.Fatal("expected a stop-loss exit")
	}
	if !approx(sig.Price, 630.7092) {
		t.Errorf("exit price = %.4f, want 630.7092", sig.Price)
	}
}

func TestStopLossShortTriggersOnHigh(t *testing.T) {
	s := Strategy{Kind: KindStopLoss, PercentFromEntry: 1.0}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 100.5, 99.8, 100.2),
		bar(t, "09:37", 100.2, 101.2, 100.1, 101.0),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, false, 0)
	if sig == nil {
		t.Fatal("expected a stop-loss exit")
	}
	if !approx(sig.Price, 101.0) {
		t.Errorf("exit price = %.4f, want 101.00", sig.Price)
	}
	if !sig.Ts.Equal(bars[1].Ts) {
		t.Errorf("triggered on wrong bar")
	}
}

func TestProfitTargetATRBased(t *testing.T) {
	// entry 637.08, ATR 0.26 x 5.0 => target 638.38.
	s := Strategy{Kind: KindProfitTarget, ATRMultiplier: 5.0}
	bars := []types.Bar{
		bar(t, "09:36", 637.10, 637.90, 637.00, 637.80),
		bar(t, "09:37", 637.80, 638.50, 637.70, 638.40),
	}
	sig := s.Evaluate(637.08, bars[0].Ts, bars, true, 0.26)
	if sig == nil {
		t.Fatal("expected a profit-target exit")
	}
	if !approx(sig.Price, 638.38) {
		t.Errorf("exit price = %.4f, want 638.38", sig.Price)
	}
	if sig.Reason != types.ExitProfitTarget {
		t.Errorf("reason = %s, want profitTarget", sig.Reason)
	}
}

func TestProfitTargetShortTriggersOnLow(t *testing.T) {
	s := Strategy{Kind: KindProfitTarget, PercentFromEntry: 2.0}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 100.2, 97.9, 98.0),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, false, 0)
	if sig == nil {
		t.Fatal("expected a profit-target exit")
	}
	if !approx(sig.Price, 98.0) {
		t.Errorf("exit price = %.4f, want 98.00", sig.Price)
	}
}

func TestTrailingStopNoExitBeforeActivation(t *testing.T) {
	// Price collapses without ever reaching activation: the trail must
	// stay silent and leave the exit to other strategies.
	s := Strategy{Kind: KindTrailingStop, ActivationPercent: 1.0, TrailPercent: 0.5}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 100.3, 99.0, 99.1),
		bar(t, "09:37", 99.1, 99.2, 97.0, 97.2),
	}
	if sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0); sig != nil {
		t.Errorf("trailing stop fired before activation: %+v", sig)
	}
}

func TestTrailingStopCannotFireOnActivationBar(t *testing.T) {
	// The activation bar spikes to 101.2 then collapses to 99.0, well
	// through the fresh trail level. The exit still cannot happen until the
	// next bar.
	s := Strategy{Kind: KindTrailingStop, ActivationPercent: 1.0, TrailPercent: 0.5}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 101.2, 99.0, 99.1),
	}
	if sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0); sig != nil {
		t.Errorf("trailing stop fired on its activation bar: %+v", sig)
	}
}

func TestTrailingStopExitsAgainstLevelInForce(t *testing.T) {
	// Activation at 101 with high 101.2 sets the trail to 101.2*0.995 =
	// 100.694. The next bar both breaches that level and prints a new high;
	// the breach must be judged against the pre-update level.
	s := Strategy{Kind: KindTrailingStop, ActivationPercent: 1.0, TrailPercent: 0.5}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 101.2, 100.0, 101.1),
		bar(t, "09:37", 101.1, 101.8, 100.5, 101.6),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0)
	if sig == nil {
		t.Fatal("expected a trailing-stop exit")
	}
	if !approx(sig.Price, 101.2*0.995) {
		t.Errorf("exit price = %.4f, want %.4f", sig.Price, 101.2*0.995)
	}
	if sig.Reason != types.ExitTrailingStop {
		t.Errorf("reason = %s, want trailingStop", sig.Reason)
	}
}

func TestTrailingStopRatchetsWithNewHighs(t *testing.T) {
	s := Strategy{Kind: KindTrailingStop, ActivationPercent: 1.0, TrailPercent: 0.5}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 101.2, 100.0, 101.1), // activates, trail 100.694
		bar(t, "09:37", 101.1, 102.0, 101.0, 101.9), // new high, trail 101.49
		bar(t, "09:38", 101.9, 101.95, 101.2, 101.3),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0)
	if sig == nil {
		t.Fatal("expected a trailing-stop exit")
	}
	if !approx(sig.Price, 102.0*0.995) {
		t.Errorf("exit price = %.4f, want %.4f (ratcheted trail)", sig.Price, 102.0*0.995)
	}
	if !sig.Ts.Equal(bars[2].Ts) {
		t.Errorf("exited on wrong bar")
	}
}

func TestMaxHoldTimeExitsAtHorizonBarClose(t *testing.T) {
	s := Strategy{Kind: KindMaxHoldTime, HoldMinutes: 2}
	entryTs := bar(t, "09:35", 0, 0, 0, 0).Ts
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 100.2, 99.9, 100.1),
		bar(t, "09:37", 100.1, 100.3, 100.0, 100.25),
		bar(t, "09:38", 100.25, 100.4, 100.1, 100.3),
	}
	sig := s.Evaluate(100.0, entryTs, bars, true, 0)
	if sig == nil {
		t.Fatal("expected a max-hold exit")
	}
	if !sig.Ts.Equal(bars[1].Ts) {
		t.Errorf("exit ts = %v, want the 09:37 bar", sig.Ts)
	}
	if !approx(sig.Price, 100.25) {
		t.Errorf("exit price = %.4f, want the bar close 100.25", sig.Price)
	}
	if sig.Reason != types.ExitMaxHoldTime {
		t.Errorf("reason = %s, want maxHoldTime", sig.Reason)
	}
}

func TestMaxHoldTimeNeverReached(t *testing.T) {
	s := Strategy{Kind: KindMaxHoldTime, HoldMinutes: 60}
	entryTs := bar(t, "09:35", 0, 0, 0, 0).Ts
	bars := []types.Bar{bar(t, "09:36", 100, 100, 100, 100)}
	if sig := s.Evaluate(100.0, entryTs, bars, true, 0); sig != nil {
		t.Errorf("max hold fired before its horizon: %+v", sig)
	}
}

func TestEndOfDayExitsAtCutoff(t *testing.T) {
	s := Strategy{Kind: KindEndOfDay, CloseTime: "15:55"}
	bars := []types.Bar{
		bar(t, "15:54", 100.0, 100.1, 99.9, 100.0),
		bar(t, "15:55", 100.0, 100.2, 99.95, 100.15),
		bar(t, "15:56", 100.15, 100.2, 100.0, 100.1),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0)
	if sig == nil {
		t.Fatal("expected an end-of-day exit")
	}
	if !sig.Ts.Equal(bars[1].Ts) {
		t.Errorf("exit ts = %v, want the 15:55 bar", sig.Ts)
	}
	if !approx(sig.Price, 100.15) {
		t.Errorf("exit price = %.4f, want 100.15", sig.Price)
	}
}

func TestEndOfDayFallsBackToLastBar(t *testing.T) {
	// Early close: no bar at or past the cutoff, so the last bar wins.
	s := Strategy{Kind: KindEndOfDay, CloseTime: "15:55"}
	bars := []types.Bar{
		bar(t, "12:58", 100.0, 100.1, 99.9, 100.0),
		bar(t, "12:59", 100.0, 100.2, 99.95, 100.05),
	}
	sig := s.Evaluate(100.0, bars[0].Ts, bars, true, 0)
	if sig == nil {
		t.Fatal("expected an end-of-day exit")
	}
	if !sig.Ts.Equal(bars[1].Ts) || !approx(sig.Price, 100.05) {
		t.Errorf("fallback exit = %v @ %.4f, want last bar close", sig.Ts, sig.Price)
	}
}

func TestFirstTriggeredHonorsConfiguredOrder(t *testing.T) {
	// Stop and target are both geometrically hit within the first bar; the
	// configured order decides.
	stop := Strategy{Kind: KindStopLoss, PercentFromEntry: 1.0}
	target := Strategy{Kind: KindProfitTarget, PercentFromEntry: 1.0}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 101.5, 98.5, 100.0),
	}

	sig, ok := FirstTriggered([]Strategy{stop, target}, 100.0, bars[0].Ts, bars, true, 0)
	if !ok || sig.Reason != types.ExitStopLoss {
		t.Errorf("stop-first order: got %s, want stopLoss", sig.Reason)
	}

	sig, ok = FirstTriggered([]Strategy{target, stop}, 100.0, bars[0].Ts, bars, true, 0)
	if !ok || sig.Reason != types.ExitProfitTarget {
		t.Errorf("target-first order: got %s, want profitTarget", sig.Reason)
	}
}

func TestFirstTriggeredSynthesizesEndOfDay(t *testing.T) {
	// No strategy fires: the synthesized exit is end-of-day at the last
	// bar's close.
	stop := Strategy{Kind: KindStopLoss, PercentFromEntry: 5.0}
	bars := []types.Bar{
		bar(t, "09:36", 100.0, 100.2, 99.9, 100.1),
		bar(t, "09:37", 100.1, 100.3, 100.0, 100.2),
	}
	sig, ok := FirstTriggered([]Strategy{stop}, 100.0, bars[0].Ts, bars, true, 0)
	if !ok {
		t.Fatal("expected a synthesized exit")
	}
	if sig.Reason != types.ExitEndOfDay {
		t.Errorf("reason = %s, want endOfDay", sig.Reason)
	}
	if !sig.Ts.Equal(bars[1].Ts) || !approx(sig.Price, 100.2) {
		t.Errorf("synthesized exit = %v @ %.4f, want last bar close", sig.Ts, sig.Price)
	}
}

func TestFirstTriggeredEmptyBars(t *testing.T) {
	_, ok := FirstTriggered(nil, 100.0, time.Now(), nil, true, 0)
	if ok {
		t.Error("expected ok=false with no bars")
	}
}

func TestApplySlippage(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		isLong bool
		model  string
		value  float64
		want   float64
	}{
		{"percent long", 100.0, true, "percent", 0.05, 99.95},
		{"percent short", 100.0, false, "percent", 0.05, 100.05},
		{"fixed long", 100.0, true, "fixed", 0.10, 99.90},
		{"fixed short", 100.0, false, "fixed", 0.10, 100.10},
		{"zero value passthrough", 100.0, true, "percent", 0, 100.0},
	}
	for _, c := range cases {
		got := ApplySlippage(c.price, c.isLong, c.model, c.value)
		if !approx(got, c.want) {
			t.Errorf("%s: got %.4f, want %.4f", c.name, got, c.want)
		}
	}
}
