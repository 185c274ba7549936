package ta

import (
	"math"

	"intraday-scanner/internal/types"
)

// DefaultATR is used when there is not enough history to compute a real ATR.
// Level resolution then degrades to the percent path rather than failing.
const DefaultATR = 2.0

// ATR returns the average true range over the last period bars.
// Returns NaN when the inputs cannot support the computation.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		sum += math.Max(tr1, math.Max(tr2, tr3))
	}
	return sum / float64(period)
}

// CalculateATR computes the ATR over a lookback bar slice. Insufficient or
// invalid data yields DefaultATR so callers never have to special-case it.
func CalculateATR(bars []types.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return DefaultATR
	}
	h := make([]float64, len(bars))
	l := make([]float64, len(bars))
	c := make([]float64, len(bars))
	for i, b := range bars {
		h[i], l[i], c[i] = b.High, b.Low, b.Close
	}
	v := ATR(h, l, c, period)
	if math.IsNaN(v) || v <= 0 {
		return DefaultATR
	}
	return v
}

// RiskReward returns reward/risk for an entry with the given stop and target.
// Direction does not matter: both distances are taken as magnitudes.
// Returns NaN when the risk distance is zero.
func RiskReward(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(target - entry)
	if risk == 0 {
		return math.NaN()
	}
	return reward / risk
}

// SMA over the last n values; NaN when not enough data.
func SMA(vals []float64, n int) float64 {
	if n <= 0 || len(vals) < n {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}
