package exit

import "intraday-scanner/internal/types"

// stopLevel derives the stop price: ATR-based when both atr and the
// multiplier are present, percent-based otherwise.
func stopLevel(entry float64, isLong bool, atr, atrMult, pct float64) float64 {
	if atr > 0 && atrMult > 0 {
		if isLong {
			return entry - atr*atrMult
		}
		return entry + atr*atrMult
	}
	if isLong {
		return entry * (1.0 - pct/100.0)
	}
	return entry * (1.0 + pct/100.0)
}

// evalStopLoss scans for the first bar whose adverse extreme reaches the stop
// level. The exit price is the level itself, not the bar's extreme: a stop
// order fills at the stop price, not worse.
func (s Strategy) evalStopLoss(entry float64, bars []types.Bar, isLong bool, atr float64) *types.ExitSignal {
	level := s.Level
	if level == 0 {
		level = stopLevel(entry, isLong, atr, s.ATRMultiplier, s.PercentFromEntry)
	}
	for _, b := range bars {
		if isLong && b.Low <= level {
			return &types.ExitSignal{Ts: b.Ts, Price: level, Type: "exit", Reason: types.ExitStopLoss}
		}
		if !isLong && b.High >= level {
			return &types.ExitSignal{Ts: b.Ts, Price: level, Type: "exit", Reason: types.ExitStopLoss}
		}
	}
	return nil
}
