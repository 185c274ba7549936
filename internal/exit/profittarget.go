package exit

import "intraday-scanner/internal/types"

// targetLevel derives the profit-target price, mirroring stopLevel on the
// favorable side of entry.
func targetLevel(entry float64, isLong bool, atr, atrMult, pct float64) float64 {
	if atr > 0 && atrMult > 0 {
		if isLong {
			return entry + atr*atrMult
		}
		return entry - atr*atrMult
	}
	if isLong {
		return entry * (1.0 + pct/100.0)
	}
	return entry * (1.0 - pct/100.0)
}

// evalProfitTarget triggers on the first favorable excursion through the
// target; exit price is the target level exactly.
func (s Strategy) evalProfitTarget(entry float64, bars []types.Bar, isLong bool, atr float64) *types.ExitSignal {
	level := s.Level
	if level == 0 {
		level = targetLevel(entry, isLong, atr, s.ATRMultiplier, s.PercentFromEntry)
	}
	for _, b := range bars {
		if isLong && b.High >= level {
			return &types.ExitSignal{Ts: b.Ts, Price: level, Type: "exit", Reason: types.ExitProfitTarget}
		}
		if !isLong && b.Low <= level {
			return &types.ExitSignal{Ts: b.Ts, Price: level, Type: "exit", Reason: types.ExitProfitTarget}
		}
	}
	return nil
}
