package exit

import "intraday-scanner/internal/types"

// trailState is the per-trade state threaded through the bar fold.
type trailState struct {
	activated bool
	bestPrice float64
	stopLevel float64
}

// evalTrailingStop is a two-phase state machine: armed until price reaches
// the activation level in the favorable direction, then trailing. Before
// activation no exit can fire, even if price would have stopped out.
//
// After activation each bar is first checked against the level in force,
// then allowed to improve bestPrice; the exit cannot fire on the bar that
// activated the trail.
func (s Strategy) evalTrailingStop(entry float64, bars []types.Bar, isLong bool) *types.ExitSignal {
	var st trailState

	var activation float64
	if isLong {
		activation = entry * (1.0 + s.ActivationPercent/100.0)
	} else {
		activation = entry * (1.0 - s.ActivationPercent/100.0)
	}

	trail := func(best float64) float64 {
		if isLong {
			return best * (1.0 - s.TrailPercent/100.0)
		}
		return best * (1.0 + s.TrailPercent/100.0)
	}

	for _, b := range bars {
		if !st.activated {
			if (isLong && b.High >= activation) || (!isLong && b.Low <= activation) {
				st.activated = true
				if isLong {
					st.bestPrice = b.High
				} else {
					st.bestPrice = b.Low
				}
				st.stopLevel = trail(st.bestPrice)
			}
			continue
		}

		if isLong && b.Low <= st.stopLevel {
			return &types.ExitSignal{Ts: b.Ts, Price: st.stopLevel, Type: "exit", Reason: types.ExitTrailingStop}
		}
		if !isLong && b.High >= st.stopLevel {
			return &types.ExitSignal{Ts: b.Ts, Price: st.stopLevel, Type: "exit", Reason: types.ExitTrailingStop}
		}

		if isLong && b.High > st.bestPrice {
			st.bestPrice = b.High
			st.stopLevel = trail(st.bestPrice)
		}
		if !isLong && b.Low < st.bestPrice {
			st.bestPrice = b.Low
			st.stopLevel = trail(st.bestPrice)
		}
	}
	return nil
}
