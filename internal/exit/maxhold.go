package exit

import (
	"time"

	"intraday-scanner/internal/types"
)

// evalMaxHoldTime exits at the close of the first bar at or past the hold
// horizon. Defers to endOfDay (returns nil) when the horizon is never
// reached within the supplied bars.
func (s Strategy) evalMaxHoldTime(entryTs time.Time, bars []types.Bar) *types.ExitSignal {
	if s.HoldMinutes <= 0 {
		return nil
	}
	deadline := entryTs.Add(time.Duration(s.HoldMinutes) * time.Minute)
	for _, b := range bars {
		if !b.Ts.Before(deadline) {
			return &types.ExitSignal{Ts: b.Ts, Price: b.Close, Type: "exit", Reason: types.ExitMaxHoldTime}
		}
	}
	return nil
}
