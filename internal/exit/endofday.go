package exit

import (
	"time"

	"intraday-scanner/internal/types"
)

// evalEndOfDay exits at the close of the first bar at or past the configured
// close time; on early-close days with no such bar it falls back to the last
// available bar of the trade date. The universal fallback: every trade
// resolves to some exit.
func (s Strategy) evalEndOfDay(bars []types.Bar) *types.ExitSignal {
	if len(bars) == 0 {
		return nil
	}

	closeTime := s.CloseTime
	if closeTime == "" {
		closeTime = "15:55"
	}
	cutoff, err := time.ParseInLocation("2006-01-02 15:04", bars[0].TradeDate+" "+closeTime, bars[0].Ts.Location())
	if err != nil {
		last := bars[len(bars)-1]
		return &types.ExitSignal{Ts: last.Ts, Price: last.Close, Type: "exit", Reason: types.ExitEndOfDay}
	}

	for _, b := range bars {
		if !b.Ts.Before(cutoff) {
			return &types.ExitSignal{Ts: b.Ts, Price: b.Close, Type: "exit", Reason: types.ExitEndOfDay}
		}
	}

	last := bars[len(bars)-1]
	return &types.ExitSignal{Ts: last.Ts, Price: last.Close, Type: "exit", Reason: types.ExitEndOfDay}
}
