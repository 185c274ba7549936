// Package exit simulates trade exits over a day's minute bars. Each strategy
// is a pure evaluator over the bars after entry; an ordered orchestrator picks
// the first one that fires.
package exit

import (
	"time"

	"intraday-scanner/internal/store"
	"intraday-scanner/internal/types"
)

type Kind string

const (
	KindStopLoss     Kind = "stopLoss"
	KindProfitTarget Kind = "profitTarget"
	KindTrailingStop Kind = "trailingStop"
	KindMaxHoldTime  Kind = "maxHoldTime"
	KindEndOfDay     Kind = "endOfDay"
)

// Strategy is one tagged exit-strategy variant. Only the fields relevant to
// its Kind are read.
type Strategy struct {
	Kind Kind

	// stopLoss / profitTarget. Level, when non-zero, is the pre-resolved
	// execution level (the resolver handles LLM-proposed prices); otherwise
	// the evaluator derives it from ATRMultiplier/PercentFromEntry.
	Level            float64
	PercentFromEntry float64
	ATRMultiplier    float64

	// trailingStop
	ActivationPercent float64
	TrailPercent      float64

	// maxHoldTime
	HoldMinutes int

	// endOfDay
	CloseTime string // "15:55"
}

// Evaluate runs the strategy over bars strictly after the entry bar and
// returns the exit it would have produced, or nil when it never triggers.
// Pure function of its inputs.
func (s Strategy) Evaluate(entry float64, entryTs time.Time, bars []types.Bar, isLong bool, atr float64) *types.ExitSignal {
	switch s.Kind {
	case KindStopLoss:
		return s.evalStopLoss(entry, bars, isLong, atr)
	case KindProfitTarget:
		return s.evalProfitTarget(entry, bars, isLong, atr)
	case KindTrailingStop:
		return s.evalTrailingStop(entry, bars, isLong)
	case KindMaxHoldTime:
		return s.evalMaxHoldTime(entryTs, bars)
	case KindEndOfDay:
		return s.evalEndOfDay(bars)
	}
	return nil
}

// FromConfig builds the ordered strategy list from the enabled set. Resolved
// stop/target levels (which may be LLM-proposed) are injected so the
// evaluators execute against the audited numbers.
func FromConfig(cfg *store.Config, stop, target Level) []Strategy {
	out := make([]Strategy, 0, len(cfg.ExitStrategies.Enabled))
	for _, name := range cfg.ExitStrategies.Enabled {
		switch Kind(name) {
		case KindStopLoss:
			s := Strategy{
				Kind:             KindStopLoss,
				PercentFromEntry: cfg.ExitStrategies.StopLoss.PercentFromEntry,
				ATRMultiplier:    cfg.ExitStrategies.StopLoss.ATRMultiplier,
			}
			if stop.Valid {
				s.Level = stop.Value
			}
			out = append(out, s)
		case KindProfitTarget:
			s := Strategy{
				Kind:             KindProfitTarget,
				PercentFromEntry: cfg.ExitStrategies.ProfitTarget.PercentFromEntry,
				ATRMultiplier:    cfg.ExitStrategies.ProfitTarget.ATRMultiplier,
			}
			if target.Valid {
				s.Level = target.Value
			}
			out = append(out, s)
		case KindTrailingStop:
			out = append(out, Strategy{
				Kind:              KindTrailingStop,
				ActivationPercent: cfg.ExitStrategies.TrailingStop.ActivationPercent,
				TrailPercent:      cfg.ExitStrategies.TrailingStop.TrailPercent,
			})
		case KindMaxHoldTime:
			out = append(out, Strategy{
				Kind:        KindMaxHoldTime,
				HoldMinutes: cfg.ExitStrategies.MaxHoldTime.Minutes,
			})
		case KindEndOfDay:
			out = append(out, Strategy{
				Kind:      KindEndOfDay,
				CloseTime: cfg.ExitStrategies.EndOfDay.CloseTime,
			})
		}
	}
	return out
}

// FirstTriggered evaluates the strategies in configured order and returns the
// first signal raised. Configuration order decides which strategy wins when
// several are geometrically hit within the same bar. When none fires, an
// end-of-day exit at the last bar's close is synthesized so every trade
// resolves to exactly one exit. ok is false only when bars is empty.
func FirstTriggered(strategies []Strategy, entry float64, entryTs time.Time, bars []types.Bar, isLong bool, atr float64) (types.ExitSignal, bool) {
	if len(bars) == 0 {
		return types.ExitSignal{}, false
	}
	for _, s := range strategies {
		if sig := s.Evaluate(entry, entryTs, bars, isLong, atr); sig != nil {
			return *sig, true
		}
	}
	last := bars[len(bars)-1]
	return types.ExitSignal{Ts: last.Ts, Price: last.Close, Type: "exit", Reason: types.ExitEndOfDay}, true
}
