package exit

import (
	"math"

	"intraday-scanner/internal/store"
)

// Level is a resolved stop or target price with its provenance, recorded on
// the output trade so realized levels can be audited against intended ones.
type Level struct {
	Value    float64
	AtrBased bool
	LlmBased bool
	Valid    bool
}

// ResolveStopLoss picks exactly one of three paths, in order: the averaged
// LLM-proposed price when the strategy opts in and the screen supplied one,
// else the ATR-based level, else percent-from-entry. Insufficient ATR data
// degrades to the percent path, never errors.
func ResolveStopLoss(s store.LevelSettings, entry float64, isLong bool, atr float64, llmProposed *float64) Level {
	if s.UseLlmProposedPrice && llmProposed != nil && !math.IsNaN(*llmProposed) {
		return Level{Value: *llmProposed, LlmBased: true, Valid: true}
	}
	if usableATR(atr) && s.ATRMultiplier > 0 {
		return Level{Value: stopLevel(entry, isLong, atr, s.ATRMultiplier, 0), AtrBased: true, Valid: true}
	}
	return Level{Value: stopLevel(entry, isLong, 0, 0, s.PercentFromEntry), Valid: true}
}

// ResolveProfitTarget mirrors ResolveStopLoss on the favorable side.
func ResolveProfitTarget(s store.LevelSettings, entry float64, isLong bool, atr float64, llmProposed *float64) Level {
	if s.UseLlmProposedPrice && llmProposed != nil && !math.IsNaN(*llmProposed) {
		return Level{Value: *llmProposed, LlmBased: true, Valid: true}
	}
	if usableATR(atr) && s.ATRMultiplier > 0 {
		return Level{Value: targetLevel(entry, isLong, atr, s.ATRMultiplier, 0), AtrBased: true, Valid: true}
	}
	return Level{Value: targetLevel(entry, isLong, 0, 0, s.PercentFromEntry), Valid: true}
}

func usableATR(atr float64) bool {
	return atr > 0 && !math.IsNaN(atr)
}
