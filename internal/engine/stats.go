package engine

import "intraday-scanner/internal/types"

// DirectionStats accumulates confirmed trades for one direction. Two
// independent instances exist per run; they are reported separately and only
// their counts are ever combined.
type DirectionStats struct {
	Trades         []types.Trade
	WinningTrades  int
	TotalReturnSum float64
	Returns        []float64
}

func (s *DirectionStats) add(t types.Trade) {
	s.Trades = append(s.Trades, t)
	s.Returns = append(s.Returns, t.ReturnPct)
	s.TotalReturnSum += t.ReturnPct
	if t.ReturnPct > 0 {
		s.WinningTrades++
	}
}

func (s *DirectionStats) Count() int { return len(s.Trades) }

func (s *DirectionStats) WinRate() float64 {
	if len(s.Trades) == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(len(s.Trades)) * 100.0
}

func (s *DirectionStats) AvgReturn() float64 {
	if len(s.Trades) == 0 {
		return 0
	}
	return s.TotalReturnSum / float64(len(s.Trades))
}

// Result is the outcome of a full run.
type Result struct {
	Confirmed    int
	Skipped      int
	Long         DirectionStats
	Short        DirectionStats
	TotalLLMCost float64
}
