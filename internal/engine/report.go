package engine

import (
	"fmt"

	"intraday-scanner/internal/types"
)

func (e *Engine) printYearHeader(year int) {
	fmt.Fprintln(e.out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(e.out, "║                     Processing year %d                      ║\n", year)
	fmt.Fprintln(e.out, "╚══════════════════════════════════════════════════════════════╝")
}

func (e *Engine) printTradeLine(t types.Trade) {
	marker := "🟢"
	if t.ReturnPct <= 0 {
		marker = "🔴"
	}
	fmt.Fprintf(e.out, "%s %s %-5s %s  entry %.2f → exit %.2f  %+.2f%%  (%s)\n",
		marker, t.TradeDate, t.Direction, t.EntryTs.Format("15:04"),
		t.EntryPrice, t.ExitPrice, t.ReturnPct, t.ExitReason)
}

func (e *Engine) printYearSummary(year int, long, short *DirectionStats, cost float64) {
	fmt.Fprintln(e.out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintf(e.out, "                        %d Summary\n", year)
	fmt.Fprintln(e.out, "═══════════════════════════════════════════════════════════════")
	printDirection(e, "Long", long)
	printDirection(e, "Short", short)
	if cost > 0 {
		fmt.Fprintf(e.out, "LLM cost:         $%.4f\n", cost)
	}
	fmt.Fprintln(e.out)
}

func printDirection(e *Engine, label string, s *DirectionStats) {
	if s.Count() == 0 {
		return
	}
	fmt.Fprintf(e.out, "%-5s trades:     %d\n", label, s.Count())
	fmt.Fprintf(e.out, "  Win rate:       %.1f%% (%d/%d)\n", s.WinRate(), s.WinningTrades, s.Count())
	fmt.Fprintf(e.out, "  Avg return:     %+.2f%%\n", s.AvgReturn())
	fmt.Fprintf(e.out, "  Total return:   %+.2f%%\n", s.TotalReturnSum)
}

// Finalize prints the run-level summary across all years.
func (e *Engine) Finalize(res *Result) {
	fmt.Fprintln(e.out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(e.out, "                       Overall Results")
	fmt.Fprintln(e.out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintf(e.out, "Confirmed trades:   %d\n", res.Confirmed)
	fmt.Fprintf(e.out, "Skipped candidates: %d\n", res.Skipped)
	printDirection(e, "Long", &res.Long)
	printDirection(e, "Short", &res.Short)
	if res.TotalLLMCost > 0 {
		fmt.Fprintf(e.out, "Total LLM cost:     $%.4f\n", res.TotalLLMCost)
	}
}
