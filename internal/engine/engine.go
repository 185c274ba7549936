// Package engine drives the trade loop: screening, exit simulation, slippage,
// and per-direction statistics over the candidate signals of a run.
package engine

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"intraday-scanner/internal/exit"
	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/ta"
	"intraday-scanner/internal/types"
)

// Screener is the consensus-screen surface the engine consumes.
type Screener interface {
	Evaluate(ctx context.Context, sig types.Signal, chartPath string, metrics map[string]any) types.ScreenDecision
}

// Deps wires the engine's collaborators. Charts, Screen, Journal and
// MarketMetrics are optional.
type Deps struct {
	Cfg           *store.Config
	Bars          interfaces.BarProvider
	Charts        interfaces.ChartGenerator
	Screen        Screener
	Journal       func(types.Trade) error
	MarketMetrics map[string]any
}

type Engine struct {
	deps Deps
	out  io.Writer
}

func New(deps Deps) *Engine {
	return &Engine{deps: deps, out: os.Stdout}
}

// SetOutput redirects report output (used by tests).
func (e *Engine) SetOutput(w io.Writer) { e.out = w }

// tradeOutcome is the result of evaluating one candidate inside a day task.
type tradeOutcome struct {
	trade   *types.Trade // nil when the candidate was skipped
	cost    float64      // screening cost, accrued even on skip
	skipped bool
}

type dayGroup struct {
	date    string
	signals []types.Signal
}

type dayResult struct {
	date     string
	outcomes []tradeOutcome
}

// ProcessTrades evaluates every candidate and returns the aggregate result.
// Years run strictly sequentially; days within a year run concurrently up to
// max_concurrent_days, with results re-sorted into chronological order before
// any statistics or output are produced, so the run is deterministic
// regardless of I/O completion order.
func (e *Engine) ProcessTrades(ctx context.Context, candidates []types.Signal) (*Result, error) {
	sorted := make([]types.Signal, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TradeDate != sorted[j].TradeDate {
			return sorted[i].TradeDate < sorted[j].TradeDate
		}
		return sorted[i].EntryTs.Before(sorted[j].EntryTs)
	})

	res := &Result{}
	for _, yg := range groupByYear(sorted) {
		e.printYearHeader(yg.year)

		days := groupByDay(yg.signals)
		results := make([]dayResult, len(days))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.deps.Cfg.MaxConcurrentDays)
		for i, day := range days {
			i, day := i, day
			g.Go(func() error {
				// Failures inside a day are absorbed per candidate;
				// a day task never fails its siblings.
				results[i] = e.processDay(gctx, day)
				return nil
			})
		}
		_ = g.Wait()

		// Sequential fold in chronological order: the only place shared
		// accumulators are touched.
		var yearLong, yearShort DirectionStats
		var yearCost float64
		for _, dr := range results {
			for _, o := range dr.outcomes {
				res.TotalLLMCost += o.cost
				yearCost += o.cost
				if o.skipped || o.trade == nil {
					res.Skipped++
					continue
				}
				t := *o.trade
				e.printTradeLine(t)
				if t.Direction == types.ActionShort {
					res.Short.add(t)
					yearShort.add(t)
				} else {
					res.Long.add(t)
					yearLong.add(t)
				}
				res.Confirmed++
				if e.deps.Journal != nil {
					if err := e.deps.Journal(t); err != nil {
						logger.Warn(ctx, "Failed to journal trade", "trade_date", t.TradeDate, "error", err)
					}
				}
			}
		}

		if yearLong.Count()+yearShort.Count() > 0 {
			e.printYearSummary(yg.year, &yearLong, &yearShort, yearCost)
		}
	}
	return res, nil
}

func (e *Engine) processDay(ctx context.Context, day dayGroup) dayResult {
	dr := dayResult{date: day.date, outcomes: make([]tradeOutcome, len(day.signals))}
	for i, sig := range day.signals {
		dr.outcomes[i] = e.processCandidate(ctx, sig)
	}
	return dr
}

func (e *Engine) processCandidate(ctx context.Context, sig types.Signal) tradeOutcome {
	cfg := e.deps.Cfg

	// Fetch from the start of the trading day so charts show the pre-entry
	// context; the exit search itself only looks at bars after the entry.
	dayStart := time.Date(sig.EntryTs.Year(), sig.EntryTs.Month(), sig.EntryTs.Day(), 0, 0, 0, 0, sig.EntryTs.Location())
	dayBars, err := e.deps.Bars.FetchBarsForTradingDay(ctx, sig.Ticker, cfg.Timeframe, sig.TradeDate, dayStart)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch day bars, skipping trade", "trade_date", sig.TradeDate, "error", err)
		return tradeOutcome{skipped: true}
	}
	exitBars := barsAfter(dayBars, sig.EntryTs)
	if len(exitBars) == 0 {
		logger.Warn(ctx, "No bars after entry, skipping trade", "trade_date", sig.TradeDate, "entry", sig.EntryTs)
		return tradeOutcome{skipped: true}
	}

	chartPath := ""
	if e.deps.Charts != nil && (cfg.Charts.Enabled || cfg.LLMScreen.Enabled) {
		chartPath = e.deps.Charts.GenerateChartForSignal(ctx, sig, dayBars)
	}

	direction, decision := e.resolveDirection(ctx, sig, chartPath)
	if decision != nil && !decision.Proceed {
		// Screening cost is sunk once the calls are made.
		return tradeOutcome{skipped: true, cost: decision.Cost}
	}
	isLong := direction != types.ActionShort

	atr := 0.0
	if needsATR(cfg) {
		atr = e.fetchATR(ctx, sig)
	}

	var stop, target exit.Level
	var avgStop, avgTarget *float64
	if decision != nil {
		avgStop, avgTarget = decision.AvgProposedStop, decision.AvgProposedTarget
	}
	if enabled(cfg, "stopLoss") {
		stop = exit.ResolveStopLoss(cfg.ExitStrategies.StopLoss, sig.EntryPrice, isLong, atr, avgStop)
	}
	if enabled(cfg, "profitTarget") {
		target = exit.ResolveProfitTarget(cfg.ExitStrategies.ProfitTarget, sig.EntryPrice, isLong, atr, avgTarget)
	}

	strategies := exit.FromConfig(cfg, stop, target)
	exitSig, ok := exit.FirstTriggered(strategies, sig.EntryPrice, sig.EntryTs, exitBars, isLong, atr)
	if !ok {
		// The end-of-day fallback guarantees an exit for any non-empty bar
		// set; reaching this is a bug, not a data problem.
		logger.Error(ctx, "No exit signal resolved despite available bars, skipping trade",
			"trade_date", sig.TradeDate, "entry", sig.EntryTs)
		return tradeOutcome{skipped: true, cost: screenCost(decision)}
	}

	exitPrice := exit.ApplySlippage(exitSig.Price, isLong, cfg.Slippage.Model, cfg.Slippage.Value)
	returnPct := (exitPrice - sig.EntryPrice) / sig.EntryPrice * 100.0
	if !isLong {
		returnPct = (sig.EntryPrice - exitPrice) / sig.EntryPrice * 100.0
	}

	t := types.Trade{
		Ticker:     sig.Ticker,
		Direction:  direction,
		EntryTs:    sig.EntryTs,
		ExitTs:     exitSig.Ts,
		EntryPrice: sig.EntryPrice,
		ExitPrice:  exitPrice,
		TradeDate:  sig.TradeDate,
		ReturnPct:  returnPct,
		ExitReason: exitSig.Reason,
		ChartPath:  chartPath,
	}
	if stop.Valid {
		v := stop.Value
		t.InitialStop = &v
		t.StopAtrBased = stop.AtrBased
		t.StopLlmBased = stop.LlmBased
	}
	if target.Valid {
		v := target.Value
		t.InitialTarget = &v
		t.TargetAtrBased = target.AtrBased
		t.TargetLlmBased = target.LlmBased
	}

	logger.TradeClosed(ctx, t.Ticker, string(t.Direction), t.EntryPrice, t.ExitPrice, t.ReturnPct, string(t.ExitReason),
		"trade_date", t.TradeDate)
	return tradeOutcome{trade: &t, cost: screenCost(decision)}
}

// resolveDirection determines the working direction, running the screen when
// enabled. A nil decision means no screening happened.
func (e *Engine) resolveDirection(ctx context.Context, sig types.Signal, chartPath string) (types.Action, *types.ScreenDecision) {
	cfg := e.deps.Cfg

	if e.deps.Screen != nil && cfg.LLMScreen.Enabled {
		d := e.deps.Screen.Evaluate(ctx, sig, chartPath, e.deps.MarketMetrics)
		if !d.Proceed {
			return types.ActionNone, &d
		}
		if cfg.Direction == "llm_decides" {
			return d.Direction, &d
		}
		return types.Action(cfg.Direction), &d
	}

	if cfg.Direction == "llm_decides" {
		// Degraded mode: decide-for-me with no screen configured.
		logger.Warn(ctx, "direction is llm_decides but no screen is configured, defaulting to long",
			"trade_date", sig.TradeDate)
		return types.ActionLong, nil
	}
	return types.Action(cfg.Direction), nil
}

func (e *Engine) fetchATR(ctx context.Context, sig types.Signal) float64 {
	cfg := e.deps.Cfg
	atrBars, err := e.deps.Bars.FetchBarsForATR(ctx, sig.Ticker, cfg.ATR.Timeframe, sig.TradeDate, sig.EntryTs, cfg.ATR.Period)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch ATR bars, using default ATR", "trade_date", sig.TradeDate, "error", err)
		return ta.DefaultATR
	}
	return ta.CalculateATR(atrBars, cfg.ATR.Period)
}

func screenCost(d *types.ScreenDecision) float64 {
	if d == nil {
		return 0
	}
	return d.Cost
}

func needsATR(cfg *store.Config) bool {
	if enabled(cfg, "stopLoss") && cfg.ExitStrategies.StopLoss.ATRMultiplier > 0 {
		return true
	}
	if enabled(cfg, "profitTarget") && cfg.ExitStrategies.ProfitTarget.ATRMultiplier > 0 {
		return true
	}
	return false
}

func enabled(cfg *store.Config, name string) bool {
	for _, s := range cfg.ExitStrategies.Enabled {
		if s == name {
			return true
		}
	}
	return false
}

// barsAfter returns bars strictly later than the entry timestamp; the entry
// bar itself is excluded from the exit search.
func barsAfter(bars []types.Bar, entryTs time.Time) []types.Bar {
	for i, b := range bars {
		if b.Ts.After(entryTs) {
			return bars[i:]
		}
	}
	return nil
}

type yearGroup struct {
	year    int
	signals []types.Signal
}

func groupByYear(sorted []types.Signal) []yearGroup {
	var groups []yearGroup
	for _, s := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].year != s.Year {
			groups = append(groups, yearGroup{year: s.Year})
		}
		g := &groups[len(groups)-1]
		g.signals = append(g.signals, s)
	}
	return groups
}

func groupByDay(signals []types.Signal) []dayGroup {
	var groups []dayGroup
	for _, s := range signals {
		if len(groups) == 0 || groups[len(groups)-1].date != s.TradeDate {
			groups = append(groups, dayGroup{date: s.TradeDate})
		}
		g := &groups[len(groups)-1]
		g.signals = append(g.signals, s)
	}
	return groups
}
