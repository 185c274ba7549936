// Package screen aggregates an ensemble of independent model votes into a
// single go/no-go trading decision with calibrated cost accounting.
package screen

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/types"
)

type Screen struct {
	cfg    *store.Config
	caller interfaces.VoteCaller

	promptWarn sync.Once
}

func New(cfg *store.Config, caller interfaces.VoteCaller) *Screen {
	return &Screen{cfg: cfg, caller: caller}
}

// Evaluate runs the configured number of model calls for one signal and
// folds the votes into a ScreenDecision. Individual call failures degrade to
// do_nothing votes; the batch never aborts. Cost accrues on every decision,
// proceed or not.
func (s *Screen) Evaluate(ctx context.Context, sig types.Signal, chartPath string, metrics map[string]any) types.ScreenDecision {
	calls := s.buildCalls(ctx)

	// The model layer only ever sees an anonymized copy of the chart, so
	// nothing identifying from the generation step leaks through the
	// filename. The copy is removed no matter how the calls end.
	tmpPath, cleanup, err := stageChart(chartPath)
	if err != nil {
		logger.Warn(ctx, "Failed to stage chart copy, sending original path", "error", err, "chart", chartPath)
		tmpPath = chartPath
	}
	defer cleanup()

	responses := s.caller.GetTradeDecisions(ctx, tmpPath, calls, metrics)
	for i := range responses {
		if responses[i].Err != "" {
			logger.Warn(ctx, "Screen call failed, counting as do_nothing",
				"ticker", sig.Ticker, "call", i, "error", responses[i].Err)
			responses[i].Action = types.ActionNone
		}
	}

	decision := s.decide(responses)
	logger.Screen(ctx, sig.Ticker, decision.Proceed, string(decision.Direction), decision.Cost, decision.Rationale,
		"trade_date", sig.TradeDate, "entry", sig.EntryPrice)

	if s.cfg.LLMScreen.Debug {
		decision.Responses = responses
	}
	return decision
}

// buildCalls pairs each call with its prompt and temperature. A prompt list
// whose length does not match num_calls falls back to the first prompt for
// every call (warned once, never fatal). Temperatures cycle when fewer than
// num_calls are configured.
func (s *Screen) buildCalls(ctx context.Context) []interfaces.VoteCall {
	cfg := s.cfg.LLMScreen
	prompts := cfg.Prompts
	if len(prompts) != cfg.NumCalls {
		if len(prompts) > 0 {
			s.promptWarn.Do(func() {
				logger.Warn(ctx, "Prompt count does not match num_calls, using first prompt for all calls",
					"prompts", len(prompts), "num_calls", cfg.NumCalls)
			})
			first := prompts[0]
			prompts = make([]string, cfg.NumCalls)
			for i := range prompts {
				prompts[i] = first
			}
		} else {
			prompts = make([]string, cfg.NumCalls)
		}
	}

	calls := make([]interfaces.VoteCall, cfg.NumCalls)
	for i := 0; i < cfg.NumCalls; i++ {
		temp := 0.0
		if len(cfg.Temperatures) > 0 {
			temp = cfg.Temperatures[i%len(cfg.Temperatures)]
		}
		calls[i] = interfaces.VoteCall{Prompt: prompts[i], Temperature: temp}
	}
	return calls
}

// decide folds the votes under the configured direction mode.
func (s *Screen) decide(responses []types.LLMResponse) types.ScreenDecision {
	var cost float64
	longVotes, shortVotes := 0, 0
	for _, r := range responses {
		cost += r.Cost
		switch r.Action {
		case types.ActionLong:
			longVotes++
		case types.ActionShort:
			shortVotes++
		}
	}

	threshold := s.cfg.LLMScreen.AgreementThreshold
	d := types.ScreenDecision{Cost: cost}

	switch s.cfg.Direction {
	case "long", "short":
		// Fixed-direction mode: only the configured direction can trade,
		// however lopsided the opposite consensus.
		want := types.Action(s.cfg.Direction)
		votes := longVotes
		if want == types.ActionShort {
			votes = shortVotes
		}
		if votes >= threshold {
			d.Proceed = true
			d.Direction = want
			d.Rationale = firstRationale(responses, want)
		} else {
			d.Rationale = fmt.Sprintf("%d/%d %s votes below threshold %d", votes, len(responses), want, threshold)
		}
	default: // llm_decides
		// A direction must both meet the threshold and strictly beat the
		// other; ties are a deliberate no-trade, never a coin flip.
		switch {
		case longVotes >= threshold && longVotes > shortVotes:
			d.Proceed = true
			d.Direction = types.ActionLong
			d.Rationale = firstRationale(responses, types.ActionLong)
		case shortVotes >= threshold && shortVotes > longVotes:
			d.Proceed = true
			d.Direction = types.ActionShort
			d.Rationale = firstRationale(responses, types.ActionShort)
		default:
			d.Rationale = fmt.Sprintf("no decisive consensus (long=%d short=%d threshold=%d)", longVotes, shortVotes, threshold)
		}
	}

	if d.Proceed {
		d.AvgProposedStop, d.AvgProposedTarget = averageProposedPrices(responses, d.Direction)
	}
	return d
}

// averageProposedPrices averages the stop/target proposals of only the
// responses that voted the winning direction and supplied a valid numeric
// value; each average is independent and nil when no value qualifies.
func averageProposedPrices(responses []types.LLMResponse, winning types.Action) (stop, target *float64) {
	var stopSum, targetSum float64
	stopN, targetN := 0, 0
	for _, r := range responses {
		if r.Action != winning {
			continue
		}
		if r.StopLoss != nil && !math.IsNaN(*r.StopLoss) {
			stopSum += *r.StopLoss
			stopN++
		}
		if r.ProfitTarget != nil && !math.IsNaN(*r.ProfitTarget) {
			targetSum += *r.ProfitTarget
			targetN++
		}
	}
	if stopN > 0 {
		v := stopSum / float64(stopN)
		stop = &v
	}
	if targetN > 0 {
		v := targetSum / float64(targetN)
		target = &v
	}
	return stop, target
}

func firstRationale(responses []types.LLMResponse, dir types.Action) string {
	for _, r := range responses {
		if r.Action == dir && r.Rationalization != "" {
			return r.Rationalization
		}
	}
	return ""
}

// stageChart copies the chart to a randomly named temp file. The cleanup
// func is safe to call unconditionally.
func stageChart(chartPath string) (string, func(), error) {
	noop := func() {}
	if chartPath == "" {
		return "", noop, nil
	}

	src, err := os.Open(chartPath)
	if err != nil {
		return "", noop, err
	}
	defer src.Close()

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(chartPath))
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return "", noop, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return "", noop, err
	}
	return tmpPath, func() { _ = os.Remove(tmpPath) }, nil
}
