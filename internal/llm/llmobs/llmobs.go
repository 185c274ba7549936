package llmobs

import (
	"context"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/trace"
	"intraday-scanner/internal/types"
)

// observableCaller wraps a VoteCaller with logging and tracing.
type observableCaller struct {
	caller interfaces.VoteCaller
}

var _ interfaces.VoteCaller = (*observableCaller)(nil)

// Wrap wraps a vote caller with observability middleware
func Wrap(caller interfaces.VoteCaller) interfaces.VoteCaller {
	return &observableCaller{caller: caller}
}

func (oc *observableCaller) GetTradeDecisions(ctx context.Context, chartPath string, calls []interfaces.VoteCall, metrics map[string]any) []types.LLMResponse {
	ctx, span := trace.StartSpan(ctx, "llm.GetTradeDecisions")
	defer span.End()

	timer := logger.StartOperation(ctx, "screen-ensemble", "calls", len(calls))
	responses := oc.caller.GetTradeDecisions(timer.GetContext(), chartPath, calls, metrics)

	failed := 0
	var cost float64
	for _, r := range responses {
		cost += r.Cost
		if r.Err != "" {
			failed++
		}
	}
	timer.End("failed", failed, "cost_usd", cost)
	return responses
}
