package llm

import (
	"context"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/types"
)

// NoopCaller votes do_nothing on every call at zero cost. Used when no
// provider is configured so dry runs exercise the full pipeline.
type NoopCaller struct{}

var _ interfaces.VoteCaller = (*NoopCaller)(nil)

func NewNoopCaller() *NoopCaller { return &NoopCaller{} }

func (n *NoopCaller) GetTradeDecisions(_ context.Context, _ string, calls []interfaces.VoteCall, _ map[string]any) []types.LLMResponse {
	out := make([]types.LLMResponse, len(calls))
	for i := range out {
		out[i] = types.LLMResponse{Action: types.ActionNone, Rationalization: "noop caller"}
	}
	return out
}
