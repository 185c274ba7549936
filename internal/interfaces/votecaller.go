package interfaces

import (
	"context"

	"intraday-scanner/internal/types"
)

// VoteCall describes one model invocation of a screening ensemble.
type VoteCall struct {
	Prompt      string
	Temperature float64
}

// VoteCaller executes one ensemble of model calls for a candidate signal.
// Implementations return exactly one response per call; a failed call is
// reported inside its response (do_nothing action, Err set), never as an
// overall error.
type VoteCaller interface {
	GetTradeDecisions(ctx context.Context, chartPath string, calls []VoteCall, marketMetrics map[string]any) []types.LLMResponse
}
