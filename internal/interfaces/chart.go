package interfaces

import (
	"context"

	"intraday-scanner/internal/types"
)

// ChartGenerator renders a chart image for a candidate signal and returns the
// file path. Implementations return "" on failure; callers must tolerate it.
type ChartGenerator interface {
	GenerateChartForSignal(ctx context.Context, sig types.Signal, bars []types.Bar) string
}
