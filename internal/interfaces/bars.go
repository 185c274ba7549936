package interfaces

import (
	"context"
	"time"

	"intraday-scanner/internal/types"
)

// BarProvider serves historical bars, ascending by timestamp.
type BarProvider interface {
	// FetchBarsForTradingDay returns the bars of one trading day starting at
	// fromTime. May be empty.
	FetchBarsForTradingDay(ctx context.Context, ticker, timeframe, tradeDate string, fromTime time.Time) ([]types.Bar, error)

	// FetchBarsForATR returns up to lookback+1 bars ending at fromTime,
	// suitable for an ATR computation over lookback periods.
	FetchBarsForATR(ctx context.Context, ticker, timeframe, tradeDate string, fromTime time.Time, lookback int) ([]types.Bar, error)
}
