package bars

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/types"
)

// Kite serves bars from the Zerodha Kite historical data API for tickers not
// mirrored into Postgres.
type Kite struct {
	client          *kiteconnect.Client
	instrumentToken int
}

var _ interfaces.BarProvider = (*Kite)(nil)

func NewKite(apiKey, accessToken string, instrumentToken int) *Kite {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &Kite{client: kc, instrumentToken: instrumentToken}
}

func (k *Kite) FetchBarsForTradingDay(_ context.Context, _, timeframe, tradeDate string, fromTime time.Time) ([]types.Bar, error) {
	dayEnd, err := time.ParseInLocation("2006-01-02 15:04", tradeDate+" 23:59", fromTime.Location())
	if err != nil {
		return nil, fmt.Errorf("parse trade date %q: %w", tradeDate, err)
	}
	return k.fetch(timeframe, tradeDate, fromTime, dayEnd)
}

func (k *Kite) FetchBarsForATR(_ context.Context, _, timeframe, tradeDate string, fromTime time.Time, lookback int) ([]types.Bar, error) {
	// Over-fetch a day back so weekends/holidays still leave enough bars,
	// then keep the trailing lookback+1.
	from := fromTime.Add(-36 * time.Hour)
	bars, err := k.fetch(timeframe, tradeDate, from, fromTime)
	if err != nil {
		return nil, err
	}
	if len(bars) > lookback+1 {
		bars = bars[len(bars)-lookback-1:]
	}
	return bars, nil
}

func (k *Kite) fetch(timeframe, tradeDate string, from, to time.Time) ([]types.Bar, error) {
	data, err := k.client.GetHistoricalData(k.instrumentToken, timeframe, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("kite historical data: %w", err)
	}

	bars := make([]types.Bar, 0, len(data))
	for _, d := range data {
		bars = append(bars, types.Bar{
			Ts:        d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
			TradeDate: tradeDate,
		})
	}
	return bars, nil
}
