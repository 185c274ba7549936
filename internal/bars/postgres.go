// Package bars serves historical minute bars from the configured source.
package bars

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/types"
)

// Postgres reads bars from a minute_bars table.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ interfaces.BarProvider = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) FetchBarsForTradingDay(ctx context.Context, ticker, timeframe, tradeDate string, fromTime time.Time) ([]types.Bar, error) {
	const q = `
		SELECT ts, open, high, low, close, volume, trade_date
		FROM minute_bars
		WHERE ticker = $1 AND timeframe = $2 AND trade_date = $3 AND ts >= $4
		ORDER BY ts ASC`

	rows, err := p.pool.Query(ctx, q, ticker, timeframe, tradeDate, fromTime)
	if err != nil {
		return nil, fmt.Errorf("query day bars: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

func (p *Postgres) FetchBarsForATR(ctx context.Context, ticker, timeframe, tradeDate string, fromTime time.Time, lookback int) ([]types.Bar, error) {
	// lookback+1 bars so the first true range has a prior close.
	const q = `
		SELECT ts, open, high, low, close, volume, trade_date
		FROM minute_bars
		WHERE ticker = $1 AND timeframe = $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := p.pool.Query(ctx, q, ticker, timeframe, fromTime, lookback+1)
	if err != nil {
		return nil, fmt.Errorf("query atr bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	// Restore ascending order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBars(rows pgxRows) ([]types.Bar, error) {
	var bars []types.Bar
	for rows.Next() {
		var b types.Bar
		var td time.Time
		if err := rows.Scan(&b.Ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &td); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.TradeDate = td.Format("2006-01-02")
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}
