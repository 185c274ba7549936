// Package discovery finds candidate entry signals by scanning stored minute
// bars for the configured quick-rise pattern.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/types"
)

type Scanner struct {
	pool *pgxpool.Pool
	cfg  *store.Config
}

func NewScanner(pool *pgxpool.Pool, cfg *store.Config) *Scanner {
	return &Scanner{pool: pool, cfg: cfg}
}

// FindSignals scans the configured date range for bars that closed at least
// rise_percent above the lowest low of the preceding window_minutes, after
// the configured earliest entry time. Results are ascending by timestamp.
func (s *Scanner) FindSignals(ctx context.Context) ([]types.Signal, error) {
	windowMinutes := s.cfg.Pattern.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 5
	}
	fromTime := s.cfg.Pattern.FromTime
	if fromTime == "" {
		fromTime = "09:35"
	}

	// The window is expressed in rows; minute bars make rows and minutes
	// interchangeable within a day.
	q := fmt.Sprintf(`
		WITH windowed AS (
			SELECT ts, trade_date, close,
			       MIN(low) OVER (
			           PARTITION BY trade_date
			           ORDER BY ts
			           ROWS BETWEEN %d PRECEDING AND 1 PRECEDING
			       ) AS window_low
			FROM minute_bars
			WHERE ticker = $1 AND timeframe = $2
			  AND trade_date BETWEEN $3 AND $4
		)
		SELECT trade_date, ts, close
		FROM windowed
		WHERE window_low > 0
		  AND (close - window_low) / window_low * 100.0 >= $5
		  AND ts::time >= $6::time
		ORDER BY ts ASC`, windowMinutes)

	rows, err := s.pool.Query(ctx, q,
		s.cfg.Ticker, s.cfg.Timeframe, s.cfg.FromDate, s.cfg.ToDate,
		s.cfg.Pattern.RisePercent, fromTime)
	if err != nil {
		return nil, fmt.Errorf("signal scan query: %w", err)
	}
	defer rows.Close()

	var signals []types.Signal
	lastDate := ""
	for rows.Next() {
		var td time.Time
		var ts time.Time
		var close float64
		if err := rows.Scan(&td, &ts, &close); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		date := td.Format("2006-01-02")
		// One candidate per trading day: the first qualifying bar.
		if date == lastDate {
			continue
		}
		lastDate = date
		signals = append(signals, types.Signal{
			Ticker:     s.cfg.Ticker,
			EntryTs:    ts,
			EntryPrice: close,
			TradeDate:  date,
			Year:       td.Year(),
			Direction:  types.Action(s.cfg.Direction),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Signal discovery completed",
		"ticker", s.cfg.Ticker,
		"rise_percent", s.cfg.Pattern.RisePercent,
		"window_minutes", windowMinutes,
		"signals", len(signals),
	)
	return signals, nil
}
