package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"intraday-scanner/internal/bars"
	"intraday-scanner/internal/chart"
	"intraday-scanner/internal/discovery"
	"intraday-scanner/internal/engine"
	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/llm"
	"intraday-scanner/internal/llm/llmobs"
	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/marketmeta"
	"intraday-scanner/internal/screen"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/trace"
	"intraday-scanner/internal/tradelog"
)

func run(ctx context.Context, cfg *store.Config) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	if err := trace.Init(); err != nil {
		logger.Warn(ctx, "Tracing init failed, continuing without tracing", "error", err)
	}
	defer trace.Shutdown(context.Background())

	// Signal discovery always reads from Postgres; only bar fetching is
	// switchable between sources.
	dsn := cfg.Data.PostgresDSN
	if dsn == "" {
		dsn = os.Getenv("SCANNER_POSTGRES_DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pool.Close()

	var provider interfaces.BarProvider
	switch cfg.Data.Source {
	case "KITE":
		provider = bars.NewKite(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Data.InstrumentToken)
	default:
		provider = bars.NewPostgres(pool)
	}

	var screener engine.Screener
	if cfg.LLMScreen.Enabled {
		var caller interfaces.VoteCaller
		switch cfg.LLMScreen.Provider {
		case "OPENAI":
			caller = llm.NewOpenAICaller(cfg)
		case "CLAUDE":
			caller = llm.NewClaudeCaller(cfg)
		default:
			logger.Warn(ctx, "Unknown LLM provider, using noop caller", "provider", cfg.LLMScreen.Provider)
			caller = llm.NewNoopCaller()
		}
		screener = screen.New(cfg, llmobs.Wrap(caller))
	}

	var renderer interfaces.ChartGenerator
	if cfg.Charts.Enabled || cfg.LLMScreen.Enabled {
		renderer = chart.NewRenderer(cfg.Charts.OutputDir)
	}

	metrics := marketmeta.NewService(cfg.MarketContext.Enabled).Fetch(ctx)

	candidates, err := discovery.NewScanner(pool, cfg).FindSignals(ctx)
	if err != nil {
		return fmt.Errorf("signal discovery: %w", err)
	}
	logger.Info(ctx, "Discovery complete", "ticker", cfg.Ticker, "candidates", len(candidates))
	if len(candidates) == 0 {
		fmt.Println("No candidate signals found for the configured window.")
		return nil
	}

	eng := engine.New(engine.Deps{
		Cfg:           cfg,
		Bars:          provider,
		Charts:        renderer,
		Screen:        screener,
		Journal:       tradelog.Append,
		MarketMetrics: metrics,
	})
	res, err := eng.ProcessTrades(ctx, candidates)
	if err != nil {
		return err
	}
	eng.Finalize(res)
	return nil
}
