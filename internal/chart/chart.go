// Package chart renders candidate-signal charts consumed by the LLM screen.
package chart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/logger"
	"intraday-scanner/internal/types"
)

// Renderer writes one PNG per signal into outputDir. Render failures are
// absorbed: callers receive "" and must tolerate it.
type Renderer struct {
	outputDir string
}

var _ interfaces.ChartGenerator = (*Renderer)(nil)

func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

func (r *Renderer) GenerateChartForSignal(ctx context.Context, sig types.Signal, bars []types.Bar) string {
	if len(bars) < 2 {
		logger.Warn(ctx, "Not enough bars to render chart", "ticker", sig.Ticker, "trade_date", sig.TradeDate)
		return ""
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		logger.Warn(ctx, "Failed to create chart dir", "dir", r.outputDir, "error", err)
		return ""
	}

	xs := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		xs[i] = chart.TimeToFloat64(b.Ts)
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s %s", sig.Ticker, sig.TradeDate),
		Width:  1024,
		Height: 512,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeMinuteValueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "high",
				XValues: xs,
				YValues: highs,
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGray},
			},
			chart.ContinuousSeries{
				Name:    "low",
				XValues: xs,
				YValues: lows,
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGray},
			},
			chart.ContinuousSeries{
				Name:    "close",
				XValues: xs,
				YValues: closes,
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{
					{XValue: chart.TimeToFloat64(sig.EntryTs), YValue: sig.EntryPrice, Label: "entry"},
				},
			},
		},
	}

	name := fmt.Sprintf("%s_%s_%s.png", sig.Ticker, sig.TradeDate, sig.EntryTs.Format("1504"))
	path := filepath.Join(r.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		logger.Warn(ctx, "Failed to create chart file", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		logger.Warn(ctx, "Chart render failed", "path", path, "error", err)
		os.Remove(path)
		return ""
	}
	return path
}
