// Package marketmeta gathers optional market context (index level, top
// headlines) passed to the LLM screen alongside each chart.
package marketmeta

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"intraday-scanner/internal/logger"
)

const (
	headlinesURL = "https://finance.yahoo.com/topic/stock-market-news/"
	indexURL     = "https://finance.yahoo.com/quote/%5EGSPC/"
	maxHeadlines = 5
)

type Service struct {
	enabled bool
	timeout time.Duration
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled, timeout: 10 * time.Second}
}

// Fetch returns the context map for the screen, or nil when disabled.
// Every failure degrades to a partial (possibly empty) map; screening works
// fine without market context.
func (s *Service) Fetch(ctx context.Context) map[string]any {
	if s == nil || !s.enabled {
		return nil
	}

	metrics := map[string]any{}

	if level, ok := s.fetchIndexLevel(ctx); ok {
		metrics["sp500"] = level
	}
	if headlines := s.fetchHeadlines(ctx); len(headlines) > 0 {
		metrics["headlines"] = headlines
	}

	logger.Info(ctx, "Market context fetched", "fields", len(metrics))
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

// fetchIndexLevel parses the S&P 500 quote page.
func (s *Service) fetchIndexLevel(ctx context.Context) (float64, bool) {
	client := &http.Client{Timeout: s.timeout}
	req, err := http.NewRequestWithContext(ctx, "GET", indexURL, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn(ctx, "Index quote fetch failed", "error", err)
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "Index quote fetch failed", "status", resp.StatusCode)
		return 0, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, false
	}

	raw, ok := doc.Find(`fin-streamer[data-field="regularMarketPrice"]`).First().Attr("data-value")
	if !ok {
		raw = strings.TrimSpace(doc.Find(`fin-streamer[data-field="regularMarketPrice"]`).First().Text())
	}
	raw = strings.ReplaceAll(raw, ",", "")
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return level, true
}

// fetchHeadlines scrapes the top market headlines.
func (s *Service) fetchHeadlines(ctx context.Context) []string {
	var headlines []string

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)

	c.OnHTML("h3", func(e *colly.HTMLElement) {
		if len(headlines) >= maxHeadlines {
			return
		}
		text := strings.TrimSpace(e.Text)
		if len(text) > 20 {
			headlines = append(headlines, text)
		}
	})

	if err := c.Visit(headlinesURL); err != nil {
		logger.Warn(ctx, "Headline scrape failed", "error", err)
		return nil
	}
	c.Wait()
	return headlines
}
