package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LevelSettings configures how a stop-loss or profit-target level is derived.
type LevelSettings struct {
	PercentFromEntry    float64 `yaml:"percent_from_entry"`
	ATRMultiplier       float64 `yaml:"atr_multiplier"`
	UseLlmProposedPrice bool    `yaml:"use_llm_proposed_price"`
}

type Config struct {
	Ticker    string `yaml:"ticker"`
	Timeframe string `yaml:"timeframe"`
	FromDate  string `yaml:"from_date"`
	ToDate    string `yaml:"to_date"`
	Direction string `yaml:"direction"` // long | short | llm_decides

	Pattern struct {
		RisePercent   float64 `yaml:"rise_percent"`
		WindowMinutes int     `yaml:"window_minutes"`
		FromTime      string  `yaml:"from_time"` // earliest entry time, "09:35"
	} `yaml:"pattern"`

	ExitStrategies struct {
		Enabled      []string      `yaml:"enabled"` // evaluation order
		StopLoss     LevelSettings `yaml:"stop_loss"`
		ProfitTarget LevelSettings `yaml:"profit_target"`
		TrailingStop struct {
			ActivationPercent       float64 `yaml:"activation_percent"`
			ActivationATRMultiplier float64 `yaml:"activation_atr_multiplier"`
			TrailPercent            float64 `yaml:"trail_percent"`
		} `yaml:"trailing_stop"`
		MaxHoldTime struct {
			Minutes int `yaml:"minutes"`
		} `yaml:"max_hold_time"`
		EndOfDay struct {
			CloseTime string `yaml:"close_time"` // "15:55"
		} `yaml:"end_of_day"`
	} `yaml:"exit_strategies"`

	Slippage struct {
		Model string  `yaml:"model"` // percent | fixed
		Value float64 `yaml:"value"`
	} `yaml:"slippage"`

	LLMScreen struct {
		Enabled            bool      `yaml:"enabled"`
		Provider           string    `yaml:"provider"` // OPENAI | CLAUDE | NOOP
		Model              string    `yaml:"model"`
		NumCalls           int       `yaml:"num_calls"`
		AgreementThreshold int       `yaml:"agreement_threshold"`
		Temperatures       []float64 `yaml:"temperatures"`
		Prompts            []string  `yaml:"prompts"`
		TimeoutSeconds     int       `yaml:"timeout_seconds"`
		Debug              bool      `yaml:"debug"`
	} `yaml:"llm_screen"`

	MaxConcurrentDays int `yaml:"max_concurrent_days"`

	ATR struct {
		Period    int    `yaml:"period"`
		Timeframe string `yaml:"timeframe"`
	} `yaml:"atr"`

	Charts struct {
		Enabled   bool   `yaml:"enabled"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"charts"`

	MarketContext struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"market_context"`

	Data struct {
		Source          string `yaml:"source"` // POSTGRES | KITE
		PostgresDSN     string `yaml:"postgres_dsn"`
		InstrumentToken int    `yaml:"instrument_token"`
		Exchange        string `yaml:"exchange"`
	} `yaml:"data"`
}

var knownStrategies = map[string]bool{
	"stopLoss": true, "profitTarget": true, "trailingStop": true,
	"maxHoldTime": true, "endOfDay": true,
}

func (c *Config) Validate() error {
	if c.Ticker == "" {
		return errors.New("ticker cannot be empty")
	}
	switch c.Direction {
	case "long", "short", "llm_decides":
	default:
		return fmt.Errorf("invalid direction '%s': must be 'long', 'short' or 'llm_decides'", c.Direction)
	}
	for _, s := range c.ExitStrategies.Enabled {
		if !knownStrategies[s] {
			return fmt.Errorf("unknown exit strategy '%s'", s)
		}
	}
	if m := c.Slippage.Model; m != "" && m != "percent" && m != "fixed" {
		return fmt.Errorf("slippage.model must be 'percent' or 'fixed', got '%s'", m)
	}
	if c.Slippage.Value < 0 {
		return fmt.Errorf("slippage.value must be non-negative, got %.4f", c.Slippage.Value)
	}
	if c.LLMScreen.Enabled {
		if c.LLMScreen.NumCalls <= 0 {
			return fmt.Errorf("llm_screen.num_calls must be positive, got %d", c.LLMScreen.NumCalls)
		}
		if c.LLMScreen.AgreementThreshold <= 0 || c.LLMScreen.AgreementThreshold > c.LLMScreen.NumCalls {
			return fmt.Errorf("llm_screen.agreement_threshold must be in 1..num_calls, got %d", c.LLMScreen.AgreementThreshold)
		}
	}
	if c.MaxConcurrentDays < 1 {
		return fmt.Errorf("max_concurrent_days must be >= 1, got %d", c.MaxConcurrentDays)
	}
	if src := c.Data.Source; src != "POSTGRES" && src != "KITE" {
		return fmt.Errorf("data.source must be 'POSTGRES' or 'KITE', got '%s'", src)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Timeframe == "" {
		c.Timeframe = "minute"
	}
	if c.Direction == "" {
		c.Direction = "long"
	}
	if len(c.ExitStrategies.Enabled) == 0 {
		c.ExitStrategies.Enabled = []string{"stopLoss", "profitTarget", "endOfDay"}
	}
	if c.ExitStrategies.EndOfDay.CloseTime == "" {
		c.ExitStrategies.EndOfDay.CloseTime = "15:55"
	}
	if c.Slippage.Model == "" {
		c.Slippage.Model = "percent"
	}
	if c.MaxConcurrentDays == 0 {
		c.MaxConcurrentDays = 1
	}
	if c.ATR.Period == 0 {
		c.ATR.Period = 14
	}
	if c.ATR.Timeframe == "" {
		c.ATR.Timeframe = c.Timeframe
	}
	if c.Charts.OutputDir == "" {
		c.Charts.OutputDir = "charts"
	}
	if c.Data.Source == "" {
		c.Data.Source = "POSTGRES"
	}
	if c.LLMScreen.TimeoutSeconds == 0 {
		c.LLMScreen.TimeoutSeconds = 60
	}
	if c.LLMScreen.Enabled && len(c.LLMScreen.Temperatures) == 0 {
		c.LLMScreen.Temperatures = []float64{0.2}
	}
}
