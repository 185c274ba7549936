package types

import "time"

// Bar is one OHLCV observation. Bars for a trading day are contiguous and
// sorted ascending by Ts.
type Bar struct {
	Ts                     time.Time
	Open, High, Low, Close float64
	Volume                 int64
	TradeDate              string // "2006-01-02"
}

// Signal is a candidate entry produced by the discovery layer.
type Signal struct {
	Ticker     string
	EntryTs    time.Time
	EntryPrice float64
	TradeDate  string // "2006-01-02"
	Year       int
	Direction  Action // hint; may be overridden by the screen
}

type ExitReason string

const (
	ExitStopLoss     ExitReason = "stopLoss"
	ExitProfitTarget ExitReason = "profitTarget"
	ExitTrailingStop ExitReason = "trailingStop"
	ExitMaxHoldTime  ExitReason = "maxHoldTime"
	ExitEndOfDay     ExitReason = "endOfDay"
)

// ExitSignal is the single resolved exit for a trade, pre-slippage.
type ExitSignal struct {
	Ts     time.Time
	Price  float64
	Type   string // always "exit"
	Reason ExitReason
}

type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionNone  Action = "do_nothing"
)

// LLMResponse is the structured output of one model call. A failed call
// carries Err and degrades to a do_nothing vote.
type LLMResponse struct {
	Action          Action   `json:"action"`
	Rationalization string   `json:"rationalization,omitempty"`
	StopLoss        *float64 `json:"stopLoss,omitempty"`
	ProfitTarget    *float64 `json:"profitTarget,omitempty"`
	Cost            float64  `json:"cost"`
	Err             string   `json:"error,omitempty"`
}

// ScreenDecision aggregates a batch of LLMResponses for one signal.
// Cost is the sum of all call costs and accrues even when Proceed is false.
type ScreenDecision struct {
	Proceed           bool
	Direction         Action // set only when Proceed
	Rationale         string
	Cost              float64
	AvgProposedStop   *float64 // nil when no qualifying values
	AvgProposedTarget *float64
	Responses         []LLMResponse // raw responses, kept only in debug mode
}

// Trade is a confirmed, fully resolved trade. Immutable after creation.
type Trade struct {
	Ticker         string
	Direction      Action
	EntryTs        time.Time
	ExitTs         time.Time
	EntryPrice     float64
	ExitPrice      float64 // post-slippage
	TradeDate      string
	ReturnPct      float64 // positive means profitable for either direction
	ExitReason     ExitReason
	ChartPath      string
	InitialStop    *float64
	InitialTarget  *float64
	StopAtrBased   bool
	StopLlmBased   bool
	TargetAtrBased bool
	TargetLlmBased bool
}
