package screen

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/types"
)

// stubCaller replays a fixed response set and records what it was asked.
type stubCaller struct {
	responses []types.LLMResponse
	calls     []interfaces.VoteCall
	chartPath string
}

func (s *stubCaller) GetTradeDecisions(_ context.Context, chartPath string, calls []interfaces.VoteCall, _ map[string]any) []types.LLMResponse {
	s.calls = calls
	s.chartPath = chartPath
	out := make([]types.LLMResponse, len(calls))
	for i := range calls {
		if i < len(s.responses) {
			out[i] = s.responses[i]
		} else {
			out[i] = types.LLMResponse{Action: types.ActionNone}
		}
	}
	return out
}

func testConfig(direction string, numCalls, threshold int) *store.Config {
	cfg := &store.Config{}
	cfg.Direction = direction
	cfg.LLMScreen.Enabled = true
	cfg.LLMScreen.NumCalls = numCalls
	cfg.LLMScreen.AgreementThreshold = threshold
	cfg.LLMScreen.Prompts = []string{"p"}
	cfg.LLMScreen.Temperatures = []float64{0.2, 0.7}
	return cfg
}

func testSignal() types.Signal {
	return types.Signal{Ticker: "RELIANCE", EntryTs: time.Now(), EntryPrice: 637.08, TradeDate: "2024-03-05", Year: 2024}
}

func fp(v float64) *float64 { return &v }

func TestFixedDirectionMeetsThreshold(t *testing.T) {
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionLong, Cost: 0.01, Rationalization: "clean breakout"},
		{Action: types.ActionLong, Cost: 0.02},
		{Action: types.ActionNone, Cost: 0.03},
	}}
	s := New(testConfig("long", 3, 2), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if !d.Proceed || d.Direction != types.ActionLong {
		t.Fatalf("expected long proceed, got %+v", d)
	}
	if math.Abs(d.Cost-0.06) > 1e-9 {
		t.Errorf("cost = %.4f, want 0.06 (all calls billed)", d.Cost)
	}
	if d.Rationale != "clean breakout" {
		t.Errorf("rationale = %q, want first winning-vote rationale", d.Rationale)
	}
}

func TestFixedDirectionIgnoresOppositeConsensus(t *testing.T) {
	// Three short votes in long mode are three non-votes.
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionShort, Cost: 0.01},
		{Action: types.ActionShort, Cost: 0.01},
		{Action: types.ActionShort, Cost: 0.01},
	}}
	s := New(testConfig("long", 3, 2), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if d.Proceed {
		t.Error("fixed-direction screen proceeded on opposite consensus")
	}
	if math.Abs(d.Cost-0.03) > 1e-9 {
		t.Errorf("cost = %.4f, want 0.03 even on no-trade", d.Cost)
	}
}

func TestLlmDecidesTieIsNoTrade(t *testing.T) {
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionLong},
		{Action: types.ActionLong},
		{Action: types.ActionShort},
		{Action: types.ActionShort},
	}}
	s := New(testConfig("llm_decides", 4, 2), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if d.Proceed {
		t.Errorf("2-2 tie must not trade, got %+v", d)
	}
}

func TestLlmDecidesStrictWin(t *testing.T) {
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionShort},
		{Action: types.ActionShort},
		{Action: types.ActionShort},
		{Action: types.ActionLong},
	}}
	s := New(testConfig("llm_decides", 4, 3), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if !d.Proceed || d.Direction != types.ActionShort {
		t.Errorf("expected short proceed, got %+v", d)
	}
}

func TestAverageProposedPricesWinningVotesOnly(t *testing.T) {
	// The short voter's and valueless voter's proposals must not pollute
	// the averages: stop = (100+98+102)/3, target = (110+112+114)/3.
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionLong, StopLoss: fp(100), ProfitTarget: fp(110)},
		{Action: types.ActionLong, StopLoss: fp(98), ProfitTarget: fp(112)},
		{Action: types.ActionLong, StopLoss: fp(102), ProfitTarget: fp(114)},
		{Action: types.ActionShort, StopLoss: fp(50), ProfitTarget: fp(60)},
		{Action: types.ActionLong},
	}}
	s := New(testConfig("llm_decides", 5, 3), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if !d.Proceed {
		t.Fatalf("expected proceed, got %+v", d)
	}
	if d.AvgProposedStop == nil || math.Abs(*d.AvgProposedStop-100.0) > 1e-9 {
		t.Errorf("avg stop = %v, want 100.0", d.AvgProposedStop)
	}
	if d.AvgProposedTarget == nil || math.Abs(*d.AvgProposedTarget-112.0) > 1e-9 {
		t.Errorf("avg target = %v, want 112.0", d.AvgProposedTarget)
	}
}

func TestAverageProposedPricesNilWhenNoneQualify(t *testing.T) {
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionLong},
		{Action: types.ActionLong, StopLoss: fp(math.NaN())},
	}}
	s := New(testConfig("long", 2, 2), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if !d.Proceed {
		t.Fatal("expected proceed")
	}
	if d.AvgProposedStop != nil || d.AvgProposedTarget != nil {
		t.Errorf("averages should be nil with no qualifying values, got stop=%v target=%v",
			d.AvgProposedStop, d.AvgProposedTarget)
	}
}

func TestFailedCallDegradesToDoNothing(t *testing.T) {
	// One call errors; its cost still counts but its vote cannot push the
	// batch over the threshold.
	caller := &stubCaller{responses: []types.LLMResponse{
		{Action: types.ActionLong, Cost: 0.01},
		{Action: types.ActionLong, Err: "timeout", Cost: 0.02},
		{Action: types.ActionNone, Cost: 0.01},
	}}
	s := New(testConfig("long", 3, 2), caller)

	d := s.Evaluate(context.Background(), testSignal(), "", nil)
	if d.Proceed {
		t.Error("failed call counted as a long vote")
	}
	if math.Abs(d.Cost-0.04) > 1e-9 {
		t.Errorf("cost = %.4f, want 0.04", d.Cost)
	}
}

func TestPromptMismatchFallsBackToFirstPrompt(t *testing.T) {
	cfg := testConfig("long", 3, 2)
	cfg.LLMScreen.Prompts = []string{"only-prompt", "extra"}
	caller := &stubCaller{}
	s := New(cfg, caller)

	s.Evaluate(context.Background(), testSignal(), "", nil)
	if len(caller.calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(caller.calls))
	}
	for i, c := range caller.calls {
		if c.Prompt != "only-prompt" {
			t.Errorf("call %d prompt = %q, want the first prompt", i, c.Prompt)
		}
	}
	if caller.calls[0].Temperature != 0.2 || caller.calls[1].Temperature != 0.7 || caller.calls[2].Temperature != 0.2 {
		t.Errorf("temperatures should cycle: %+v", caller.calls)
	}
}

func TestChartStagedToTempCopyAndCleaned(t *testing.T) {
	dir := t.TempDir()
	chartPath := filepath.Join(dir, "RELIANCE_2024-03-05_0935.png")
	if err := os.WriteFile(chartPath, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	caller := &stubCaller{responses: []types.LLMResponse{{Action: types.ActionLong}}}
	s := New(testConfig("long", 1, 1), caller)
	s.Evaluate(context.Background(), testSignal(), chartPath, nil)

	if caller.chartPath == chartPath {
		t.Error("caller saw the original chart path, want an anonymized copy")
	}
	if filepath.Ext(caller.chartPath) != ".png" {
		t.Errorf("staged copy lost its extension: %q", caller.chartPath)
	}
	if _, err := os.Stat(caller.chartPath); !os.IsNotExist(err) {
		t.Errorf("staged copy not cleaned up: %q", caller.chartPath)
	}
	if _, err := os.Stat(chartPath); err != nil {
		t.Errorf("original chart must survive: %v", err)
	}
}

func TestResponsesOnlyAttachedInDebug(t *testing.T) {
	caller := &stubCaller{responses: []types.LLMResponse{{Action: types.ActionLong}}}
	cfg := testConfig("long", 1, 1)
	s := New(cfg, caller)
	if d := s.Evaluate(context.Background(), testSignal(), "", nil); d.Responses != nil {
		t.Error("responses attached without debug")
	}

	cfg.LLMScreen.Debug = true
	if d := s.Evaluate(context.Background(), testSignal(), "", nil); len(d.Responses) != 1 {
		t.Error("responses missing in debug mode")
	}
}
