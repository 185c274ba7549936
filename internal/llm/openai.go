package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/trace"
	"intraday-scanner/internal/types"
)

// OpenAICaller runs screening votes against the OpenAI chat completions API,
// sending the staged chart image alongside each prompt.
type OpenAICaller struct {
	cfg      *store.Config
	endpoint string
	client   *http.Client
}

var _ interfaces.VoteCaller = (*OpenAICaller)(nil)

func NewOpenAICaller(cfg *store.Config) *OpenAICaller {
	endpoint := "https://api.openai.com/v1/chat/completions"
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &OpenAICaller{cfg: cfg, endpoint: endpoint, client: http.DefaultClient}
}

// GetTradeDecisions executes one call per entry of calls. Failures never
// abort the batch: each failed call yields a do_nothing response carrying the
// error and zero cost.
func (c *OpenAICaller) GetTradeDecisions(ctx context.Context, chartPath string, calls []interfaces.VoteCall, metrics map[string]any) []types.LLMResponse {
	imageURL := encodeChart(chartPath)

	out := make([]types.LLMResponse, len(calls))
	for i, call := range calls {
		resp, err := c.single(ctx, imageURL, call, metrics)
		if err != nil {
			out[i] = types.LLMResponse{Action: types.ActionNone, Err: err.Error()}
			continue
		}
		out[i] = resp
	}
	return out
}

func (c *OpenAICaller) single(ctx context.Context, imageURL string, call interfaces.VoteCall, metrics map[string]any) (types.LLMResponse, error) {
	ctx, span := trace.StartSpan(ctx, "openai-vote-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.LLMResponse{}, errors.New("OPENAI_API_KEY missing")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.LLMScreen.TimeoutSeconds)*time.Second)
	defer cancel()

	userText := call.Prompt
	if len(metrics) > 0 {
		mb, _ := json.Marshal(metrics)
		userText += "\nMarket context: " + string(mb)
	}
	userText += "\nRespond ONLY with compact JSON: {\"action\":\"long|short|do_nothing\",\"rationalization\":\"...\",\"stopLoss\":number,\"profitTarget\":number}"

	content := []map[string]any{{"type": "text", "text": userText}}
	if imageURL != "" {
		content = append(content, map[string]any{"type": "image_url", "image_url": map[string]any{"url": imageURL}})
	}

	body := map[string]any{
		"model":       c.cfg.LLMScreen.Model,
		"messages":    []map[string]any{{"role": "user", "content": content}},
		"temperature": call.Temperature,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.LLMResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.LLMResponse{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.LLMResponse{}, err
	}
	if len(r.Choices) == 0 {
		return types.LLMResponse{}, errors.New("no choices")
	}

	cost := callCost(c.cfg.LLMScreen.Model, r.Usage.PromptTokens, r.Usage.CompletionTokens)
	vote, err := parseVote(r.Choices[0].Message.Content)
	if err != nil {
		// Billed but unparseable: keep the cost, degrade the vote.
		return types.LLMResponse{Action: types.ActionNone, Cost: cost, Err: err.Error()}, nil
	}
	vote.Cost = cost
	return vote, nil
}

// parseVote extracts the structured vote from the model text, tolerating
// surrounding prose and markdown fences.
func parseVote(content string) (types.LLMResponse, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var v struct {
		Action          string   `json:"action"`
		Rationalization string   `json:"rationalization"`
		StopLoss        *float64 `json:"stopLoss"`
		ProfitTarget    *float64 `json:"profitTarget"`
	}
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return types.LLMResponse{}, fmt.Errorf("invalid vote json: %w", err)
	}

	action := types.Action(strings.ToLower(strings.TrimSpace(v.Action)))
	switch action {
	case types.ActionLong, types.ActionShort, types.ActionNone:
	default:
		action = types.ActionNone
	}
	return types.LLMResponse{
		Action:          action,
		Rationalization: v.Rationalization,
		StopLoss:        v.StopLoss,
		ProfitTarget:    v.ProfitTarget,
	}, nil
}

// encodeChart reads the chart file into a data URL, or "" when there is no
// usable chart.
func encodeChart(chartPath string) string {
	if chartPath == "" {
		return ""
	}
	b, err := os.ReadFile(chartPath)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
}
