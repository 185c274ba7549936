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
	"time"

	"intraday-scanner/internal/interfaces"
	"intraday-scanner/internal/store"
	"intraday-scanner/internal/trace"
	"intraday-scanner/internal/types"
)

// ClaudeCaller runs screening votes against the Anthropic messages API.
type ClaudeCaller struct {
	cfg      *store.Config
	endpoint string
	client   *http.Client
}

var _ interfaces.VoteCaller = (*ClaudeCaller)(nil)

func NewClaudeCaller(cfg *store.Config) *ClaudeCaller {
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &ClaudeCaller{cfg: cfg, endpoint: endpoint, client: http.DefaultClient}
}

func (c *ClaudeCaller) GetTradeDecisions(ctx context.Context, chartPath string, calls []interfaces.VoteCall, metrics map[string]any) []types.LLMResponse {
	imageData := encodeChartRaw(chartPath)

	out := make([]types.LLMResponse, len(calls))
	for i, call := range calls {
		resp, err := c.single(ctx, imageData, call, metrics)
		if err != nil {
			out[i] = types.LLMResponse{Action: types.ActionNone, Err: err.Error()}
			continue
		}
		out[i] = resp
	}
	return out
}

func (c *ClaudeCaller) single(ctx context.Context, imageData string, call interfaces.VoteCall, metrics map[string]any) (types.LLMResponse, error) {
	ctx, span := trace.StartSpan(ctx, "claude-vote-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return types.LLMResponse{}, errors.New("CLAUDE_API_KEY missing")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.LLMScreen.TimeoutSeconds)*time.Second)
	defer cancel()

	userText := call.Prompt
	if len(metrics) > 0 {
		mb, _ := json.Marshal(metrics)
		userText += "\nMarket context: " + string(mb)
	}
	userText += "\nRespond ONLY with compact JSON: {\"action\":\"long|short|do_nothing\",\"rationalization\":\"...\",\"stopLoss\":number,\"profitTarget\":number}"

	content := []map[string]any{}
	if imageData != "" {
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": "image/png",
				"data":       imageData,
			},
		})
	}
	content = append(content, map[string]any{"type": "text", "text": userText})

	body := map[string]any{
		"model":       c.cfg.LLMScreen.Model,
		"max_tokens":  1024,
		"temperature": call.Temperature,
		"messages":    []map[string]any{{"role": "user", "content": content}},
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.LLMResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.LLMResponse{}, fmt.Errorf("claude http %d", resp.StatusCode)
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.LLMResponse{}, err
	}

	text := ""
	for _, blk := range r.Content {
		if blk.Type == "text" {
			text += blk.Text
		}
	}
	if text == "" {
		return types.LLMResponse{}, errors.New("empty response content")
	}

	cost := callCost(c.cfg.LLMScreen.Model, r.Usage.InputTokens, r.Usage.OutputTokens)
	vote, err := parseVote(text)
	if err != nil {
		return types.LLMResponse{Action: types.ActionNone, Cost: cost, Err: err.Error()}, nil
	}
	vote.Cost = cost
	return vote, nil
}

func encodeChartRaw(chartPath string) string {
	if chartPath == "" {
		return ""
	}
	b, err := os.ReadFile(chartPath)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
