// Package ai - anthropic.go
// Anthropic Claude adapter implementing the LLMProvider interface.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAnthropicModel is a small, inexpensive model suited to short reflections.
const DefaultAnthropicModel = "claude-3-haiku-20240307"

// AnthropicProvider implements LLMProvider for Anthropic Claude API.
type AnthropicProvider struct {
	usageTracker
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates a new Claude adapter.
func NewAnthropicProvider(cfg ProviderConfig, budgetGate *BudgetGate) *AnthropicProvider {
	p := &AnthropicProvider{
		usageTracker: usageTracker{gate: budgetGate},
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		model:        cfg.Model,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}
	if p.baseURL == "" {
		p.baseURL = "https://api.anthropic.com/v1/messages"
	}
	if p.model == "" {
		p.model = DefaultAnthropicModel
	}
	if p.httpClient.Timeout == 0 {
		p.httpClient.Timeout = 120 * time.Second
	}
	return p
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "Anthropic Claude"
}

// IsAvailable checks if the API key is configured.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a completion request to Claude.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("Anthropic API key not configured")
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	if !p.gate.CanSpend(p.estimateCost(req, model)) {
		return nil, fmt.Errorf("budget limit exceeded: %s", p.gate.GetStatus())
	}

	// The messages API takes the system prompt separately.
	var system []string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      strings.Join(system, "\n\n"),
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, c := range anthResp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response content returned")
	}

	totalTokens := anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens
	cost := p.calculateCost(totalTokens, model)
	p.record(totalTokens, cost)

	respModel := anthResp.Model
	if respModel == "" {
		respModel = model
	}

	return &CompletionResponse{
		Content:      text.String(),
		Model:        respModel,
		PromptTokens: anthResp.Usage.InputTokens,
		OutputTokens: anthResp.Usage.OutputTokens,
		TotalTokens:  totalTokens,
		CostUSD:      cost,
		Latency:      latency,
		FinishReason: anthResp.StopReason,
	}, nil
}

// estimateCost estimates cost before making a request.
func (p *AnthropicProvider) estimateCost(req CompletionRequest, model string) float64 {
	estimatedTokens := 500 + req.MaxTokens
	return p.calculateCost(estimatedTokens, model)
}

// calculateCost computes actual cost based on tokens.
func (p *AnthropicProvider) calculateCost(tokens int, model string) float64 {
	switch model {
	case "claude-3-5-sonnet-20241022":
		return float64(tokens) * 0.000009
	case "claude-3-haiku-20240307":
		return float64(tokens) * 0.0000005
	default:
		return float64(tokens) * 0.00001
	}
}

// Ensure AnthropicProvider implements LLMProvider
var _ LLMProvider = (*AnthropicProvider)(nil)
