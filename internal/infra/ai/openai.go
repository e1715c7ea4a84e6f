// Package ai - openai.go
// OpenAI adapter implementing the LLMProvider interface.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOpenAIModel is the chat model the thought service asks for.
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIProvider implements LLMProvider for OpenAI API.
type OpenAIProvider struct {
	usageTracker
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAI API request/response structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// NewOpenAIProvider creates a new OpenAI adapter.
func NewOpenAIProvider(cfg ProviderConfig, budgetGate *BudgetGate) *OpenAIProvider {
	p := &OpenAIProvider{
		usageTracker: usageTracker{gate: budgetGate},
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		model:        cfg.Model,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}
	if p.baseURL == "" {
		p.baseURL = "https://api.openai.com/v1/chat/completions"
	}
	if p.model == "" {
		p.model = DefaultOpenAIModel
	}
	if p.httpClient.Timeout == 0 {
		p.httpClient.Timeout = 60 * time.Second
	}
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// IsAvailable checks if the API key is configured.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a completion request to OpenAI.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	// Estimate cost and check budget
	if !p.gate.CanSpend(p.estimateCost(req, model)) {
		return nil, fmt.Errorf("budget limit exceeded: %s", p.gate.GetStatus())
	}

	messages := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
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
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, fmt.Errorf("OpenAI error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var oaiResp openAIResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	cost := p.calculateCost(oaiResp.Usage.TotalTokens, model)
	p.record(oaiResp.Usage.TotalTokens, cost)

	respModel := oaiResp.Model
	if respModel == "" {
		respModel = model
	}

	return &CompletionResponse{
		Content:      oaiResp.Choices[0].Message.Content,
		Model:        respModel,
		PromptTokens: oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
		TotalTokens:  oaiResp.Usage.TotalTokens,
		CostUSD:      cost,
		Latency:      latency,
		FinishReason: oaiResp.Choices[0].FinishReason,
	}, nil
}

// estimateCost estimates the cost before making a request.
func (p *OpenAIProvider) estimateCost(req CompletionRequest, model string) float64 {
	// Rough estimate: the reflection prompt is a few hundred tokens.
	estimatedTokens := 500 + req.MaxTokens
	return p.calculateCost(estimatedTokens, model)
}

// calculateCost computes the actual cost based on tokens and model.
func (p *OpenAIProvider) calculateCost(tokens int, model string) float64 {
	switch model {
	case "gpt-3.5-turbo":
		return float64(tokens) * 0.000001 // ~$1/1M tokens averaged
	case "gpt-4o":
		return float64(tokens) * 0.00003
	case "gpt-4o-mini":
		return float64(tokens) * 0.0000005
	default:
		return float64(tokens) * 0.00001 // Conservative estimate
	}
}

// Ensure OpenAIProvider implements LLMProvider
var _ LLMProvider = (*OpenAIProvider)(nil)
