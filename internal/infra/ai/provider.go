// Package ai provides the LLM integration layer behind the thought service.
// One provider interface lets the service swap between OpenAI and Anthropic.
package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the input for LLM inference.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Model       string    `json:"model,omitempty"` // Override default model
}

// CompletionResponse is the output from LLM inference.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
	CostUSD      float64       `json:"cost_usd"`
	Latency      time.Duration `json:"latency"`
	FinishReason string        `json:"finish_reason"`
}

// UsageStats tracks API usage for spend monitoring.
type UsageStats struct {
	TotalRequests   int     `json:"total_requests"`
	TotalTokens     int     `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	BudgetRemaining float64 `json:"budget_remaining"`
}

// LLMProvider is the agnostic interface for LLM backends.
type LLMProvider interface {
	// Complete sends a prompt and returns the LLM response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// GetUsageStats returns current API usage.
	GetUsageStats() UsageStats

	// Name returns the provider name (for logging).
	Name() string

	// IsAvailable checks if the provider is configured.
	IsAvailable() bool
}

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig configures one adapter. Empty fields take the adapter defaults.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewProvider builds the adapter registered under name.
func NewProvider(name string, cfg ProviderConfig, gate *BudgetGate) (LLMProvider, error) {
	switch strings.ToLower(name) {
	case ProviderOpenAI, "":
		return NewOpenAIProvider(cfg, gate), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, gate), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// usageTracker is the bookkeeping shared by the adapters.
type usageTracker struct {
	mu    sync.Mutex
	stats UsageStats
	gate  *BudgetGate
}

func (u *usageTracker) record(tokens int, cost float64) {
	u.gate.RecordSpend(cost)
	u.mu.Lock()
	u.stats.TotalRequests++
	u.stats.TotalTokens += tokens
	u.stats.TotalCostUSD += cost
	u.mu.Unlock()
}

// GetUsageStats returns current usage statistics.
func (u *usageTracker) GetUsageStats() UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stats
	s.BudgetRemaining = u.gate.MonthlyRemaining()
	return s
}

// BudgetGate controls spending limits for LLM calls.
type BudgetGate struct {
	mu                sync.Mutex
	DailyLimitUSD     float64
	MonthlyLimitUSD   float64
	CurrentDaySpend   float64
	CurrentMonthSpend float64
	LastDayReset      time.Time
	LastMonthReset    time.Time
	now               func() time.Time
}

// NewBudgetGate creates a new budget controller.
func NewBudgetGate(dailyLimit, monthlyLimit float64) *BudgetGate {
	now := time.Now()
	return &BudgetGate{
		DailyLimitUSD:   dailyLimit,
		MonthlyLimitUSD: monthlyLimit,
		LastDayReset:    now,
		LastMonthReset:  now,
		now:             time.Now,
	}
}

// CanSpend checks if a cost is within budget.
func (bg *BudgetGate) CanSpend(costUSD float64) bool {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.maybeReset()
	return (bg.CurrentDaySpend+costUSD <= bg.DailyLimitUSD) &&
		(bg.CurrentMonthSpend+costUSD <= bg.MonthlyLimitUSD)
}

// RecordSpend logs a cost.
func (bg *BudgetGate) RecordSpend(costUSD float64) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.maybeReset()
	bg.CurrentDaySpend += costUSD
	bg.CurrentMonthSpend += costUSD
}

// MonthlyRemaining is what is left of the monthly budget.
func (bg *BudgetGate) MonthlyRemaining() float64 {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.maybeReset()
	return bg.MonthlyLimitUSD - bg.CurrentMonthSpend
}

// maybeReset resets counters if day/month has changed. Caller holds bg.mu.
func (bg *BudgetGate) maybeReset() {
	now := bg.now()

	if now.YearDay() != bg.LastDayReset.YearDay() || now.Year() != bg.LastDayReset.Year() {
		bg.CurrentDaySpend = 0
		bg.LastDayReset = now
	}

	if now.Month() != bg.LastMonthReset.Month() || now.Year() != bg.LastMonthReset.Year() {
		bg.CurrentMonthSpend = 0
		bg.LastMonthReset = now
	}
}

// GetStatus returns a human-readable budget status.
func (bg *BudgetGate) GetStatus() string {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return fmt.Sprintf("Day: $%.2f/%.2f | Month: $%.2f/%.2f",
		bg.CurrentDaySpend, bg.DailyLimitUSD, bg.CurrentMonthSpend, bg.MonthlyLimitUSD)
}
