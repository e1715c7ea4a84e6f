package network

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/ai"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

func newTestEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	el := events.NewEventLog(nil, events.DefaultRetention)
	base := []engine.Option{engine.WithRand(rand.New(rand.NewSource(1)))}
	return engine.NewEngine(el, logger.Discard(), append(base, opts...)...)
}

// stubProvider answers every completion with a fixed text or error.
type stubProvider struct {
	content string
	err     error
	last    ai.CompletionRequest
}

func (p *stubProvider) Complete(_ context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &ai.CompletionResponse{
		Content:     p.content,
		Model:       "stub-model",
		TotalTokens: 42,
		Latency:     time.Millisecond,
	}, nil
}

func (p *stubProvider) GetUsageStats() ai.UsageStats {
	return ai.UsageStats{TotalRequests: 2, TotalTokens: 84, BudgetRemaining: 9.5}
}
func (p *stubProvider) Name() string      { return "stub" }
func (p *stubProvider) IsAvailable() bool { return true }

var errProviderDown = errors.New("provider unavailable")

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
