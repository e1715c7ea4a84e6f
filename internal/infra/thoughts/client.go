package thoughts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 64 << 10

// Client calls a remote thought service.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for the service at url.
func NewClient(url string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Reflect sends the state and decodes the thought and its suggested drift.
func (c *Client) Reflect(ctx context.Context, req sisyphus.ReflectionRequest) (sisyphus.Reflection, error) {
	body, err := json.Marshal(NewThinkRequest(req))
	if err != nil {
		return sisyphus.Reflection{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return sisyphus.Reflection{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return sisyphus.Reflection{}, fmt.Errorf("thought service unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return sisyphus.Reflection{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return sisyphus.Reflection{}, fmt.Errorf("thought service error (status %d): %s", resp.StatusCode, e.Error)
		}
		return sisyphus.Reflection{}, fmt.Errorf("thought service error (status %d)", resp.StatusCode)
	}

	var tr ThinkResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return sisyphus.Reflection{}, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug(fmt.Sprintf("Reflection for cycle %d received in %s (%d tokens)", req.AttemptCount, time.Since(start), tr.Tokens))

	return sisyphus.Reflection{
		Thought:   tr.Thought,
		Evolution: tr.StateEvolution,
		Model:     tr.Model,
		Tokens:    tr.Tokens,
	}, nil
}
