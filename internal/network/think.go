// Package network - think.go
// The thought service: forwards the psychological state to an LLM provider
// and answers with a thought plus the metric drift it suggests.
package network

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/rules"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/ai"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/thoughts"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
)

// maxThinkBody caps the request body of /api/think.
const maxThinkBody = 16 << 10

// ThoughtService handles POST /api/think.
type ThoughtService struct {
	provider    ai.LLMProvider
	development bool
	logger      *logger.Logger
	stats       *metrics.Collector
	now         func() time.Time
}

// NewThoughtService creates the handler. development exposes provider error
// details in 500 responses.
func NewThoughtService(provider ai.LLMProvider, development bool, log *logger.Logger) *ThoughtService {
	return &ThoughtService{
		provider:    provider,
		development: development,
		logger:      log,
		stats:       metrics.Get(),
		now:         time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (ts *ThoughtService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, thoughts.ErrorResponse{
			Error:   "Method Not Allowed",
			Message: "Only POST requests are accepted",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxThinkBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, thoughts.ErrorResponse{
			Error:   "Invalid JSON",
			Message: "Request body must be valid JSON",
		})
		return
	}

	var req thoughts.ThinkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeJSON(w, http.StatusBadRequest, thoughts.ErrorResponse{
				Error:   "Invalid field type",
				Message: fieldTypeMessage(typeErr.Field),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, thoughts.ErrorResponse{
			Error:   "Invalid JSON",
			Message: "Request body must be valid JSON",
		})
		return
	}

	if req.AttemptCount == nil || req.PsychologicalState == nil {
		writeJSON(w, http.StatusBadRequest, thoughts.ErrorResponse{
			Error:   "Missing required fields",
			Message: "attemptCount and psychologicalState are required",
		})
		return
	}

	attempt := *req.AttemptCount
	state := *req.PsychologicalState

	resp, err := ts.think(r, attempt, state)
	if err != nil {
		ts.stats.RecordLLMFailure()
		ts.logger.Error("Thought service provider error: " + err.Error())

		now := ts.now().UTC()
		out := thoughts.ErrorResponse{
			Error:     "Failed to generate AI thought",
			Fallback:  sisyphus.FallbackThought(attempt),
			Timestamp: &now,
		}
		if ts.development {
			out.Details = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, out)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, resp)
}

// HandleUsage serves GET /api/think/usage: the provider's running token and
// spend counters.
func (ts *ThoughtService) HandleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, thoughts.ErrorResponse{
			Error:   "Method Not Allowed",
			Message: "Only GET requests are accepted",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider":  ts.provider.Name(),
		"available": ts.provider.IsAvailable(),
		"usage":     ts.provider.GetUsageStats(),
	})
}

func fieldTypeMessage(field string) string {
	switch field {
	case "attemptCount":
		return "attemptCount must be an integer"
	case "psychologicalState":
		return "psychologicalState must be an object"
	}
	if strings.HasPrefix(field, "psychologicalState.") {
		return field + " must be a number"
	}
	return field + " has the wrong type"
}

func (ts *ThoughtService) think(r *http.Request, attempt int64, state thoughts.PsychologicalState) (thoughts.ThinkResponse, error) {
	messages := ai.BuildReflectionMessages(ai.ReflectionState{
		AttemptCount: attempt,
		Despair:      state.Despair,
		Awareness:    state.Awareness,
		Resignation:  state.Resignation,
	})

	completion, err := ts.provider.Complete(r.Context(), ai.CompletionRequest{
		Messages:    messages,
		MaxTokens:   ai.ReflectionMaxTokens,
		Temperature: rules.ReflectionTemperature(state.Despair),
	})
	if err != nil {
		return thoughts.ThinkResponse{}, err
	}
	ts.stats.RecordLLMCall(completion.TotalTokens, completion.CostUSD, completion.Latency)

	ts.logger.Event("THOUGHT_GENERATED", ts.provider.Name(), completion.Model)
	return thoughts.ThinkResponse{
		Thought:        completion.Content,
		Attempt:        attempt,
		StateEvolution: rules.EvolveFromThought(completion.Content, attempt),
		Timestamp:      ts.now().UTC(),
		Model:          completion.Model,
		Tokens:         completion.TotalTokens,
	}, nil
}
