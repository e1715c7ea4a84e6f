// Package thoughts holds the JSON wire format of the thought service and the
// HTTP client the simulation uses to call it.
package thoughts

import (
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
)

// PsychologicalState is the metric subset sent to the service.
type PsychologicalState struct {
	Despair     float64 `json:"despair"`
	Awareness   float64 `json:"awareness"`
	Resignation float64 `json:"resignation"`
}

// ThinkRequest is the body of POST /api/think.
// Pointer fields distinguish a missing value from a zero one.
type ThinkRequest struct {
	AttemptCount       *int64              `json:"attemptCount"`
	PsychologicalState *PsychologicalState `json:"psychologicalState"`
}

// NewThinkRequest builds a request from the engine's snapshot.
func NewThinkRequest(r sisyphus.ReflectionRequest) ThinkRequest {
	attempt := r.AttemptCount
	return ThinkRequest{
		AttemptCount: &attempt,
		PsychologicalState: &PsychologicalState{
			Despair:     r.Despair,
			Awareness:   r.Awareness,
			Resignation: r.Resignation,
		},
	}
}

// ThinkResponse is the success body.
type ThinkResponse struct {
	Thought        string                  `json:"thought"`
	Attempt        int64                   `json:"attempt"`
	StateEvolution sisyphus.StateEvolution `json:"stateEvolution"`
	Timestamp      time.Time               `json:"timestamp"`
	Model          string                  `json:"model"`
	Tokens         int                     `json:"tokens"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string     `json:"error"`
	Message   string     `json:"message,omitempty"`
	Fallback  string     `json:"fallback,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Details   string     `json:"details,omitempty"`
}
