// Package engine - reflection_system.go
// Reflection asks the thought service for a thought and metric drift.
// The HTTP round-trip happens outside the engine mutex; only the result is
// applied under it. Failures become a local fallback thought.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
)

// ErrReflectionDisabled is returned when no thought service is configured.
var ErrReflectionDisabled = errors.New("reflection disabled: no thought service configured")

// Reflector produces a thought from a slice of the current state.
type Reflector interface {
	Reflect(ctx context.Context, req sisyphus.ReflectionRequest) (sisyphus.Reflection, error)
}

// ReflectionPayload is attached to REFLECTION events.
type ReflectionPayload struct {
	Thought   string                  `json:"thought"`
	Evolution sisyphus.StateEvolution `json:"evolution"`
	Model     string                  `json:"model,omitempty"`
	Tokens    int                     `json:"tokens,omitempty"`
}

// ReflectionFailedPayload is attached to REFLECTION_FAILED events.
type ReflectionFailedPayload struct {
	Error string `json:"error"`
}

// CanReflect reports whether a thought service is wired in.
func (e *Engine) CanReflect() bool {
	return e.reflector != nil
}

// RequestReflection starts a reflection in the background and returns at once.
func (e *Engine) RequestReflection(ctx context.Context) error {
	if e.reflector == nil {
		return ErrReflectionDisabled
	}
	e.mu.Lock()
	e.spawnReflection(ctx)
	e.mu.Unlock()
	return nil
}

// spawnReflection launches one reflection goroutine. Caller holds e.mu.
func (e *Engine) spawnReflection(ctx context.Context) {
	req := e.reflectionRequest()
	e.reflections.Add(1)
	go func() {
		defer e.reflections.Done()
		e.reflect(ctx, req)
	}()
}

// ReflectNow performs a reflection synchronously and returns the thought that
// was appended, which is the fallback thought when the service fails.
func (e *Engine) ReflectNow(ctx context.Context) (sisyphus.Thought, error) {
	if e.reflector == nil {
		return sisyphus.Thought{}, ErrReflectionDisabled
	}
	e.mu.Lock()
	req := e.reflectionRequest()
	e.mu.Unlock()
	return e.reflect(ctx, req), nil
}

// reflectionRequest snapshots what the thought service needs. Caller holds e.mu.
func (e *Engine) reflectionRequest() sisyphus.ReflectionRequest {
	return sisyphus.ReflectionRequest{
		AttemptCount: e.st.cycle,
		Despair:      e.st.mind.Despair,
		Awareness:    e.st.mind.Awareness,
		Resignation:  e.st.mind.Resignation,
	}
}

func (e *Engine) reflect(ctx context.Context, req sisyphus.ReflectionRequest) sisyphus.Thought {
	if e.cfg.ReflectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReflectionTimeout)
		defer cancel()
	}

	r, err := e.reflector.Reflect(ctx, req)
	if err == nil && strings.TrimSpace(r.Thought) == "" {
		err = errors.New("thought service returned an empty thought")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.stats.RecordReflection(false)
		e.logger.Warn("Reflection failed, using local cognition: " + err.Error())
		e.emit(events.EventTypeReflectionFailed, events.ActorReflector, ReflectionFailedPayload{Error: err.Error()})
		return e.addThought(sisyphus.FallbackThought(e.st.cycle), sisyphus.SourceFallback)
	}

	e.stats.RecordReflection(true)
	e.st.mind.ApplyEvolution(r.Evolution)
	e.emit(events.EventTypeReflection, events.ActorReflector, ReflectionPayload{
		Thought:   r.Thought,
		Evolution: r.Evolution,
		Model:     r.Model,
		Tokens:    r.Tokens,
	})
	return e.addThought(r.Thought, sisyphus.SourceReflection)
}
