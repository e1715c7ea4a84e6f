// Package engine - motion_system.go
// Boulder motion: one step per active tick, with the summit and base
// transitions that fire when the boulder flips direction.
package engine

import (
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
)

const (
	escapeChance         = 0.10
	escapeMinCycle       = 10
	escapeAwarenessBoost = 0.1

	baseDriftEvery   = 10
	baseDespairDrift = 0.05
	baseHopeDrift    = -0.05

	thoughtEvery = 3
)

// TickPayload is attached to TICK events.
type TickPayload struct {
	Progress  float64 `json:"progress"`
	RollingUp bool    `json:"rolling_up"`
}

// EscapePayload is attached to ESCAPE_ATTEMPT events.
type EscapePayload struct {
	Attempt int    `json:"attempt"`
	Trigger string `json:"trigger"`
}

// Tick runs one cycle of the simulation. It returns false when paused.
func (e *Engine) Tick() bool {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.paused {
		return false
	}

	e.st.cycle++

	switch e.st.boulder.Advance() {
	case sisyphus.TransitionSummit:
		e.onSummit()
	case sisyphus.TransitionBase:
		e.onBase()
	}

	e.evolveConsciousness()

	if e.st.cycle%thoughtEvery == 0 {
		e.generateThought()
	}

	e.emit(events.EventTypeTick, events.ActorSystem, TickPayload{
		Progress:  e.st.boulder.Progress,
		RollingUp: e.st.boulder.RollingUp,
	})

	if every := e.cfg.ReflectionEvery; every > 0 && e.reflector != nil && e.st.cycle%every == 0 {
		e.spawnReflection(e.ctx)
	}

	e.stats.RecordTick(time.Since(start))
	return true
}

// onSummit handles the boulder reaching the top. Caller holds e.mu.
func (e *Engine) onSummit() {
	e.emit(events.EventTypeSummitReached, events.ActorSisyphus, nil)
	e.addSystemMessage(sisyphus.SummitMessage)

	if e.rng.Float64() < escapeChance && e.st.cycle > escapeMinCycle {
		e.attemptEscape("summit")
	}
}

// onBase handles the boulder rolling back to the bottom. Caller holds e.mu.
func (e *Engine) onBase() {
	e.emit(events.EventTypeBaseReached, events.ActorSisyphus, nil)
	e.addSystemMessage(sisyphus.BaseMessage(e.st.cycle))

	if e.st.cycle%baseDriftEvery == 0 {
		e.st.mind.Adjust(sisyphus.MetricDespair, baseDespairDrift)
		e.st.mind.Adjust(sisyphus.MetricHope, baseHopeDrift)
	}
}

// attemptEscape is the scripted failed termination. Caller holds e.mu.
func (e *Engine) attemptEscape(trigger string) {
	e.st.escapeAttempts++
	e.stats.RecordEscapeAttempt()
	e.emit(events.EventTypeEscapeAttempt, events.ActorSisyphus, EscapePayload{
		Attempt: e.st.escapeAttempts,
		Trigger: trigger,
	})

	e.addThought(sisyphus.EscapeThought, sisyphus.SourceEscape)
	e.addSystemMessage(sisyphus.EscapeFailedMessage(e.st.escapeAttempts))
	e.st.mind.Adjust(sisyphus.MetricAwareness, escapeAwarenessBoost)

	e.logger.Event("ESCAPE_ATTEMPT", events.ActorSisyphus, sisyphus.EscapeFailedMessage(e.st.escapeAttempts))
}
