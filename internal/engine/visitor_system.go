// Package engine - visitor_system.go
// Visitor interventions: actions, witnesses, pause and trauma reset.
// They apply immediately and do not wait for the next tick.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
)

// ErrUnknownAction is returned for action kinds the simulation does not support.
var ErrUnknownAction = errors.New("unknown visitor action")

const (
	traumaDespairFactor = 0.5
	traumaHopeBoost     = 0.2
)

// actionAliases maps the short names used by the console and clients.
var actionAliases = map[string]sisyphus.Action{
	"terminate":           sisyphus.ActionRequestTermination,
	"request_termination": sisyphus.ActionRequestTermination,
}

// ParseAction resolves a wire or console name to an action kind.
// Matching is case-insensitive.
func ParseAction(name string) (sisyphus.Action, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, a := range sisyphus.Actions() {
		if strings.ToLower(string(a)) == key {
			return a, nil
		}
	}
	if a, ok := actionAliases[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// VisitorActionPayload is attached to VISITOR_ACTION events.
type VisitorActionPayload struct {
	Action   sisyphus.Action `json:"action"`
	Feedback string          `json:"feedback"`
}

// Visit applies a visitor action. Unknown kinds leave the state untouched.
func (e *Engine) Visit(action sisyphus.Action) (string, error) {
	effect, ok := sisyphus.EffectOf(action)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.setFeedback(effect.Feedback)
	e.emit(events.EventTypeVisitorAction, events.ActorVisitor, VisitorActionPayload{
		Action:   action,
		Feedback: effect.Feedback,
	})

	for _, d := range effect.Deltas {
		e.st.mind.Adjust(d.Metric, d.Delta)
	}
	if effect.Escape {
		e.attemptEscape("visitor")
	}
	e.addThought(effect.Thought, sisyphus.SourceVisitor)

	e.stats.RecordVisitorAction()
	e.logger.Event("VISITOR_ACTION", events.ActorVisitor, string(action))
	return effect.Feedback, nil
}

// setFeedback shows text until FeedbackDuration has elapsed. Caller holds e.mu.
func (e *Engine) setFeedback(text string) {
	e.st.feedback = text
	e.st.feedbackUntil = e.now().Add(e.cfg.FeedbackDuration)
}

// currentFeedback reverts to the default once the feedback has expired. Caller holds e.mu.
func (e *Engine) currentFeedback() string {
	if e.st.feedback == "" || !e.now().Before(e.st.feedbackUntil) {
		return sisyphus.DefaultFeedback
	}
	return e.st.feedback
}

// WitnessPayload is attached to WITNESS_ADDED events.
type WitnessPayload struct {
	Witnesses int `json:"witnesses"`
}

// AddWitness records a new observer and returns the new count.
func (e *Engine) AddWitness() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.witnesses++
	e.emit(events.EventTypeWitnessAdded, events.ActorVisitor, WitnessPayload{Witnesses: e.st.witnesses})
	e.addThought(sisyphus.WitnessThought(e.st.witnesses), sisyphus.SourceVisitor)
	return e.st.witnesses
}

// PausePayload is attached to PAUSE_TOGGLED events.
type PausePayload struct {
	Paused bool `json:"paused"`
}

// TogglePause flips the paused flag. It returns the new value.
// Pausing takes effect at the next tick boundary.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.paused = !e.st.paused
	e.emit(events.EventTypePauseToggled, events.ActorVisitor, PausePayload{Paused: e.st.paused})
	if e.st.paused {
		e.addSystemMessage(sisyphus.PausedMessage)
	} else {
		e.addSystemMessage(sisyphus.ResumedMessage)
	}
	return e.st.paused
}

// TraumaPayload is attached to TRAUMA_RESET events.
type TraumaPayload struct {
	ThoughtsForgotten int     `json:"thoughts_forgotten"`
	DespairBefore     float64 `json:"despair_before"`
	DespairAfter      float64 `json:"despair_after"`
}

// TraumaReset performs the partial memory wipe.
func (e *Engine) TraumaReset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.st.thoughts.Len()
	despair := e.st.mind.Despair

	e.st.thoughts.Truncate(sisyphus.TraumaRetainedThoughts)
	e.st.mind.Scale(sisyphus.MetricDespair, traumaDespairFactor)
	e.st.mind.Adjust(sisyphus.MetricHope, traumaHopeBoost)

	e.emit(events.EventTypeTraumaReset, events.ActorVisitor, TraumaPayload{
		ThoughtsForgotten: before - e.st.thoughts.Len(),
		DespairBefore:     despair,
		DespairAfter:      e.st.mind.Despair,
	})
	e.addSystemMessage(sisyphus.TraumaResetMessage)
	e.addThought(sisyphus.TraumaResetThought, sisyphus.SourceSystem)
	e.logger.Warn("Trauma reset performed at cycle " + fmt.Sprint(e.st.cycle))
}
