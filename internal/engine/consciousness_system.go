// Package engine - consciousness_system.go
// Scripted milestones and the thought generators that fill the monologue.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
)

// MilestonePayload is attached to MILESTONE events.
type MilestonePayload struct {
	Metric sisyphus.Metric `json:"metric"`
	Value  float64         `json:"value"`
}

// evolveConsciousness applies the milestone for the current cycle, if any. Caller holds e.mu.
func (e *Engine) evolveConsciousness() {
	m, ok := sisyphus.MilestoneAt(e.st.cycle)
	if !ok {
		return
	}
	e.st.mind.Set(m.Metric, m.Value)
	e.emit(events.EventTypeMilestone, events.ActorSisyphus, MilestonePayload{Metric: m.Metric, Value: m.Value})
	e.addThought(m.Thought, sisyphus.SourceMilestone)
	e.logger.Info(fmt.Sprintf("Milestone reached at cycle %d: %s=%.2f", e.st.cycle, m.Metric, m.Value))
}

// generateThought appends one template thought chosen uniformly. Caller holds e.mu.
func (e *Engine) generateThought() {
	tmpl := sisyphus.ThoughtTemplates[e.rng.Intn(len(sisyphus.ThoughtTemplates))]
	e.addThought(tmpl(e.thoughtContext()), sisyphus.SourceTemplate)
}

// DeepThought rolls for a deep thought. It returns true if one was appended.
func (e *Engine) DeepThought() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.paused {
		return false
	}
	if e.rng.Float64() >= e.cfg.DeepThoughtChance {
		return false
	}
	tmpl := sisyphus.DeepThoughts[e.rng.Intn(len(sisyphus.DeepThoughts))]
	e.addThought(tmpl(e.thoughtContext()), sisyphus.SourceDeep)
	return true
}

// Greet appends the awakening thought.
func (e *Engine) Greet() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addThought(sisyphus.GreetingThought, sisyphus.SourceSystem)
}

func (e *Engine) greetAfter(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
		e.Greet()
	}
}
