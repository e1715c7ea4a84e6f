package engine

import (
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
)

// Snapshot is an immutable copy of the simulation state plus derived labels.
type Snapshot struct {
	Cycle             int64                    `json:"cycle"`
	EscapeAttempts    int                      `json:"escape_attempts"`
	Witnesses         int                      `json:"witnesses"`
	Paused            bool                     `json:"paused"`
	Metrics           sisyphus.Metrics         `json:"metrics"`
	Boulder           sisyphus.Boulder         `json:"boulder"`
	Direction         string                   `json:"direction"`
	Phase             sisyphus.Phase           `json:"phase"`
	Severity          sisyphus.Severity        `json:"severity"`
	Feedback          string                   `json:"feedback"`
	LastSystemMessage string                   `json:"last_system_message"`
	Thoughts          []sisyphus.Thought       `json:"thoughts"`
	SystemMessages    []sisyphus.SystemMessage `json:"system_messages"`
	Timestamp         time.Time                `json:"timestamp"`
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Cycle:          e.st.cycle,
		EscapeAttempts: e.st.escapeAttempts,
		Witnesses:      e.st.witnesses,
		Paused:         e.st.paused,
		Metrics:        e.st.mind,
		Boulder:        e.st.boulder,
		Direction:      e.st.boulder.Direction(),
		Phase:          sisyphus.PhaseFor(e.st.cycle),
		Severity:       e.st.mind.DespairSeverity(),
		Feedback:       e.currentFeedback(),
		Thoughts:       e.st.thoughts.Items(),
		SystemMessages: e.st.system.Items(),
		Timestamp:      e.now(),
	}
	if m, ok := e.st.system.Head(); ok {
		s.LastSystemMessage = m.Text
	}
	return s
}

// Thoughts returns up to limit of the most recent thoughts. limit <= 0 means all.
func (e *Engine) Thoughts(limit int) []sisyphus.Thought {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.st.thoughts.Items()
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
