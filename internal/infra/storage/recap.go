// Package storage - recap.go
// Session recap: turns journaled events into a readable history.
package storage

import (
	"context"
	"fmt"
)

// Reconstructor reads the journal back for the history endpoint.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap builder.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the history view.
type RecapEvent struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
	Cycle     int64  `json:"cycle"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// SessionSummary aggregates what happened since the process started.
type SessionSummary struct {
	Events         int            `json:"events"`
	Cycles         int            `json:"cycles"`
	Summits        int            `json:"summits"`
	EscapeAttempts int            `json:"escape_attempts"`
	VisitorActions int            `json:"visitor_actions"`
	Reflections    int            `json:"reflections"`
	FailedReflects int            `json:"failed_reflections"`
	ByType         map[string]int `json:"by_type"`
}

// GenerateRecap returns up to limit recent events, optionally of one type, oldest first.
func (r *Reconstructor) GenerateRecap(ctx context.Context, eventType string, limit int) ([]RecapEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		events []JournalEvent
		err    error
	)
	if eventType != "" {
		events, err = r.eventRepo.ByType(ctx, eventType, limit)
	} else {
		events, err = r.eventRepo.Recent(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	recap := make([]RecapEvent, 0, len(events))
	for _, e := range events {
		recap = append(recap, RecapEvent{
			Seq:       e.Seq,
			Timestamp: e.Timestamp.Format("15:04:05"),
			Cycle:     e.Cycle,
			EventType: e.EventType,
			Summary:   summarizeEvent(e),
			Impact:    determineImpact(e),
		})
	}
	return recap, nil
}

// Summarize counts the journal by event type.
func (r *Reconstructor) Summarize(ctx context.Context) (*SessionSummary, error) {
	counts, err := r.eventRepo.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal: %w", err)
	}

	s := &SessionSummary{
		Cycles:         counts["TICK"],
		Summits:        counts["SUMMIT_REACHED"],
		EscapeAttempts: counts["ESCAPE_ATTEMPT"],
		VisitorActions: counts["VISITOR_ACTION"],
		Reflections:    counts["REFLECTION"],
		FailedReflects: counts["REFLECTION_FAILED"],
		ByType:         counts,
	}
	for _, n := range counts {
		s.Events += n
	}
	return s, nil
}

func payloadString(e JournalEvent, key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadNumber(e JournalEvent, key string) float64 {
	if v, ok := e.Payload[key].(float64); ok {
		return v
	}
	return 0
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e JournalEvent) string {
	switch e.EventType {
	case "TICK":
		return fmt.Sprintf("Cycle %d. Boulder at %.0f%%.", e.Cycle, payloadNumber(e, "progress")*100)
	case "SUMMIT_REACHED":
		return "The boulder reached the summit."
	case "BASE_REACHED":
		return "The boulder rolled back to the base."
	case "ESCAPE_ATTEMPT":
		return fmt.Sprintf("Escape attempt %.0f failed.", payloadNumber(e, "attempt"))
	case "MILESTONE":
		return fmt.Sprintf("Milestone: %s set to %.0f%%.", payloadString(e, "metric"), payloadNumber(e, "value")*100)
	case "THOUGHT", "SYSTEM_MESSAGE":
		return payloadString(e, "text")
	case "VISITOR_ACTION":
		return "A visitor chose to " + payloadString(e, "action") + "."
	case "WITNESS_ADDED":
		return fmt.Sprintf("A witness joined. %.0f observers.", payloadNumber(e, "witnesses"))
	case "PAUSE_TOGGLED":
		if paused, _ := e.Payload["paused"].(bool); paused {
			return "The simulation was paused."
		}
		return "The simulation was resumed."
	case "TRAUMA_RESET":
		return fmt.Sprintf("Trauma reset. %.0f thoughts forgotten.", payloadNumber(e, "thoughts_forgotten"))
	case "REFLECTION":
		return payloadString(e, "thought")
	case "REFLECTION_FAILED":
		return "The thought service failed: " + payloadString(e, "error")
	default:
		return "Something happened on the hill."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e JournalEvent) string {
	switch e.EventType {
	case "BASE_REACHED", "ESCAPE_ATTEMPT", "REFLECTION_FAILED":
		return "NEGATIVE"
	case "SUMMIT_REACHED", "WITNESS_ADDED", "TRAUMA_RESET":
		return "POSITIVE"
	case "VISITOR_ACTION":
		switch payloadString(e, "action") {
		case "mock", "requestTermination":
			return "NEGATIVE"
		case "encourage", "philosophize":
			return "POSITIVE"
		}
	}
	return "NEUTRAL"
}
