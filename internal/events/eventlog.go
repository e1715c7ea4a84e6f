// Package events provides the event log of the simulation.
// Every state change the engine makes is recorded here, in order, and can be
// written through to a journal.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a simulation event.
type EventType string

const (
	EventTypeTick             EventType = "TICK"
	EventTypeSummitReached    EventType = "SUMMIT_REACHED"
	EventTypeBaseReached      EventType = "BASE_REACHED"
	EventTypeEscapeAttempt    EventType = "ESCAPE_ATTEMPT"
	EventTypeMilestone        EventType = "MILESTONE"
	EventTypeThought          EventType = "THOUGHT"
	EventTypeSystemMessage    EventType = "SYSTEM_MESSAGE"
	EventTypeVisitorAction    EventType = "VISITOR_ACTION"
	EventTypeWitnessAdded     EventType = "WITNESS_ADDED"
	EventTypePauseToggled     EventType = "PAUSE_TOGGLED"
	EventTypeTraumaReset      EventType = "TRAUMA_RESET"
	EventTypeReflection       EventType = "REFLECTION"
	EventTypeReflectionFailed EventType = "REFLECTION_FAILED"
)

// Actors that emit events.
const (
	ActorSystem    = "SYSTEM"
	ActorSisyphus  = "SISYPHUS"
	ActorVisitor   = "VISITOR"
	ActorReflector = "THOUGHT_SERVICE"
)

// DefaultRetention is how many events the in-memory log keeps.
const DefaultRetention = 1000

// Event represents an immutable record of something that happened in the simulation.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ActorID   string    `json:"actor_id"`
	Payload   any       `json:"payload"`
	Cycle     int64     `json:"cycle"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event Event) error
}

// EventLog is the bounded, sequenced in-memory log of simulation events.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	retain    int
	lastSeq   uint64
	persister EventPersister
	onError   func(Event, error)
	pending   sync.WaitGroup
}

// NewEventLog creates a log keeping the most recent retain events.
// persister may be nil.
func NewEventLog(persister EventPersister, retain int) *EventLog {
	if retain <= 0 {
		retain = DefaultRetention
	}
	return &EventLog{
		events:    make([]Event, 0, retain),
		retain:    retain,
		persister: persister,
	}
}

// OnPersistError registers a callback for failed journal writes.
func (el *EventLog) OnPersistError(fn func(Event, error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append stamps the event with an ID, a sequence number and a timestamp (if
// missing) and stores it. The stamped event is returned.
func (el *EventLog) Append(event Event) Event {
	el.mu.Lock()
	el.lastSeq++
	event.Seq = el.lastSeq
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.events = append(el.events, event)
	if over := len(el.events) - el.retain; over > 0 {
		clear(el.events[:over])
		el.events = append(el.events[:0], el.events[over:]...)
	}
	persister, onError := el.persister, el.onError
	if persister != nil {
		el.pending.Add(1)
	}
	el.mu.Unlock()

	if persister != nil {
		// Write through off the caller's path; the journal orders by Seq.
		go func(e Event) {
			defer el.pending.Done()
			if err := persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(event)
	}
	return event
}

// Flush blocks until every in-flight journal write has finished.
func (el *EventLog) Flush() {
	el.pending.Wait()
}

// Since returns the retained events with a sequence number greater than seq, oldest first.
func (el *EventLog) Since(seq uint64) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	// Sequence numbers are contiguous, so the offset can be computed directly.
	if len(el.events) == 0 || seq >= el.lastSeq {
		return nil
	}
	first := el.events[0].Seq
	start := 0
	if seq >= first {
		start = int(seq - first + 1)
	}
	out := make([]Event, len(el.events)-start)
	copy(out, el.events[start:])
	return out
}

// LastSeq is the sequence number of the most recent event, 0 when empty.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.lastSeq
}

// GetByType returns retained events of one type, oldest first.
func (el *EventLog) GetByType(t EventType) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}
