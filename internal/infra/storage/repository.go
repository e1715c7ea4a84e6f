// Package storage provides the session journal: a SQLite copy of the event
// log that lives as long as the process.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// JournalEvent mirrors the event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type JournalEvent struct {
	ID        string         `json:"id" db:"id"`
	Seq       uint64         `json:"seq" db:"seq"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	EventType string         `json:"event_type" db:"event_type"`
	ActorID   string         `json:"actor_id" db:"actor_id"`
	Payload   map[string]any `json:"payload" db:"payload"`
	Cycle     int64          `json:"cycle" db:"cycle"`
}

// EventRepository defines the interface for journal persistence.
type EventRepository interface {
	// Append adds a new event to the journal.
	Append(ctx context.Context, event JournalEvent) error

	// Recent returns up to limit of the latest events, oldest first.
	Recent(ctx context.Context, limit int) ([]JournalEvent, error)

	// ByType returns up to limit of the latest events of one type, oldest first.
	ByType(ctx context.Context, eventType string, limit int) ([]JournalEvent, error)

	// CountByType returns how many events of each type were journaled.
	CountByType(ctx context.Context) (map[string]int, error)
}
