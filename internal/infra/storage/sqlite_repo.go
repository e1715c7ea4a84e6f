package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event JournalEvent) error {
	payload := []byte("null")
	if event.Payload != nil {
		b, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = b
	}

	query := `
		INSERT INTO events (id, seq, timestamp, event_type, actor_id, payload, cycle)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Seq, event.Timestamp, event.EventType, event.ActorID,
		string(payload), event.Cycle,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// getMany scans rows selected newest first and returns them oldest first.
func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []JournalEvent
	for rows.Next() {
		var e JournalEvent
		var payloadStr string
		if err := rows.Scan(&e.ID, &e.Seq, &e.Timestamp, &e.EventType, &e.ActorID, &payloadStr, &e.Cycle); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload of %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]JournalEvent, error) {
	query := `SELECT id, seq, timestamp, event_type, actor_id, payload, cycle FROM events ORDER BY seq DESC LIMIT ?`
	return r.getMany(ctx, query, limit)
}

func (r *SQLiteEventRepository) ByType(ctx context.Context, eventType string, limit int) ([]JournalEvent, error) {
	query := `SELECT id, seq, timestamp, event_type, actor_id, payload, cycle FROM events WHERE event_type = ? ORDER BY seq DESC LIMIT ?`
	return r.getMany(ctx, query, eventType, limit)
}

func (r *SQLiteEventRepository) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM events GROUP BY event_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// Ensure SQLiteEventRepository implements EventRepository
var _ EventRepository = (*SQLiteEventRepository)(nil)
