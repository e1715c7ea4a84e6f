package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath keeps the journal in memory.
const MemoryPath = ":memory:"

// InitSQLite opens the journal database, creates the schema and clears any
// events left by a previous process. The journal never outlives a session.
func InitSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = MemoryPath
	}

	inMemory := dbPath == MemoryPath || strings.Contains(dbPath, "mode=memory")
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database, and SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	if _, err := db.Exec(`DELETE FROM events`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to clear previous session: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			cycle INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_seq ON events(seq);`,
		`CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
