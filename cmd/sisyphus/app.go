package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/storage"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/thoughts"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/config"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
)

// SQLitePersisterAdapter translates simulation events to journal rows.
type SQLitePersisterAdapter struct {
	repo  *storage.SQLiteEventRepository
	stats *metrics.Collector
}

func (a *SQLitePersisterAdapter) Append(event events.Event) error {
	start := time.Now()
	err := a.repo.Append(context.Background(), storage.JournalEvent{
		ID:        event.ID,
		Seq:       event.Seq,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Payload:   payloadMap(event.Payload),
		Cycle:     event.Cycle,
	})
	a.stats.RecordEventWrite(time.Since(start), err)
	return err
}

// payloadMap flattens a typed payload into the journal's JSON object.
func payloadMap(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"unencodable": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		// Scalars and lists are kept under a single key.
		var v any
		json.Unmarshal(b, &v)
		return map[string]any{"value": v}
	}
	return m
}

// app is the dependency graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *sql.DB
	repo     *storage.SQLiteEventRepository
	eventLog *events.EventLog
	engine   *engine.Engine
}

// loadConfig reads the --config flag and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp boots storage, the event log and the engine. Logs go to logOut so
// that stdio commands can keep stdout clean.
func newApp(cmd *cobra.Command, logOut io.Writer, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	appLogger := logger.NewLoggerWithWriters(logOut, logOut)
	appLogger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	appLogger.Info(fmt.Sprintf("Initializing session journal %q...", cfg.Journal.Path))
	db, err := storage.InitSQLite(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	repo := storage.NewSQLiteEventRepository(db)

	eventLog := events.NewEventLog(&SQLitePersisterAdapter{repo: repo, stats: metrics.Get()}, cfg.Journal.Retain)
	eventLog.OnPersistError(func(e events.Event, err error) {
		appLogger.Warn(fmt.Sprintf("Journal write failed for %s #%d: %v", e.Type, e.Seq, err))
	})

	opts := []engine.Option{
		engine.WithConfig(cfg.Engine()),
		engine.WithRand(newRand(cfg.Simulation.Seed)),
	}
	if cfg.ThoughtService.URL != "" {
		appLogger.Info("Reflection enabled via " + cfg.ThoughtService.URL)
		opts = append(opts, engine.WithReflector(thoughts.NewClient(cfg.ThoughtService.URL, cfg.ThoughtService.Timeout, appLogger)))
	}

	return &app{
		cfg:      cfg,
		logger:   appLogger,
		db:       db,
		repo:     repo,
		eventLog: eventLog,
		engine:   engine.NewEngine(eventLog, appLogger, opts...),
	}, nil
}

// Close waits for reflections and journal writes, then closes the journal.
func (a *app) Close() {
	a.engine.Wait()
	a.eventLog.Flush()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Closing journal: " + err.Error())
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
