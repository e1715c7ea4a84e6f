// Package engine contains the simulation loop of the eternal boulder.
//
// The Engine owns all mutable state. Every tick, deep thought, visitor action
// and reflection takes the engine mutex for its whole body, records what it
// did to the EventLog and returns. No operation holds the mutex across I/O.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
)

// Config holds the timing knobs of the simulation.
type Config struct {
	TickInterval        time.Duration
	DeepThoughtInterval time.Duration
	DeepThoughtChance   float64
	FeedbackDuration    time.Duration
	GreetingDelay       time.Duration
	// ReflectionEvery requests a reflection every n cycles; 0 disables it.
	ReflectionEvery   int64
	ReflectionTimeout time.Duration
}

// DefaultConfig returns the stock pacing.
func DefaultConfig() Config {
	return Config{
		TickInterval:        3 * time.Second,
		DeepThoughtInterval: 15 * time.Second,
		DeepThoughtChance:   0.3,
		FeedbackDuration:    3 * time.Second,
		GreetingDelay:       1 * time.Second,
		ReflectionTimeout:   10 * time.Second,
	}
}

// Option customises an Engine at construction.
type Option func(*Engine)

// WithConfig overrides the default timing configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRand injects the random source. Seeded sources make runs reproducible.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock injects the wall clock used for timestamps and feedback expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithReflector enables reflection against a thought service.
func WithReflector(r Reflector) Option {
	return func(e *Engine) { e.reflector = r }
}

// state is the SimulationState. Guarded by Engine.mu.
type state struct {
	cycle          int64
	escapeAttempts int
	witnesses      int
	paused         bool
	boulder        sisyphus.Boulder
	mind           sisyphus.Metrics
	thoughts       *sisyphus.BoundedLog[sisyphus.Thought]
	system         *sisyphus.BoundedLog[sisyphus.SystemMessage]
	feedback       string
	feedbackUntil  time.Time
}

func newState() state {
	return state{
		witnesses: 1,
		boulder:   sisyphus.NewBoulder(),
		mind:      sisyphus.InitialMetrics(),
		thoughts:  sisyphus.NewBoundedLog[sisyphus.Thought](sisyphus.ThoughtLogCapacity),
		system:    sisyphus.NewBoundedLog[sisyphus.SystemMessage](sisyphus.SystemLogCapacity),
	}
}

// Engine is the central orchestrator of the simulation.
type Engine struct {
	mu  sync.Mutex
	st  state
	cfg Config

	eventLog  *events.EventLog
	logger    *logger.Logger
	stats     *metrics.Collector
	rng       *rand.Rand
	now       func() time.Time
	reflector Reflector

	// ctx bounds reflections spawned by the tick loop.
	ctx         context.Context
	loops       sync.WaitGroup
	reflections sync.WaitGroup
}

// NewEngine initializes the simulation state and its dependencies.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		st:       newState(),
		cfg:      DefaultConfig(),
		eventLog: eventLog,
		logger:   log,
		stats:    metrics.Get(),
		now:      time.Now,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Start spawns the tick loop, the deep-thought loop and the greeting timer.
// All of them stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting eternal simulation engine...")

	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	ticks := NewScheduler("tick", e.cfg.TickInterval, true, func() { e.Tick() }, e.logger)
	deep := NewScheduler("deep-thought", e.cfg.DeepThoughtInterval, false, func() { e.DeepThought() }, e.logger)

	e.loops.Add(3)
	go func() {
		defer e.loops.Done()
		ticks.Run(ctx)
	}()
	go func() {
		defer e.loops.Done()
		deep.Run(ctx)
	}()
	go func() {
		defer e.loops.Done()
		e.greetAfter(ctx, e.cfg.GreetingDelay)
	}()
}

// Wait blocks until the loops spawned by Start have returned and every
// in-flight reflection has been applied. After Start, cancel its ctx first.
// Once Wait returns the engine appends no more events on its own.
func (e *Engine) Wait() {
	e.loops.Wait()
	e.reflections.Wait()
}

// Config returns the timing configuration in use.
func (e *Engine) Config() Config {
	return e.cfg
}

// GetEventLog exposes the event log to pollers and the history endpoint.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// emit records an event stamped with the current cycle. Caller holds e.mu.
func (e *Engine) emit(t events.EventType, actor string, payload any) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.Append(events.Event{
		Timestamp: e.now(),
		Type:      t,
		ActorID:   actor,
		Payload:   payload,
		Cycle:     e.st.cycle,
	})
}

// ThoughtPayload is attached to THOUGHT events.
type ThoughtPayload struct {
	Text   string          `json:"text"`
	Source sisyphus.Source `json:"source"`
}

// addThought pushes a thought to the head of the log. Caller holds e.mu.
func (e *Engine) addThought(text string, src sisyphus.Source) sisyphus.Thought {
	th := sisyphus.Thought{
		Timestamp: e.now(),
		Text:      text,
		Cycle:     e.st.cycle,
		Source:    src,
	}
	e.st.thoughts.Push(th)
	e.stats.RecordThought()
	e.emit(events.EventTypeThought, events.ActorSisyphus, ThoughtPayload{Text: text, Source: src})
	return th
}

// SystemMessagePayload is attached to SYSTEM_MESSAGE events.
type SystemMessagePayload struct {
	Text string `json:"text"`
}

// addSystemMessage pushes a line to the system override channel. Caller holds e.mu.
func (e *Engine) addSystemMessage(text string) {
	e.st.system.Push(sisyphus.SystemMessage{
		Timestamp: e.now(),
		Text:      text,
		Cycle:     e.st.cycle,
	})
	e.emit(events.EventTypeSystemMessage, events.ActorSystem, SystemMessagePayload{Text: text})
}

// thoughtContext is the interpolation input for templates. Caller holds e.mu.
func (e *Engine) thoughtContext() sisyphus.ThoughtContext {
	return sisyphus.ThoughtContext{
		Cycle:          e.st.cycle,
		EscapeAttempts: e.st.escapeAttempts,
		Witnesses:      e.st.witnesses,
		Metrics:        e.st.mind,
	}
}
