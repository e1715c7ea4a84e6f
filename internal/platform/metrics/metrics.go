// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Simulation metrics
	ThoughtsAppended int64
	VisitorActions   int64
	EscapeAttempts   int64
	RateLimited      int64

	// Journal metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Thought service metrics
	ReflectionsOK     int64
	ReflectionsFailed int64
	LLMRequests       int64
	LLMFailures       int64
	LLMTokensUsed     int64
	LLMCostUSD        float64
	LLMLatencySum     int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordThought counts a thought appended to the log.
func (c *Collector) RecordThought() {
	atomic.AddInt64(&c.ThoughtsAppended, 1)
}

// RecordVisitorAction counts an accepted visitor intervention.
func (c *Collector) RecordVisitorAction() {
	atomic.AddInt64(&c.VisitorActions, 1)
}

// RecordEscapeAttempt counts a failed escape.
func (c *Collector) RecordEscapeAttempt() {
	atomic.AddInt64(&c.EscapeAttempts, 1)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited() {
	atomic.AddInt64(&c.RateLimited, 1)
}

// RecordEventWrite records an event write to the journal.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordReflection records the outcome of one thought service round-trip.
func (c *Collector) RecordReflection(ok bool) {
	if ok {
		atomic.AddInt64(&c.ReflectionsOK, 1)
	} else {
		atomic.AddInt64(&c.ReflectionsFailed, 1)
	}
}

// RecordLLMCall records an LLM API call.
func (c *Collector) RecordLLMCall(tokens int, cost float64, latency time.Duration) {
	atomic.AddInt64(&c.LLMRequests, 1)
	atomic.AddInt64(&c.LLMTokensUsed, int64(tokens))
	atomic.AddInt64(&c.LLMLatencySum, int64(latency))

	c.mu.Lock()
	c.LLMCostUSD += cost
	c.mu.Unlock()
}

// RecordLLMFailure records a provider call that returned an error.
func (c *Collector) RecordLLMFailure() {
	atomic.AddInt64(&c.LLMFailures, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	llmRequests := atomic.LoadInt64(&c.LLMRequests)

	// Calculate averages
	var tickAvg, eventAvg, llmAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}
	if llmRequests > 0 {
		llmAvg = float64(atomic.LoadInt64(&c.LLMLatencySum)) / float64(llmRequests) / 1e9 // seconds
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"simulation": map[string]interface{}{
			"thoughts":        atomic.LoadInt64(&c.ThoughtsAppended),
			"visitor_actions": atomic.LoadInt64(&c.VisitorActions),
			"escape_attempts": atomic.LoadInt64(&c.EscapeAttempts),
			"rate_limited":    atomic.LoadInt64(&c.RateLimited),
		},

		"journal": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"reflection": map[string]interface{}{
			"ok":     atomic.LoadInt64(&c.ReflectionsOK),
			"failed": atomic.LoadInt64(&c.ReflectionsFailed),
		},

		"llm": map[string]interface{}{
			"requests":        llmRequests,
			"failures":        atomic.LoadInt64(&c.LLMFailures),
			"tokens_used":     atomic.LoadInt64(&c.LLMTokensUsed),
			"cost_usd":        c.LLMCostUSD,
			"avg_latency_sec": llmAvg,
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

func writeCounter(w http.ResponseWriter, name, help, kind string, value any) {
	fmt.Fprintf(w, "# HELP sisyphus_%s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE sisyphus_%s %s\n", name, kind)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(w, "sisyphus_%s %.4f\n\n", name, v)
	default:
		fmt.Fprintf(w, "sisyphus_%s %d\n\n", name, v)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		writeCounter(w, "tick_count", "Total tick cycles", "counter", atomic.LoadInt64(&c.TickCount))
		writeCounter(w, "tick_latency_max_ms", "Maximum tick latency", "gauge", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)
		writeCounter(w, "thoughts_total", "Thoughts appended to the log", "counter", atomic.LoadInt64(&c.ThoughtsAppended))
		writeCounter(w, "visitor_actions_total", "Visitor interventions applied", "counter", atomic.LoadInt64(&c.VisitorActions))
		writeCounter(w, "escape_attempts_total", "Failed escape attempts", "counter", atomic.LoadInt64(&c.EscapeAttempts))
		writeCounter(w, "rate_limited_total", "Requests rejected by the rate limiter", "counter", atomic.LoadInt64(&c.RateLimited))

		writeCounter(w, "events_written", "Total events written to the journal", "counter", atomic.LoadInt64(&c.EventsWritten))
		writeCounter(w, "event_write_errors", "Total journal write errors", "counter", atomic.LoadInt64(&c.EventWriteErrors))

		writeCounter(w, "ws_connections", "Active WebSocket connections", "gauge", atomic.LoadInt64(&c.WSConnectionsActive))
		fmt.Fprintf(w, "# HELP sisyphus_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE sisyphus_ws_messages_total counter\n")
		fmt.Fprintf(w, "sisyphus_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "sisyphus_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		fmt.Fprintf(w, "# HELP sisyphus_reflections_total Thought service round-trips\n")
		fmt.Fprintf(w, "# TYPE sisyphus_reflections_total counter\n")
		fmt.Fprintf(w, "sisyphus_reflections_total{outcome=\"ok\"} %d\n", atomic.LoadInt64(&c.ReflectionsOK))
		fmt.Fprintf(w, "sisyphus_reflections_total{outcome=\"failed\"} %d\n\n", atomic.LoadInt64(&c.ReflectionsFailed))

		writeCounter(w, "llm_requests", "Total LLM API requests", "counter", atomic.LoadInt64(&c.LLMRequests))
		writeCounter(w, "llm_failures", "Total LLM API failures", "counter", atomic.LoadInt64(&c.LLMFailures))
		writeCounter(w, "llm_tokens_used", "Total tokens consumed", "counter", atomic.LoadInt64(&c.LLMTokensUsed))

		c.mu.RLock()
		writeCounter(w, "llm_cost_usd", "Total LLM cost in USD", "counter", c.LLMCostUSD)
		c.mu.RUnlock()
	}
}
