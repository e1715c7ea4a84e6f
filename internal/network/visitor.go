// Package network - visitor.go
// VisitorBridge: REST API for anonymous visitors of the hill.
//
// Mutating endpoints are rate limited per remote address. State changes reach
// WebSocket viewers through the hub's event poller.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/render"
)

// VisitorBridge handles visitor interactions over REST.
type VisitorBridge struct {
	engine  *engine.Engine
	limiter *ratelimit.Limiter
	logger  *logger.Logger
	stats   *metrics.Collector

	// rng feeds the star field of rendered frames.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewVisitorBridge creates a new visitor interaction handler.
func NewVisitorBridge(eng *engine.Engine, limiter *ratelimit.Limiter, log *logger.Logger) *VisitorBridge {
	return &VisitorBridge{
		engine:  eng,
		limiter: limiter,
		logger:  log,
		stats:   metrics.Get(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ActionRequest is the payload of POST /api/visitor/action.
type ActionRequest struct {
	Action string `json:"action"`
}

// HandleState returns the current snapshot.
// GET /api/state
func (vb *VisitorBridge) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, vb.engine.Snapshot())
}

// HandleAction applies a visitor action.
// POST /api/visitor/action
func (vb *VisitorBridge) HandleAction(w http.ResponseWriter, r *http.Request) {
	if !vb.admit(w, r) {
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		jsonError(w, "Missing action", http.StatusBadRequest)
		return
	}

	action, err := engine.ParseAction(req.Action)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	feedback, err := vb.engine.Visit(action)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jsonSuccess(w, map[string]interface{}{
		"success":  true,
		"action":   action,
		"feedback": feedback,
		"state":    vb.engine.Snapshot(),
	})
}

// HandleWitness adds an observer.
// POST /api/witness
func (vb *VisitorBridge) HandleWitness(w http.ResponseWriter, r *http.Request) {
	if !vb.admit(w, r) {
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"success":   true,
		"witnesses": vb.engine.AddWitness(),
	})
}

// HandlePause toggles the simulation.
// POST /api/pause
func (vb *VisitorBridge) HandlePause(w http.ResponseWriter, r *http.Request) {
	if !vb.admit(w, r) {
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"success": true,
		"paused":  vb.engine.TogglePause(),
	})
}

// HandleTraumaReset performs the partial memory wipe.
// POST /api/trauma-reset
func (vb *VisitorBridge) HandleTraumaReset(w http.ResponseWriter, r *http.Request) {
	if !vb.admit(w, r) {
		return
	}
	vb.engine.TraumaReset()
	jsonSuccess(w, map[string]interface{}{
		"success": true,
		"state":   vb.engine.Snapshot(),
	})
}

// HandleReflect starts a reflection against the thought service.
// POST /api/reflect
func (vb *VisitorBridge) HandleReflect(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !vb.engine.CanReflect() {
		jsonError(w, engine.ErrReflectionDisabled.Error(), http.StatusConflict)
		return
	}
	if !vb.admit(w, r) {
		return
	}
	// The reflection outlives the request.
	err := vb.engine.RequestReflection(context.WithoutCancel(r.Context()))
	if errors.Is(err, engine.ErrReflectionDisabled) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "reflecting": true})
}

// HandleFrame renders the current state.
// GET /frame.png
func (vb *VisitorBridge) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s := vb.engine.Snapshot()
	vb.rngMu.Lock()
	img := render.Frame(s, vb.rng)
	vb.rngMu.Unlock()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.EncodePNG(w, img); err != nil {
		vb.logger.Warn("Failed to write frame: " + err.Error())
	}
}

// RegisterRoutes sets up the visitor API routes.
func (vb *VisitorBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", vb.HandleState)
	mux.HandleFunc("/api/visitor/action", vb.HandleAction)
	mux.HandleFunc("/api/witness", vb.HandleWitness)
	mux.HandleFunc("/api/pause", vb.HandlePause)
	mux.HandleFunc("/api/trauma-reset", vb.HandleTraumaReset)
	mux.HandleFunc("/api/reflect", vb.HandleReflect)
	mux.HandleFunc("/frame.png", vb.HandleFrame)
}

// admit enforces POST and the per-visitor rate limit.
func (vb *VisitorBridge) admit(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if vb.limiter != nil && !vb.limiter.Allow(remoteKey(r)) {
		vb.stats.RecordRateLimited()
		vb.logger.Warn("Rate limit exceeded for visitor " + remoteKey(r))
		jsonError(w, "Too many requests", http.StatusTooManyRequests)
		return false
	}
	return true
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
