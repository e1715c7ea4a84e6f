// Package network - history.go
// Session history: the journal of this process, summarised for viewers.
package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/storage"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

// maxHistoryLimit bounds one history page.
const maxHistoryLimit = 500

// HistoryHandler provides the history API.
type HistoryHandler struct {
	recap  *storage.Reconstructor
	logger *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(recap *storage.Reconstructor, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		recap:  recap,
		logger: log,
	}
}

// HistoryResponse is the API response for /api/history.
type HistoryResponse struct {
	TotalEvents int                  `json:"total_events"`
	FilteredBy  string               `json:"filtered_by,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	Events      []storage.RecapEvent `json:"events"`
}

// HandleHistory returns the recap of recent events.
// GET /api/history?type=VISITOR_ACTION&limit=50
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventType := r.URL.Query().Get("type")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recap, err := hh.recap.GenerateRecap(r.Context(), eventType, limit)
	if err != nil {
		hh.logger.Error("History recap failed: " + err.Error())
		jsonError(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	jsonSuccess(w, HistoryResponse{
		TotalEvents: len(recap),
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      recap,
	})
}

// HandleStats returns aggregate counts for the session.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := hh.recap.Summarize(r.Context())
	if err != nil {
		hh.logger.Error("History summary failed: " + err.Error())
		jsonError(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	jsonSuccess(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        summary,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/history/stats", hh.HandleStats)
}
