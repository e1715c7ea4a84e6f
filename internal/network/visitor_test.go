package network

import (
	"encoding/json"
	"image/png"
	"net/http"
	"testing"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/render"
)

func newVisitorMux(t *testing.T, limiter *ratelimit.Limiter) (*http.ServeMux, *engine.Engine) {
	t.Helper()
	eng := newTestEngine(t)
	mux := http.NewServeMux()
	NewVisitorBridge(eng, limiter, logger.Discard()).RegisterRoutes(mux)
	return mux, eng
}

func TestHandleState(t *testing.T) {
	mux, _ := newVisitorMux(t, nil)

	rec := do(t, mux, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s engine.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Cycle != 0 || s.Witnesses != 1 || s.Phase.Name != "INITIALIZATION" {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestHandleAction(t *testing.T) {
	mux, eng := newVisitorMux(t, nil)
	before := eng.Snapshot().Metrics

	rec := do(t, mux, http.MethodPost, "/api/visitor/action", `{"action":"mock"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	after := eng.Snapshot().Metrics
	if after.Despair <= before.Despair || after.Hope >= before.Hope {
		t.Errorf("mock should raise despair and lower hope: %+v -> %+v", before, after)
	}
}

func TestHandleActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, `{"action":`, http.StatusBadRequest},
		{"missing action", http.MethodPost, `{}`, http.StatusBadRequest},
		{"unknown action", http.MethodPost, `{"action":"dance"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, eng := newVisitorMux(t, nil)
			seq := eng.GetEventLog().LastSeq()

			rec := do(t, mux, tt.method, "/api/visitor/action", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			json.NewDecoder(rec.Body).Decode(&body)
			if body["error"] == "" {
				t.Error("expected a JSON error body")
			}
			if eng.GetEventLog().LastSeq() != seq {
				t.Error("rejected request must not change state")
			}
		})
	}
}

func TestWitnessPauseAndReset(t *testing.T) {
	mux, eng := newVisitorMux(t, nil)

	rec := do(t, mux, http.MethodPost, "/api/witness", "")
	var w struct{ Witnesses int }
	json.NewDecoder(rec.Body).Decode(&w)
	if w.Witnesses != 2 {
		t.Errorf("witnesses = %d", w.Witnesses)
	}

	rec = do(t, mux, http.MethodPost, "/api/pause", "")
	var p struct{ Paused bool }
	json.NewDecoder(rec.Body).Decode(&p)
	if !p.Paused || !eng.Snapshot().Paused {
		t.Error("pause did not take")
	}

	if rec := do(t, mux, http.MethodPost, "/api/trauma-reset", ""); rec.Code != http.StatusOK {
		t.Errorf("trauma reset status = %d", rec.Code)
	}
	if got := eng.Snapshot().LastSystemMessage; got == "" {
		t.Error("trauma reset should leave a system message")
	}
}

func TestReflectWithoutThoughtService(t *testing.T) {
	limiter := ratelimit.NewLimiter(0.001, 1)
	mux, _ := newVisitorMux(t, limiter)
	for i := 0; i < 2; i++ {
		if rec := do(t, mux, http.MethodPost, "/api/reflect", ""); rec.Code != http.StatusConflict {
			t.Errorf("request %d status = %d, want 409", i+1, rec.Code)
		}
	}
	// The refused reflections left the visitor's token in place.
	if rec := do(t, mux, http.MethodPost, "/api/witness", ""); rec.Code != http.StatusOK {
		t.Errorf("witness status = %d", rec.Code)
	}
}

func TestMutatingEndpointsAreRateLimited(t *testing.T) {
	mux, _ := newVisitorMux(t, ratelimit.NewLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		if rec := do(t, mux, http.MethodPost, "/api/witness", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodPost, "/api/visitor/action", `{"action":"encourage"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	// Reads are not limited.
	if rec := do(t, mux, http.MethodGet, "/api/state", ""); rec.Code != http.StatusOK {
		t.Errorf("state status = %d", rec.Code)
	}
}

func TestHandleFrame(t *testing.T) {
	mux, _ := newVisitorMux(t, nil)

	rec := do(t, mux, http.MethodGet, "/frame.png", "")
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != render.Width || b.Dy() != render.Height {
		t.Errorf("frame bounds = %v", b)
	}
}
