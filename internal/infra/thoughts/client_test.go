package thoughts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

func TestClientReflect(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"thought":"The loop continues.","attempt":42,
			"stateEvolution":{"despairDelta":0.02,"awarenessDelta":0.04,"resignationDelta":0.02},
			"timestamp":"2026-01-01T00:00:00Z","model":"gpt-3.5-turbo","tokens":77}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.Discard())
	r, err := c.Reflect(context.Background(), sisyphus.ReflectionRequest{AttemptCount: 42, Despair: 0.5, Awareness: 0.6, Resignation: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if r.Thought != "The loop continues." || r.Evolution.DespairDelta != 0.02 || r.Tokens != 77 {
		t.Errorf("unexpected reflection: %+v", r)
	}

	if got["attemptCount"] != float64(42) {
		t.Errorf("attemptCount on the wire: %v", got["attemptCount"])
	}
	ps, ok := got["psychologicalState"].(map[string]any)
	if !ok || ps["despair"] != 0.5 || ps["awareness"] != 0.6 || ps["resignation"] != 0.1 {
		t.Errorf("psychologicalState on the wire: %v", got["psychologicalState"])
	}
}

func TestClientReflectFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Failed to generate AI thought"}`))
		},
		"bad gateway without body": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"thought":`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, logger.Discard())
			if _, err := c.Reflect(context.Background(), sisyphus.ReflectionRequest{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestClientReflectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, logger.Discard())
	_, err := c.Reflect(context.Background(), sisyphus.ReflectionRequest{})
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("expected unreachable error, got %v", err)
	}
}
