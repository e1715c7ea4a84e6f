package engine_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/thoughts"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

func newEngineAgainst(t *testing.T, h http.HandlerFunc) *engine.Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := thoughts.NewClient(srv.URL, time.Second, logger.Discard())
	return engine.NewEngine(events.NewEventLog(nil, 0), logger.Discard(),
		engine.WithRand(rand.New(rand.NewSource(7))),
		engine.WithReflector(client))
}

func TestThoughtServiceFailureFallsBackToLocalCognition(t *testing.T) {
	e := newEngineAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	for i := 0; i < 12; i++ {
		e.Tick()
	}

	if err := e.RequestReflection(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Wait()

	head := e.Thoughts(1)
	if len(head) != 1 || head[0].Source != sisyphus.SourceFallback {
		t.Fatalf("expected fallback thought, got %+v", head)
	}
	if !strings.Contains(head[0].Text, "Cycle 12.") {
		t.Errorf("fallback should mention the cycle: %q", head[0].Text)
	}
}

func TestThoughtServiceSuccessEvolvesState(t *testing.T) {
	e := newEngineAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thought":"I am aware of the loop.","stateEvolution":{"despairDelta":0.02,"awarenessDelta":0.07,"resignationDelta":0}}`))
	})

	th, err := e.ReflectNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if th.Source != sisyphus.SourceReflection {
		t.Fatalf("expected reflection thought, got %+v", th)
	}
	m := e.Snapshot().Metrics
	if m.Despair < 0.119 || m.Despair > 0.121 || m.Awareness < 0.369 || m.Awareness > 0.371 {
		t.Errorf("metrics after reflection: %+v", m)
	}
}
