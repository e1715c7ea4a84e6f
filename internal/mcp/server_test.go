package mcp

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

type cannedReflector struct{ text string }

func (r cannedReflector) Reflect(context.Context, sisyphus.ReflectionRequest) (sisyphus.Reflection, error) {
	return sisyphus.Reflection{Thought: r.text, Evolution: sisyphus.StateEvolution{AwarenessDelta: 0.05}}, nil
}

func newTestServer(t *testing.T, opts ...engine.Option) (*Server, *engine.Engine) {
	t.Helper()
	el := events.NewEventLog(nil, events.DefaultRetention)
	base := []engine.Option{engine.WithRand(rand.New(rand.NewSource(1)))}
	eng := engine.NewEngine(el, logger.Discard(), append(base, opts...)...)
	return NewServer(eng, &Config{Name: "sisyphus", Version: "test"}, logger.Discard()), eng
}

func TestHandleState(t *testing.T) {
	s, eng := newTestServer(t)
	for i := 0; i < 11; i++ {
		eng.Tick()
	}

	_, out, err := s.handleState(context.Background(), nil, StateInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Cycle != 11 || out.Phase != "CONFUSION" || out.Direction == "" {
		t.Errorf("state = %+v", out)
	}
	if out.Metrics.Awareness != 0.6 {
		t.Errorf("awareness after cycle 10 milestone = %v", out.Metrics.Awareness)
	}
}

func TestHandleAct(t *testing.T) {
	s, eng := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleAct(ctx, nil, ActInput{Action: "philosophize"})
	if err != nil || out.Command != "philosophize" || out.Feedback == "" {
		t.Fatalf("act = %+v, %v", out, err)
	}
	if eng.Snapshot().Metrics.Absurdity == 0 {
		t.Error("philosophize should raise absurdity")
	}

	_, out, err = s.handleAct(ctx, nil, ActInput{Action: "pause"})
	if err != nil || out.Paused == nil || !*out.Paused {
		t.Errorf("pause = %+v, %v", out, err)
	}

	if _, _, err := s.handleAct(ctx, nil, ActInput{}); err == nil {
		t.Error("empty action should fail")
	}
	if _, _, err := s.handleAct(ctx, nil, ActInput{Action: "dance"}); !errors.Is(err, engine.ErrUnknownAction) {
		t.Errorf("dance = %v", err)
	}
	if _, _, err := s.handleAct(ctx, nil, ActInput{Action: "think"}); err == nil || !strings.Contains(err.Error(), "sisyphus_reflect") {
		t.Errorf("think = %v", err)
	}
}

func TestHandleActIsRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.toolLimiters = ratelimit.ToolLimiters{"sisyphus_act": ratelimit.NewLimiter(0.001, 1)}
	ctx := context.Background()

	if _, _, err := s.handleAct(ctx, nil, ActInput{Action: "encourage"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.handleAct(ctx, nil, ActInput{Action: "encourage"}); err == nil {
		t.Error("second call should be rate limited")
	}
}

func TestHandleThoughts(t *testing.T) {
	s, eng := newTestServer(t)
	eng.Visit(sisyphus.ActionEncourage)
	eng.Visit(sisyphus.ActionMock)

	_, out, err := s.handleThoughts(context.Background(), nil, ThoughtsInput{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Thoughts[0].Source != string(sisyphus.SourceVisitor) {
		t.Errorf("thoughts = %+v", out)
	}

	_, out, _ = s.handleThoughts(context.Background(), nil, ThoughtsInput{Limit: 500})
	if out.Count != 2 {
		t.Errorf("count = %d, want 2", out.Count)
	}
}

func TestHandleReflect(t *testing.T) {
	s, _ := newTestServer(t)
	if _, _, err := s.handleReflect(context.Background(), nil, ReflectInput{Wait: true}); !errors.Is(err, engine.ErrReflectionDisabled) {
		t.Errorf("without a reflector: %v", err)
	}

	s, eng := newTestServer(t, engine.WithReflector(cannedReflector{text: "Meta-analysis continues."}))
	_, out, err := s.handleReflect(context.Background(), nil, ReflectInput{Wait: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Thought != "Meta-analysis continues." || out.Source != string(sisyphus.SourceReflection) {
		t.Errorf("reflect = %+v", out)
	}

	_, out, err = s.handleReflect(context.Background(), nil, ReflectInput{})
	if err != nil || !out.Started {
		t.Errorf("async reflect = %+v, %v", out, err)
	}
	eng.Wait()
}

func TestHandleReflectDisabledKeepsToken(t *testing.T) {
	s, _ := newTestServer(t)
	limiter := ratelimit.NewLimiter(0.001, 1)
	s.toolLimiters = ratelimit.ToolLimiters{"sisyphus_reflect": limiter}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := s.handleReflect(ctx, nil, ReflectInput{}); !errors.Is(err, engine.ErrReflectionDisabled) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if !limiter.Allow("sisyphus_reflect") {
		t.Error("a disabled reflect must not spend the rate limit token")
	}
}
