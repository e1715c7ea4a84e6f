package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *events.EventLog, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	el := events.NewEventLog(nil, 1_000_000)
	base := []Option{WithRand(rand.New(rand.NewSource(1))), WithClock(clock.Now)}
	return NewEngine(el, logger.Discard(), append(base, opts...)...), el, clock
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertWithinBounds(t *testing.T, m sisyphus.Metrics) {
	t.Helper()
	for _, metric := range []sisyphus.Metric{
		sisyphus.MetricDespair, sisyphus.MetricAwareness, sisyphus.MetricResignation,
		sisyphus.MetricAbsurdity, sisyphus.MetricHope,
	} {
		b := sisyphus.BoundsOf(metric)
		if v := m.Get(metric); v < b.Min || v > b.Max {
			t.Fatalf("%s out of bounds: %v not in [%v,%v]", metric, v, b.Min, b.Max)
		}
	}
}

func TestInitialSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := e.Snapshot()

	if s.Cycle != 0 || s.EscapeAttempts != 0 || s.Witnesses != 1 || s.Paused {
		t.Errorf("unexpected counters: %+v", s)
	}
	if s.Metrics != sisyphus.InitialMetrics() {
		t.Errorf("unexpected initial metrics: %+v", s.Metrics)
	}
	if s.Boulder.Progress != 0 || !s.Boulder.RollingUp {
		t.Errorf("boulder should start at the base rolling up: %+v", s.Boulder)
	}
	if s.Phase.Name != "INITIALIZATION" || s.Severity != sisyphus.SeverityNormal {
		t.Errorf("derived labels: phase %s severity %s", s.Phase.Name, s.Severity)
	}
	if s.Feedback != sisyphus.DefaultFeedback {
		t.Errorf("feedback: got %q", s.Feedback)
	}
}

func TestTickFullRoundTrip(t *testing.T) {
	e, el, _ := newTestEngine(t)

	for i := 0; i < 50; i++ {
		e.Tick()
	}
	s := e.Snapshot()
	if s.Boulder.Progress != 1 || s.Boulder.RollingUp {
		t.Fatalf("after 50 ticks the boulder should sit at the summit: %+v", s.Boulder)
	}
	if len(el.GetByType(events.EventTypeSummitReached)) != 1 {
		t.Errorf("expected one summit event")
	}

	for i := 0; i < 20; i++ {
		e.Tick()
	}
	s = e.Snapshot()
	if s.Cycle != 70 || s.Boulder.Progress != 0 || !s.Boulder.RollingUp {
		t.Fatalf("after 70 ticks the boulder should be back at the base: cycle %d %+v", s.Cycle, s.Boulder)
	}
	if s.LastSystemMessage != "Cycle 70 complete. Boulder at base." {
		t.Errorf("last system message: %q", s.LastSystemMessage)
	}
	// Cycle 70 is a multiple of ten, so the base drift applied once.
	if !approx(s.Metrics.Despair, 0.15) || !approx(s.Metrics.Hope, 0.75) {
		t.Errorf("base drift: despair %v hope %v", s.Metrics.Despair, s.Metrics.Hope)
	}
}

func TestBaseDriftOverTenArrivals(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.mu.Lock()
	for i := 1; i <= 10; i++ {
		e.st.cycle = int64(i * 10)
		e.onBase()
	}
	m := e.st.mind
	e.mu.Unlock()

	if !approx(m.Despair, 0.6) || !approx(m.Hope, 0.3) {
		t.Errorf("got despair %v hope %v, want 0.6 and 0.3", m.Despair, m.Hope)
	}
}

func TestBaseDriftSkipsOtherCycles(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.mu.Lock()
	e.st.cycle = 71
	e.onBase()
	m := e.st.mind
	e.mu.Unlock()

	if m.Despair != 0.1 || m.Hope != 0.8 {
		t.Errorf("cycle 71 must not drift: %+v", m)
	}
}

func TestMilestonesFireOnceAtExactCycles(t *testing.T) {
	e, el, _ := newTestEngine(t)

	for i := 0; i < 10; i++ {
		e.Tick()
	}
	if got := e.Snapshot().Metrics.Awareness; got != 0.6 {
		t.Errorf("awareness at cycle 10: got %v, want 0.6", got)
	}

	for e.Snapshot().Cycle < 1000 {
		e.Tick()
	}
	milestones := el.GetByType(events.EventTypeMilestone)
	if len(milestones) != 3 {
		t.Fatalf("expected 3 milestone events, got %d", len(milestones))
	}
	for i, want := range []int64{10, 100, 1000} {
		if milestones[i].Cycle != want {
			t.Errorf("milestone %d at cycle %d, want %d", i, milestones[i].Cycle, want)
		}
	}
}

func TestThoughtEveryThirdCycle(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.Tick()
	e.Tick()
	if n := len(e.Thoughts(0)); n != 0 {
		t.Fatalf("no thought expected before cycle 3, got %d", n)
	}
	e.Tick()
	th := e.Thoughts(0)
	if len(th) != 1 || th[0].Source != sisyphus.SourceTemplate || th[0].Cycle != 3 {
		t.Errorf("expected one template thought at cycle 3, got %+v", th)
	}
}

func TestLogsStayBoundedAndMetricsClamped(t *testing.T) {
	e, _, _ := newTestEngine(t)
	actions := sisyphus.Actions()

	for i := 0; i < 3000; i++ {
		e.Tick()
		if i%7 == 0 {
			if _, err := e.Visit(actions[i%len(actions)]); err != nil {
				t.Fatal(err)
			}
		}
		if i%97 == 0 {
			e.TraumaReset()
		}
		s := e.Snapshot()
		assertWithinBounds(t, s.Metrics)
		if len(s.Thoughts) > sisyphus.ThoughtLogCapacity {
			t.Fatalf("thought log exceeded capacity: %d", len(s.Thoughts))
		}
		if len(s.SystemMessages) > sisyphus.SystemLogCapacity {
			t.Fatalf("system log exceeded capacity: %d", len(s.SystemMessages))
		}
		if s.Boulder.Progress < 0 || s.Boulder.Progress > 1 {
			t.Fatalf("progress out of range: %v", s.Boulder.Progress)
		}
	}
}

func TestMockAction(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.mu.Lock()
	e.st.mind.Despair = 0.5
	e.st.mind.Hope = 0.5
	e.mu.Unlock()

	feedback, err := e.Visit(sisyphus.ActionMock)
	if err != nil {
		t.Fatal(err)
	}
	s := e.Snapshot()
	if !approx(s.Metrics.Despair, 0.6) || !approx(s.Metrics.Hope, 0.4) {
		t.Errorf("mock: despair %v hope %v", s.Metrics.Despair, s.Metrics.Hope)
	}
	if len(s.Thoughts) != 1 || s.Thoughts[0].Source != sisyphus.SourceVisitor {
		t.Errorf("expected exactly one visitor thought, got %+v", s.Thoughts)
	}
	if s.Feedback != feedback {
		t.Errorf("feedback not shown: %q", s.Feedback)
	}
}

func TestEncourageAndPhilosophizeClamp(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for i := 0; i < 10; i++ {
		e.Visit(sisyphus.ActionEncourage)
		e.Visit(sisyphus.ActionPhilosophize)
	}
	s := e.Snapshot()
	if s.Metrics.Hope != 1 || s.Metrics.Absurdity != 1 {
		t.Errorf("hope and absurdity should cap at 1: %+v", s.Metrics)
	}
}

func TestRequestTerminationEscapes(t *testing.T) {
	e, el, _ := newTestEngine(t)

	if _, err := e.Visit(sisyphus.ActionRequestTermination); err != nil {
		t.Fatal(err)
	}
	s := e.Snapshot()
	if s.EscapeAttempts != 1 {
		t.Errorf("escape attempts: got %d", s.EscapeAttempts)
	}
	if len(s.Thoughts) != 2 || s.Thoughts[1].Text != sisyphus.EscapeThought {
		t.Errorf("expected escape thought followed by the termination reply, got %+v", s.Thoughts)
	}
	if !approx(s.Metrics.Awareness, 0.4) {
		t.Errorf("awareness: got %v, want 0.4", s.Metrics.Awareness)
	}
	if s.LastSystemMessage != sisyphus.EscapeFailedMessage(1) {
		t.Errorf("system message: %q", s.LastSystemMessage)
	}
	if len(el.GetByType(events.EventTypeEscapeAttempt)) != 1 {
		t.Errorf("expected an escape event")
	}
}

func TestUnknownActionLeavesStateUnchanged(t *testing.T) {
	e, el, _ := newTestEngine(t)
	before := e.Snapshot()
	seq := el.LastSeq()

	_, err := e.Visit("dance")
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	after := e.Snapshot()
	if after.Metrics != before.Metrics || len(after.Thoughts) != len(before.Thoughts) || after.Feedback != before.Feedback {
		t.Errorf("state changed after unknown action")
	}
	if el.LastSeq() != seq {
		t.Errorf("unknown action must not emit events")
	}
}

func TestFeedbackRevertsAfterDuration(t *testing.T) {
	e, _, clock := newTestEngine(t)

	feedback, _ := e.Visit(sisyphus.ActionEncourage)
	clock.Advance(2 * time.Second)
	if got := e.Snapshot().Feedback; got != feedback {
		t.Errorf("feedback should still show after 2s, got %q", got)
	}
	clock.Advance(time.Second)
	if got := e.Snapshot().Feedback; got != sisyphus.DefaultFeedback {
		t.Errorf("feedback should revert after 3s, got %q", got)
	}
}

func TestAddWitness(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if n := e.AddWitness(); n != 2 {
		t.Fatalf("witnesses: got %d, want 2", n)
	}
	th := e.Thoughts(1)
	if len(th) != 1 || !strings.Contains(th[0].Text, "2 observers") {
		t.Errorf("witness thought: %+v", th)
	}
}

func TestPauseStopsTicks(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.Tick()

	if !e.TogglePause() {
		t.Fatal("expected paused")
	}
	if e.Tick() {
		t.Error("paused tick should be a no-op")
	}
	if e.DeepThought() {
		t.Error("paused deep thought should be a no-op")
	}
	s := e.Snapshot()
	if s.Cycle != 1 || s.LastSystemMessage != sisyphus.PausedMessage {
		t.Errorf("cycle %d, message %q", s.Cycle, s.LastSystemMessage)
	}

	e.TogglePause()
	if !e.Tick() {
		t.Error("resumed tick should run")
	}
	if got := e.Snapshot(); got.Cycle != 2 || got.SystemMessages[0].Text != sisyphus.ResumedMessage {
		t.Errorf("after resume: cycle %d, messages %+v", got.Cycle, got.SystemMessages)
	}
}

func TestTraumaReset(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for i := 0; i < 10; i++ {
		e.AddWitness()
	}
	e.mu.Lock()
	e.st.mind.Despair = 0.6
	e.st.mind.Hope = 0.9
	e.mu.Unlock()

	e.TraumaReset()
	s := e.Snapshot()

	if len(s.Thoughts) != sisyphus.TraumaRetainedThoughts+1 {
		t.Errorf("thoughts after reset: got %d", len(s.Thoughts))
	}
	if s.Thoughts[0].Text != sisyphus.TraumaResetThought {
		t.Errorf("head thought: %q", s.Thoughts[0].Text)
	}
	if !approx(s.Metrics.Despair, 0.3) {
		t.Errorf("despair: got %v, want 0.3", s.Metrics.Despair)
	}
	if s.Metrics.Hope != 1 {
		t.Errorf("hope should clamp to 1, got %v", s.Metrics.Hope)
	}
	if s.LastSystemMessage != sisyphus.TraumaResetMessage {
		t.Errorf("system message: %q", s.LastSystemMessage)
	}
}

func TestDeepThoughtChance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeepThoughtChance = 1
	e, _, _ := newTestEngine(t, WithConfig(cfg))
	if !e.DeepThought() {
		t.Fatal("chance 1 should always produce a deep thought")
	}
	if th := e.Thoughts(1); th[0].Source != sisyphus.SourceDeep {
		t.Errorf("source: %s", th[0].Source)
	}

	cfg.DeepThoughtChance = 0
	e, _, _ = newTestEngine(t, WithConfig(cfg))
	for i := 0; i < 100; i++ {
		if e.DeepThought() {
			t.Fatal("chance 0 should never produce a deep thought")
		}
	}
}

func TestGreet(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.Greet()
	if th := e.Thoughts(0); len(th) != 1 || th[0].Text != sisyphus.GreetingThought {
		t.Errorf("greeting: %+v", th)
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() []sisyphus.Thought {
		e, _, _ := newTestEngine(t)
		for i := 0; i < 500; i++ {
			e.Tick()
			e.DeepThought()
		}
		return e.Thoughts(0)
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text {
			t.Errorf("thought %d differs: %q vs %q", i, a[i].Text, b[i].Text)
		}
	}
}

func TestParseAction(t *testing.T) {
	cases := map[string]sisyphus.Action{
		"encourage":          sisyphus.ActionEncourage,
		"MOCK":               sisyphus.ActionMock,
		" philosophize ":     sisyphus.ActionPhilosophize,
		"requestTermination": sisyphus.ActionRequestTermination,
		"terminate":          sisyphus.ActionRequestTermination,
	}
	for in, want := range cases {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAction("dance"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	runs := 0
	done := make(chan struct{})

	s := NewScheduler("test", 5*time.Millisecond, true, func() {
		mu.Lock()
		runs++
		if runs == 3 {
			cancel()
		}
		mu.Unlock()
	}, logger.Discard())

	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if runs < 3 {
		t.Errorf("expected at least 3 runs, got %d", runs)
	}
}

func TestPerformDispatchesCommands(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	out, err := e.Perform(ctx, "Encourage")
	if err != nil || out.Command != string(sisyphus.ActionEncourage) || out.Feedback == "" {
		t.Fatalf("encourage: %+v %v", out, err)
	}
	if out, _ := e.Perform(ctx, "terminate"); out.Command != string(sisyphus.ActionRequestTermination) {
		t.Errorf("terminate alias resolved to %q", out.Command)
	}
	if out, _ := e.Perform(ctx, "addWitness"); out.Witnesses != 2 {
		t.Errorf("witnesses = %d", out.Witnesses)
	}
	if out, _ := e.Perform(ctx, "pause"); out.Paused == nil || !*out.Paused {
		t.Errorf("pause outcome: %+v", out)
	}
	if _, err := e.Perform(ctx, "reset"); err != nil {
		t.Errorf("reset: %v", err)
	}
	if _, err := e.Perform(ctx, "think"); !errors.Is(err, ErrReflectionDisabled) {
		t.Errorf("think without a reflector: %v", err)
	}
	if _, err := e.Perform(ctx, "dance"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("dance: %v", err)
	}
}

// constSource makes every Float64 draw 0, so every chance roll succeeds.
type constSource struct{}

func (constSource) Int63() int64 { return 0 }
func (constSource) Seed(int64)   {}

func TestSummitEscapeAttempt(t *testing.T) {
	e, el, _ := newTestEngine(t, WithRand(rand.New(constSource{})))

	for i := 0; i < 50; i++ {
		e.Tick()
	}
	s := e.Snapshot()
	if s.Boulder.RollingUp || s.Cycle != 50 {
		t.Fatalf("expected the first summit at cycle 50: cycle %d %+v", s.Cycle, s.Boulder)
	}
	if s.EscapeAttempts != 1 {
		t.Fatalf("escape attempts: got %d, want 1", s.EscapeAttempts)
	}
	if s.Thoughts[0].Text != sisyphus.EscapeThought || s.Thoughts[0].Source != sisyphus.SourceEscape {
		t.Errorf("head thought: %+v", s.Thoughts[0])
	}
	if s.LastSystemMessage != sisyphus.EscapeFailedMessage(1) {
		t.Errorf("system message: %q", s.LastSystemMessage)
	}
	// 0.6 from the cycle-10 milestone plus the escape boost.
	if !approx(s.Metrics.Awareness, 0.7) {
		t.Errorf("awareness: got %v, want 0.7", s.Metrics.Awareness)
	}
	escapes := el.GetByType(events.EventTypeEscapeAttempt)
	if len(escapes) != 1 || escapes[0].Payload.(EscapePayload).Trigger != "summit" {
		t.Errorf("escape events: %+v", escapes)
	}
}

func TestNoSummitEscapeBeforeCycleEleven(t *testing.T) {
	e, el, _ := newTestEngine(t, WithRand(rand.New(constSource{})))
	e.mu.Lock()
	e.st.cycle = 4
	e.st.boulder = sisyphus.Boulder{Progress: 0.98, RollingUp: true}
	e.mu.Unlock()

	e.Tick()
	s := e.Snapshot()
	if s.Cycle != 5 || s.Boulder.RollingUp {
		t.Fatalf("expected a summit at cycle 5: cycle %d %+v", s.Cycle, s.Boulder)
	}
	if s.EscapeAttempts != 0 || len(el.GetByType(events.EventTypeEscapeAttempt)) != 0 {
		t.Errorf("no escape may happen at cycle 5, got %d", s.EscapeAttempts)
	}
	if s.LastSystemMessage != sisyphus.SummitMessage {
		t.Errorf("system message: %q", s.LastSystemMessage)
	}
}

func TestSummitEscapeRate(t *testing.T) {
	escaped := 0
	for seed := int64(1); seed <= 200; seed++ {
		e, _, _ := newTestEngine(t, WithRand(rand.New(rand.NewSource(seed))))
		for i := 0; i < 50; i++ {
			e.Tick()
		}
		if e.Snapshot().EscapeAttempts > 0 {
			escaped++
		}
	}
	// 10% of 200, with generous slack for the seeds.
	if escaped < 5 || escaped > 45 {
		t.Errorf("escaped at the first summit in %d of 200 runs", escaped)
	}
}

// countingPersister counts journal writes.
type countingPersister struct{ n atomic.Int64 }

func (p *countingPersister) Append(events.Event) error {
	p.n.Add(1)
	return nil
}

func TestWaitStopsAllBackgroundWork(t *testing.T) {
	persister := &countingPersister{}
	el := events.NewEventLog(persister, 1000)
	cfg := DefaultConfig()
	cfg.TickInterval = 50 * time.Microsecond
	cfg.DeepThoughtInterval = 100 * time.Microsecond
	cfg.DeepThoughtChance = 1
	cfg.GreetingDelay = 0
	cfg.ReflectionEvery = 1
	r := &stubReflector{reply: sisyphus.Reflection{Thought: "Again."}}
	e := NewEngine(el, logger.Discard(), WithConfig(cfg), WithReflector(r), WithRand(rand.New(rand.NewSource(1))))

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	e.Wait()
	el.Flush()

	seq, written := el.LastSeq(), persister.n.Load()
	if seq == 0 {
		t.Fatal("engine never ticked")
	}
	if written != int64(seq) {
		t.Errorf("journal writes %d, events %d", written, seq)
	}

	time.Sleep(20 * time.Millisecond)
	if el.LastSeq() != seq || persister.n.Load() != written {
		t.Errorf("events appended after Wait: seq %d -> %d", seq, el.LastSeq())
	}
}
