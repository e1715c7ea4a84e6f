package console

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

func newTestConsole(t *testing.T, width int) (*Console, *engine.Engine) {
	t.Helper()
	el := events.NewEventLog(nil, events.DefaultRetention)
	eng := engine.NewEngine(el, logger.Discard(), engine.WithRand(rand.New(rand.NewSource(1))))
	c := New(eng, logger.Discard())
	c.width = func() int { return width }
	return c, eng
}

func TestExecuteCommands(t *testing.T) {
	c, eng := newTestConsole(t, 80)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"witness", "Witnesses: 2"},
		{"  PAUSE ", "Paused."},
		{"pause", "Resumed."},
		{"reset", "Done."},
	}
	for _, tt := range tests {
		got, err := c.Execute(ctx, tt.line)
		if err != nil || got != tt.want {
			t.Errorf("Execute(%q) = %q, %v; want %q", tt.line, got, err, tt.want)
		}
	}

	got, err := c.Execute(ctx, "mock")
	if err != nil || got == "" {
		t.Errorf("mock feedback = %q, %v", got, err)
	}
	if eng.Snapshot().Metrics.Despair <= 0.1 {
		t.Error("mock should raise despair")
	}
}

func TestExecuteInformational(t *testing.T) {
	c, _ := newTestConsole(t, 80)
	ctx := context.Background()

	if out, _ := c.Execute(ctx, "help"); !strings.Contains(out, "terminate") {
		t.Errorf("help = %q", out)
	}
	if out, _ := c.Execute(ctx, "state"); !strings.Contains(out, "Cycle 0") || !strings.Contains(out, "INITIALIZATION") {
		t.Errorf("state = %q", out)
	}
	if out, _ := c.Execute(ctx, "thoughts"); out != "No thoughts yet." {
		t.Errorf("thoughts = %q", out)
	}
	if out, _ := c.Execute(ctx, ""); out != "" {
		t.Errorf("empty line = %q", out)
	}
}

func TestExecuteErrors(t *testing.T) {
	c, _ := newTestConsole(t, 80)
	ctx := context.Background()

	if _, err := c.Execute(ctx, "quit"); !errors.Is(err, ErrQuit) {
		t.Errorf("quit = %v", err)
	}
	if _, err := c.Execute(ctx, "dance"); !errors.Is(err, engine.ErrUnknownAction) {
		t.Errorf("dance = %v", err)
	}
	if _, err := c.Execute(ctx, "think"); !errors.Is(err, engine.ErrReflectionDisabled) {
		t.Errorf("think = %v", err)
	}
}

func TestThoughtsFitTerminalWidth(t *testing.T) {
	c, eng := newTestConsole(t, 24)
	eng.Visit("philosophize")

	out, _ := c.Execute(context.Background(), "thoughts")
	for _, line := range strings.Split(out, "\n") {
		if w := runewidth.StringWidth(line); w > 24 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
}

func TestDescribe(t *testing.T) {
	c, _ := newTestConsole(t, 80)
	at := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)

	line, ok := c.describe(events.Event{Timestamp: at, Payload: engine.ThoughtPayload{Text: "Again."}})
	if !ok || line != "09:30:00 Again." {
		t.Errorf("thought line = %q", line)
	}
	line, ok = c.describe(events.Event{Timestamp: at, Payload: engine.SystemMessagePayload{Text: "Reset."}})
	if !ok || line != "09:30:00 ** Reset." {
		t.Errorf("system line = %q", line)
	}
	if _, ok := c.describe(events.Event{Payload: engine.TickPayload{}}); ok {
		t.Error("ticks should not be shown")
	}
}
