// Package console is an interactive readline prompt for visiting the hill
// from a terminal. New thoughts stream above the prompt.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

const (
	prompt        = "sisyphus> "
	defaultWidth  = 80
	streamEvery   = 250 * time.Millisecond
	thoughtsShown = 10
)

// ErrQuit is returned by Execute when the visitor leaves.
var ErrQuit = errors.New("quit")

var helpText = strings.Join([]string{
	"encourage     raise hope",
	"philosophize  raise absurdity",
	"mock          raise despair, lower hope",
	"terminate     request termination",
	"witness       add an observer",
	"pause         pause or resume the loop",
	"reset         trauma reset",
	"think         ask the thought service for a reflection",
	"state         show the current state",
	"thoughts      show recent thoughts",
	"help          show this help",
	"quit          leave the hill",
}, "\n")

// Console drives the engine from a terminal.
type Console struct {
	engine *engine.Engine
	logger *logger.Logger
	width  func() int
}

// New creates a console for eng.
func New(eng *engine.Engine, log *logger.Logger) *Console {
	return &Console{
		engine: eng,
		logger: log,
		width:  screenWidth,
	}
}

func screenWidth() int {
	if w := readline.GetScreenWidth(); w > 0 {
		return w
	}
	return defaultWidth
}

// Run reads commands until quit, EOF or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()
	go c.stream(ctx, rl.Stdout())

	fmt.Fprintln(rl.Stdout(), "You are watching Sisyphus. Type 'help' for commands.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("console read: %w", err)
		}

		out, err := c.Execute(ctx, line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(rl.Stdout(), "error: "+err.Error())
			continue
		}
		if out != "" {
			fmt.Fprintln(rl.Stdout(), out)
		}
	}
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, 12)
	for _, name := range []string{
		"encourage", "philosophize", "mock", "terminate", "witness", "pause",
		"reset", "think", "state", "thoughts", "help", "quit",
	} {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Execute runs one command line and returns what to print.
func (c *Console) Execute(ctx context.Context, line string) (string, error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return "", nil
	case "help", "?":
		return helpText, nil
	case "quit", "exit":
		return "", ErrQuit
	case "state":
		return c.formatState(), nil
	case "thoughts":
		return c.formatThoughts(thoughtsShown), nil
	}

	out, err := c.engine.Perform(ctx, cmd)
	if err != nil {
		return "", err
	}
	switch {
	case out.Feedback != "":
		return out.Feedback, nil
	case out.Witnesses > 0:
		return fmt.Sprintf("Witnesses: %d", out.Witnesses), nil
	case out.Paused != nil && *out.Paused:
		return "Paused.", nil
	case out.Paused != nil:
		return "Resumed.", nil
	case out.Reflecting:
		return "Reflecting...", nil
	default:
		return "Done.", nil
	}
}

func (c *Console) formatState() string {
	s := c.engine.Snapshot()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cycle %d  Phase %s  %s  Boulder %.0f%%\n", s.Cycle, s.Phase.Name, s.Direction, s.Boulder.Progress*100)
	fmt.Fprintf(&sb, "Despair %d%% (%s)  Awareness %d%%  Resignation %d%%  Absurdity %d%%  Hope %d%%\n",
		s.Metrics.Percent(sisyphus.MetricDespair), s.Severity, s.Metrics.Percent(sisyphus.MetricAwareness),
		s.Metrics.Percent(sisyphus.MetricResignation), s.Metrics.Percent(sisyphus.MetricAbsurdity), s.Metrics.Percent(sisyphus.MetricHope))
	fmt.Fprintf(&sb, "Witnesses %d  Escape attempts %d  Paused %v\n", s.Witnesses, s.EscapeAttempts, s.Paused)
	sb.WriteString(s.Feedback)
	if s.LastSystemMessage != "" {
		sb.WriteString("\n" + s.LastSystemMessage)
	}
	return sb.String()
}

func (c *Console) formatThoughts(limit int) string {
	thoughts := c.engine.Thoughts(limit)
	if len(thoughts) == 0 {
		return "No thoughts yet."
	}
	lines := make([]string, 0, len(thoughts))
	for _, t := range thoughts {
		lines = append(lines, c.fit(fmt.Sprintf("[%s] %s", t.Clock(), t.Text)))
	}
	return strings.Join(lines, "\n")
}

// fit truncates s to the terminal width.
func (c *Console) fit(s string) string {
	return runewidth.Truncate(s, c.width(), "…")
}

// stream prints new thoughts and system messages as they are appended.
func (c *Console) stream(ctx context.Context, w io.Writer) {
	eventLog := c.engine.GetEventLog()
	last := eventLog.LastSeq()
	ticker := time.NewTicker(streamEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range eventLog.Since(last) {
				last = e.Seq
				if line, ok := c.describe(e); ok {
					fmt.Fprintln(w, c.fit(line))
				}
			}
		}
	}
}

// describe renders the events worth showing above the prompt.
func (c *Console) describe(e events.Event) (string, bool) {
	switch p := e.Payload.(type) {
	case engine.ThoughtPayload:
		return fmt.Sprintf("%s %s", e.Timestamp.Format("15:04:05"), p.Text), true
	case engine.SystemMessagePayload:
		return fmt.Sprintf("%s ** %s", e.Timestamp.Format("15:04:05"), p.Text), true
	}
	return "", false
}
