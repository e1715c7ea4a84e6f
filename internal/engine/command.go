// Package engine - command.go
// Named commands shared by the WebSocket, console and MCP surfaces.
package engine

import (
	"context"
	"fmt"
	"strings"
)

// Command is a visitor-facing operation addressed by name.
type Command string

const (
	CommandWitness Command = "witness"
	CommandPause   Command = "pause"
	CommandReset   Command = "reset"
	CommandReflect Command = "reflect"
)

var commandAliases = map[string]Command{
	"witness":      CommandWitness,
	"addwitness":   CommandWitness,
	"pause":        CommandPause,
	"togglepause":  CommandPause,
	"reset":        CommandReset,
	"traumareset":  CommandReset,
	"trauma-reset": CommandReset,
	"reflect":      CommandReflect,
	"think":        CommandReflect,
}

// Outcome reports what a command did.
type Outcome struct {
	Command   string `json:"command"`
	Feedback  string `json:"feedback,omitempty"`
	Witnesses int    `json:"witnesses,omitempty"`
	Paused    *bool  `json:"paused,omitempty"`
	// Reflecting is set when a reflection was started in the background.
	Reflecting bool `json:"reflecting,omitempty"`
}

// ParseCommand resolves one of the named non-action commands.
func ParseCommand(name string) (Command, error) {
	if cmd, ok := commandAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return cmd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Perform runs a visitor action or one of the named commands.
// Unknown names return ErrUnknownAction and change nothing.
func (e *Engine) Perform(ctx context.Context, name string) (Outcome, error) {
	if cmd, err := ParseCommand(name); err == nil {
		out := Outcome{Command: string(cmd)}
		switch cmd {
		case CommandWitness:
			out.Witnesses = e.AddWitness()
		case CommandPause:
			paused := e.TogglePause()
			out.Paused = &paused
		case CommandReset:
			e.TraumaReset()
		case CommandReflect:
			if err := e.RequestReflection(ctx); err != nil {
				return Outcome{}, err
			}
			out.Reflecting = true
		}
		return out, nil
	}

	action, err := ParseAction(name)
	if err != nil {
		return Outcome{}, err
	}
	feedback, err := e.Visit(action)
	if err != nil {
		return Outcome{}, fmt.Errorf("visit %s: %w", action, err)
	}
	return Outcome{Command: string(action), Feedback: feedback}, nil
}
