package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

const defaultThoughtLimit = 10

func (s *Server) handleState(ctx context.Context, req *sdk.CallToolRequest, args StateInput) (*sdk.CallToolResult, StateOutput, error) {
	snap := s.engine.Snapshot()
	return nil, StateOutput{
		Cycle:             snap.Cycle,
		Phase:             snap.Phase.Name,
		Direction:         snap.Direction,
		Progress:          snap.Boulder.Progress,
		Metrics:           snap.Metrics,
		Severity:          string(snap.Severity),
		Witnesses:         snap.Witnesses,
		EscapeAttempts:    snap.EscapeAttempts,
		Paused:            snap.Paused,
		Feedback:          snap.Feedback,
		LastSystemMessage: snap.LastSystemMessage,
	}, nil
}

func (s *Server) handleAct(ctx context.Context, req *sdk.CallToolRequest, args ActInput) (*sdk.CallToolResult, ActOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "sisyphus_act"); err != nil {
		return nil, ActOutput{}, err
	}
	if args.Action == "" {
		return nil, ActOutput{}, fmt.Errorf("'action' parameter is required")
	}
	// Reflection has its own tool.
	if cmd, err := engine.ParseCommand(args.Action); err == nil && cmd == engine.CommandReflect {
		return nil, ActOutput{}, fmt.Errorf("use sisyphus_reflect to request a reflection")
	}

	out, err := s.engine.Perform(ctx, args.Action)
	if err != nil {
		return nil, ActOutput{}, err
	}
	s.logger.Event("MCP_ACTION", "MCP", out.Command)
	return nil, ActOutput{
		Command:   out.Command,
		Feedback:  out.Feedback,
		Witnesses: out.Witnesses,
		Paused:    out.Paused,
		Cycle:     s.engine.Snapshot().Cycle,
	}, nil
}

func (s *Server) handleThoughts(ctx context.Context, req *sdk.CallToolRequest, args ThoughtsInput) (*sdk.CallToolResult, ThoughtsOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultThoughtLimit
	}
	limit = min(limit, sisyphus.ThoughtLogCapacity)

	thoughts := s.engine.Thoughts(limit)
	items := make([]ThoughtItem, 0, len(thoughts))
	for _, t := range thoughts {
		items = append(items, ThoughtItem{
			Time:   t.Clock(),
			Cycle:  t.Cycle,
			Source: string(t.Source),
			Text:   t.Text,
		})
	}
	return nil, ThoughtsOutput{Thoughts: items, Count: len(items)}, nil
}

func (s *Server) handleReflect(ctx context.Context, req *sdk.CallToolRequest, args ReflectInput) (*sdk.CallToolResult, ReflectOutput, error) {
	// Without a thought service the call would fail anyway; keep the token.
	if !s.engine.CanReflect() {
		return nil, ReflectOutput{}, engine.ErrReflectionDisabled
	}
	if err := ratelimit.CheckLimit(s.toolLimiters, "sisyphus_reflect"); err != nil {
		return nil, ReflectOutput{}, err
	}

	if !args.Wait {
		// The tool call returns before the reflection does.
		if err := s.engine.RequestReflection(context.WithoutCancel(ctx)); err != nil {
			return nil, ReflectOutput{}, err
		}
		return nil, ReflectOutput{Started: true}, nil
	}

	thought, err := s.engine.ReflectNow(ctx)
	if err != nil {
		return nil, ReflectOutput{}, err
	}
	return nil, ReflectOutput{Started: true, Thought: thought.Text, Source: string(thought.Source)}, nil
}
