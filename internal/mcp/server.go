// Package mcp exposes the hill to MCP clients: the same visitor surface as
// the REST API, served over stdio.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

// Server wraps the MCP SDK server around a running engine.
type Server struct {
	server       *sdk.Server
	engine       *engine.Engine
	toolLimiters ratelimit.ToolLimiters
	logger       *logger.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "sisyphus")
	Version string // Server version
}

// NewServer creates a new MCP server with the sisyphus tools.
func NewServer(eng *engine.Engine, cfg *Config, log *logger.Logger) *Server {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			log.Info("MCP client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		engine:       eng,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       log,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sisyphus_state",
		Description: "Get the current state of the simulation: cycle, phase, metrics, boulder and recent messages",
	}, s.handleState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sisyphus_act",
		Description: "Intervene as a visitor: encourage, philosophize, mock, requestTermination, witness, pause or reset",
	}, s.handleAct)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sisyphus_thoughts",
		Description: "List the most recent thoughts of Sisyphus, newest first",
	}, s.handleThoughts)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sisyphus_reflect",
		Description: "Ask the thought service for a reflection and apply the metric drift it suggests",
	}, s.handleReflect)
}
