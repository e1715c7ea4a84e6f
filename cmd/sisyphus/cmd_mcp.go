package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the simulation to an MCP client over stdio",
		Long: `Run the simulation and expose it as MCP tools over stdin/stdout.

Tools: sisyphus_state, sisyphus_act, sisyphus_thoughts, sisyphus_reflect.
Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.engine.Start(ctx)
			server := mcp.NewServer(a.engine, &mcp.Config{Name: "sisyphus", Version: version}, a.logger)
			return server.Run(ctx)
		},
	}
}
