// Package main is the entry point of the Eternal Sisyphus server.
// It only handles dependency injection and command wiring.
// NO simulation logic belongs here.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sisyphus",
		Short: "Eternal Sisyphus - an AI rolling a boulder forever",
		Long: `sisyphus runs the boulder simulation and lets visitors watch it.

The same engine can be served over HTTP and WebSocket, driven from a
terminal, exposed to MCP clients over stdio, or stepped headlessly.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config (default: ./sisyphus.yaml if present)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newConsoleCmd(),
		newMCPCmd(),
		newSimulateCmd(),
		newRenderCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "sisyphus version %s\n", version)
			}
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
