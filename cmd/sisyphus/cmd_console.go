package main

import (
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/console"
)

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Watch the simulation and intervene from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines would tear through the prompt.
			var logOut io.Writer = io.Discard
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				logOut = os.Stderr
			}
			a, err := newApp(cmd, logOut)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a.engine.Start(ctx)
			return console.New(a.engine, a.logger).Run(ctx)
		},
	}
	cmd.Flags().Bool("verbose", false, "Write server logs to stderr")
	return cmd
}
