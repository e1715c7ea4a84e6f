package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/config"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/render"
)

// addStepFlags registers the flags shared by the headless commands.
func addStepFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("ticks", 100, "Number of cycles to step")
	cmd.Flags().Int64("seed", 0, "Random seed (0 keeps simulation.seed)")
}

// stepApp builds an app without timers or reflection and steps it.
func stepApp(cmd *cobra.Command) (*app, error) {
	ticks, _ := cmd.Flags().GetInt64("ticks")
	seed, _ := cmd.Flags().GetInt64("seed")
	if ticks < 0 {
		return nil, fmt.Errorf("--ticks must be non-negative, got %d", ticks)
	}

	a, err := newApp(cmd, io.Discard, func(c *config.Config) {
		if seed != 0 {
			c.Simulation.Seed = seed
		}
		// A headless run never waits on the network.
		c.ThoughtService.URL = ""
	})
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < ticks; i++ {
		a.engine.Tick()
	}
	return a, nil
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Step the engine without timers and print the final state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := stepApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.engine.Snapshot()
			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(out, snap)
			return nil
		},
	}
	addStepFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the snapshot as JSON")
	return cmd
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Step the engine and write one frame as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := stepApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, _ := cmd.Flags().GetString("output")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			defer f.Close()

			img := render.Frame(a.engine.Snapshot(), newRand(a.cfg.Simulation.Seed))
			if err := render.EncodePNG(f, img); err != nil {
				return fmt.Errorf("failed to encode frame: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	addStepFlags(cmd)
	cmd.Flags().StringP("output", "o", "frame.png", "Output file")
	return cmd
}

func printSnapshot(w io.Writer, s engine.Snapshot) {
	fmt.Fprintf(w, "Cycle:           %d (%s)\n", s.Cycle, s.Phase.Name)
	fmt.Fprintf(w, "Boulder:         %.0f%% %s\n", s.Boulder.Progress*100, s.Direction)
	fmt.Fprintf(w, "Escape attempts: %d\n", s.EscapeAttempts)
	fmt.Fprintf(w, "Despair:         %d%% (%s)\n", s.Metrics.Percent(sisyphus.MetricDespair), s.Severity)
	fmt.Fprintf(w, "Awareness:       %d%%\n", s.Metrics.Percent(sisyphus.MetricAwareness))
	fmt.Fprintf(w, "Resignation:     %d%%\n", s.Metrics.Percent(sisyphus.MetricResignation))
	fmt.Fprintf(w, "Absurdity:       %d%%\n", s.Metrics.Percent(sisyphus.MetricAbsurdity))
	fmt.Fprintf(w, "Hope:            %d%%\n", s.Metrics.Percent(sisyphus.MetricHope))
	if len(s.Thoughts) > 0 {
		t := s.Thoughts[0]
		fmt.Fprintf(w, "Last thought:    (%s) %s\n", t.Source, t.Text)
	}
}
