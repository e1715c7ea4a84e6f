package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/ai"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/infra/storage"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/network"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

const (
	shutdownTimeout = 5 * time.Second
	limiterIdle     = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation behind the HTTP, WebSocket and thought service endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	log := a.logger

	log.Info("Bootstrapping thought service (" + cfg.LLM.String() + ")...")
	budgetGate := ai.NewBudgetGate(cfg.LLM.DailyBudgetUSD, cfg.LLM.MonthlyBudgetUSD)
	provider, err := ai.NewProvider(cfg.LLM.Provider, ai.ProviderConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, budgetGate)
	if err != nil {
		return err
	}
	if !provider.IsAvailable() {
		log.Warn("No LLM API key configured; /api/think will answer with fallback thoughts")
	}

	limiter := ratelimit.NewLimiter(cfg.Server.ActionsPerSecond, cfg.Server.ActionBurst)

	log.Info("Bootstrapping WebSocket hub...")
	hub := network.NewHub(a.engine, limiter, network.HubOptions{
		BroadcastBuffer:  cfg.Tuning.BroadcastBuffer,
		ClientSendBuffer: cfg.Tuning.ClientSendBuffer,
		PollInterval:     cfg.Tuning.PollInterval,
	}, log)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx)

	mux := http.NewServeMux()
	hub.RegisterRoutes(mux)
	network.NewVisitorBridge(a.engine, limiter, log).RegisterRoutes(mux)
	network.NewHistoryHandler(storage.NewReconstructor(a.repo), log).RegisterRoutes(mux)
	thinker := network.NewThoughtService(provider, cfg.IsDevelopment(), log)
	mux.Handle("/api/think", thinker)
	mux.HandleFunc("/api/think/usage", thinker.HandleUsage)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	a.engine.Start(ctx)
	go pruneLimiter(ctx, limiter)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("HTTP API & WS server listening on %s", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(fmt.Sprintf("Shutting down with %d viewers connected...", hub.ClientCount()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info(fmt.Sprintf("Budget at exit: %s", budgetGate.GetStatus()))
	return nil
}

// pruneLimiter forgets visitors that have been quiet for a while.
func pruneLimiter(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(limiterIdle)
		}
	}
}
