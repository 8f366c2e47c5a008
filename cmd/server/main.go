// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package main is the entry point for the Atelier server.
//
// Atelier coordinates the feedback loop between an ML optimizer, an idea
// strategist, a prompt generator and a persistence catalog. It counts
// inbound like events, runs the five-stage learning cycle when the
// threshold is reached, and drives the daily batch and manual generation
// workflows over HTTP.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered defaults -> config.yaml -> environment
//  2. Logging: zerolog, level/format from config
//  3. Clients: one typed client per collaborator, each with retry and a
//     circuit breaker (the catalog client only when CATALOG_URL is set)
//  4. Coordinator: in-memory state aggregate plus the workflow coordinator
//  5. HTTP server: Chi router under a suture supervision tree
//
// # Configuration
//
// Required: OPTIMIZER_URL, STRATEGIST_URL, GENERATOR_URL. Optional:
// CATALOG_URL and CATALOG_API_KEY (catalog writes are skipped without
// them), LIKE_THRESHOLD, EXPLORATION_RATE, DEFAULT_NUM_PROMPTS,
// DEFAULT_RENDERER, SCORE_MAX_AGE, per-operation timeouts, rate limiting
// and CORS settings. See config.Load for the full key list.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the server stops
// accepting connections and in-flight requests get the configured
// shutdown window. A learning cycle in flight at shutdown is abandoned;
// the commit semantics make that safe (an uncommitted cycle leaves the
// counter above threshold, so the next trigger re-runs it).
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

	"github.com/jmorane/atelier/internal/api"
	"github.com/jmorane/atelier/internal/clients"
	"github.com/jmorane/atelier/internal/config"
	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/orchestrator"
	"github.com/jmorane/atelier/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger: config (and its logging section) is unavailable.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("optimizer_url", cfg.Optimizer.URL).
		Str("strategist_url", cfg.Strategist.URL).
		Str("generator_url", cfg.Generator.URL).
		Bool("catalog_enabled", cfg.CatalogEnabled()).
		Int("like_threshold", cfg.Workflow.LikeThreshold).
		Msg("Configuration loaded")

	coordinator := buildCoordinator(cfg)

	handler := api.NewHandler(coordinator, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting Atelier")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Shutdown complete")
}

// buildCoordinator wires the collaborator clients and the workflow
// coordinator from configuration.
func buildCoordinator(cfg *config.Config) *orchestrator.Coordinator {
	retry := clients.RetryPolicy{
		MaxAttempts: cfg.Client.RetryAttempts,
		BaseDelay:   cfg.Client.RetryDelay,
	}

	optimizer := clients.NewOptimizerClient(cfg.Optimizer.URL, clients.OptimizerTimeouts{
		Train:    cfg.Timeouts.Train,
		Score:    cfg.Timeouts.Score,
		Insights: cfg.Timeouts.Insights,
	}, retry)

	strategist := clients.NewStrategistClient(cfg.Strategist.URL, cfg.Timeouts.Ideas, retry)

	generator := clients.NewGeneratorClient(cfg.Generator.URL, clients.GeneratorTimeouts{
		Update:   cfg.Timeouts.Update,
		Generate: cfg.Timeouts.Generate,
	}, retry)

	// A nil catalog disables score persistence and prompt writes; the
	// pipeline's persist stage becomes a logged no-op.
	var catalog orchestrator.Catalog
	if cfg.CatalogEnabled() {
		catalog = clients.NewCatalogClient(cfg.Catalog.URL, cfg.Catalog.APIKey, cfg.Timeouts.Catalog, retry)
	} else {
		logging.Warn().Msg("Catalog not configured - scores and prompts will not be persisted")
	}

	return orchestrator.NewCoordinator(
		orchestrator.NewState(),
		optimizer,
		strategist,
		generator,
		catalog,
		orchestrator.WorkflowConfig{
			LikeThreshold:     cfg.Workflow.LikeThreshold,
			ExplorationRate:   cfg.Workflow.ExplorationRate,
			DefaultBatchIdeas: cfg.Workflow.DefaultBatchIdeas,
			DefaultNumPrompts: cfg.Workflow.DefaultNumPrompts,
			DefaultRenderer:   cfg.Workflow.DefaultRenderer,
			ScoreMaxAge:       cfg.Workflow.ScoreMaxAge,
		},
	)
}
