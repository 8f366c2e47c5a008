// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmorane/atelier/internal/config"
	"github.com/jmorane/atelier/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be mounted with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router assembles the HTTP surface of the event router.
type Router struct {
	handler *Handler
	cfg     *config.Config
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
//
// Event and trigger endpoints keep the flat paths the upstream webhook
// integrations were built against; /health and /metrics stay unlimited so
// monitoring is never rate limited away.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Monitoring surface, no rate limit.
	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if !router.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(
				router.cfg.Security.RateLimitReqs,
				router.cfg.Security.RateLimitWindow,
			))
		}
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/status", router.handler.Status)
		r.Get("/scores", router.handler.Scores)

		r.Route("/events", func(r chi.Router) {
			r.Post("/like", router.handler.LikeEvent)
			r.Post("/daily_batch", router.handler.DailyBatch)
			r.Post("/manual_generate", router.handler.GeneratePrompts)
		})

		// Legacy flat paths kept for existing webhook integrations.
		r.Post("/like_event", router.handler.LikeEvent)
		r.Post("/daily_batch", router.handler.DailyBatch)
		r.Post("/generate_prompts", router.handler.GeneratePrompts)

		r.Post("/trigger_retrain", router.handler.TriggerRetrain)
		r.Post("/reset_counter", router.handler.ResetCounter)
	})

	return r
}
