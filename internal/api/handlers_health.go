// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"net/http"

	"github.com/jmorane/atelier/internal/orchestrator"
)

// healthResponse is the GET /health body.
type healthResponse struct {
	Status                string `json:"status"`
	LikesSinceLastRetrain int    `json:"likes_since_last_retrain"`
	Threshold             int    `json:"threshold"`
	IsRetraining          bool   `json:"is_retraining"`
	TotalBatches          int    `json:"total_batches"`
	TotalGenerations      int    `json:"total_generations"`
}

// statusResponse is the GET /status body: service identity plus the full
// state snapshot.
type statusResponse struct {
	Service         string  `json:"service"`
	Version         string  `json:"version"`
	Threshold       int     `json:"threshold"`
	ExplorationRate float64 `json:"exploration_rate"`
	orchestrator.Status
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.coordinator.State().Snapshot()

	respondJSON(w, http.StatusOK, healthResponse{
		Status:                "healthy",
		LikesSinceLastRetrain: snap.LikesSinceLastRetrain,
		Threshold:             h.coordinator.Threshold(),
		IsRetraining:          snap.IsRetraining,
		TotalBatches:          snap.TotalBatches,
		TotalGenerations:      snap.TotalGenerations,
	})
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Service:         "atelier",
		Version:         Version,
		Threshold:       h.coordinator.Threshold(),
		ExplorationRate: h.cfg.Workflow.ExplorationRate,
		Status:          h.coordinator.State().Snapshot(),
	})
}

// Scores handles GET /scores: the cache-aware score read-model. A stale
// cache triggers an in-line refresh; refresh failure degrades to the stale
// copy rather than erroring.
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	view := h.coordinator.Scores(r.Context(), h.cfg.Workflow.ScoreMaxAge)
	respondJSON(w, http.StatusOK, view)
}
