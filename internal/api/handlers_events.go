// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"net/http"

	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/orchestrator"
)

// retrainInProgress is the error reported when a batch or generation
// request arrives while the learning cycle holds the pipeline.
const retrainInProgress = "retrain_in_progress"

// LikeEvent handles POST /like_event. The like is counted atomically; when
// the threshold is reached the learning cycle runs before the response is
// written, so the reported counter reflects the commit.
func (h *Handler) LikeEvent(w http.ResponseWriter, r *http.Request) {
	var req likeEventRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result := h.coordinator.RecordLike(r.Context(), orchestrator.LikeEvent{
		RecordID:    req.RecordID,
		StructureID: req.StructureID,
		ImageURL:    req.ImageURL,
	})

	respondJSON(w, http.StatusOK, result)
}

// DailyBatch handles POST /daily_batch. The batch runs synchronously; partial
// failures are reported in the body with success=false, never as a 5xx.
func (h *Handler) DailyBatch(w http.ResponseWriter, r *http.Request) {
	req := dailyBatchRequest{}
	if r.ContentLength != 0 {
		if !decodeRequest(w, r, &req) {
			return
		}
	}

	if h.coordinator.State().IsRetraining() {
		reason := retrainInProgress
		respondJSON(w, http.StatusOK, orchestrator.BatchResult{
			Summary: "Retrain in progress. Try again later.",
			Error:   &reason,
		})
		return
	}

	result := h.coordinator.RunDailyBatch(r.Context(), orchestrator.BatchParams{
		ForceRetrain: req.ForceRetrain,
		NumIdeas:     req.NumIdeas,
		NumPrompts:   req.NumPrompts,
		Renderer:     req.Renderer,
	})

	respondJSON(w, http.StatusOK, result)
}

// GeneratePrompts handles POST /generate_prompts, the manual generation path.
func (h *Handler) GeneratePrompts(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{}
	if r.ContentLength != 0 {
		if !decodeRequest(w, r, &req) {
			return
		}
	}

	if h.coordinator.State().IsRetraining() {
		reason := retrainInProgress
		renderer := req.Renderer
		if renderer == "" {
			renderer = h.cfg.Workflow.DefaultRenderer
		}
		respondJSON(w, http.StatusOK, orchestrator.GenerateResult{
			Renderer: renderer,
			Error:    &reason,
		})
		return
	}

	result := h.coordinator.RunManualGenerate(r.Context(), orchestrator.GenerateParams{
		NumPrompts:   req.NumPrompts,
		Renderer:     req.Renderer,
		ForceRetrain: req.ForceRetrain,
	})

	if !result.Success {
		logging.Warn().Msg("Manual generation completed with errors")
	}
	respondJSON(w, http.StatusOK, result)
}
