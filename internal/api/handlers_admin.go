// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"context"
	"net/http"

	"github.com/jmorane/atelier/internal/logging"
)

// TriggerRetrain handles POST /trigger_retrain. The forced cycle runs in the
// background so the caller is not held for the full pipeline; progress is
// observable through GET /status.
func (h *Handler) TriggerRetrain(w http.ResponseWriter, r *http.Request) {
	if h.coordinator.State().IsRetraining() {
		respondJSON(w, http.StatusConflict, map[string]string{
			"status":  "already_in_progress",
			"message": "Learning cycle already in progress.",
		})
		return
	}

	go func() {
		// Detached from the request context: the cycle outlives the response.
		result := h.coordinator.RunLearningCycle(context.Background(), true)
		if !result.Success {
			logging.Error().Str("failed_stage", result.FailedStage).Msg("Background learning cycle failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "triggered",
		"message": "Learning cycle started in background.",
	})
}

// ResetCounter handles POST /reset_counter. Zeroes the like counter without
// committing a retrain: lastRetrainAt and totalRetrains are untouched.
func (h *Handler) ResetCounter(w http.ResponseWriter, r *http.Request) {
	h.coordinator.State().ResetLikes()
	logging.Info().Msg("Like counter reset by admin request")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":                   "reset",
		"likes_since_last_retrain": 0,
	})
}
