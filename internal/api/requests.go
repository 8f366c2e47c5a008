// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

// likeEventRequest is the inbound engagement event payload.
type likeEventRequest struct {
	RecordID    string `json:"record_id" validate:"omitempty,max=256"`
	StructureID string `json:"structure_id" validate:"omitempty,max=256"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=2048"`
}

// dailyBatchRequest carries optional overrides for a batch run. Zero values
// defer to catalog settings and configured defaults.
type dailyBatchRequest struct {
	ForceRetrain bool   `json:"force_retrain"`
	NumIdeas     int    `json:"num_ideas" validate:"omitempty,min=1,max=100"`
	NumPrompts   int    `json:"num_prompts" validate:"omitempty,min=1,max=500"`
	Renderer     string `json:"renderer" validate:"omitempty,max=64"`
}

// generateRequest carries the inputs of a manual generation run.
type generateRequest struct {
	NumPrompts   int    `json:"num_prompts" validate:"omitempty,min=1,max=500"`
	Renderer     string `json:"renderer" validate:"omitempty,max=64"`
	ForceRetrain bool   `json:"force_retrain"`
}
