// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package clients

import (
	"context"
	"net/http"
	"time"
)

// StructureScore is one scored entity from the optimizer.
type StructureScore struct {
	StructureID           string  `json:"structure_id"`
	PredictedSuccessScore float64 `json:"predicted_success_score"`
}

// ScoreResponse is the optimizer's scoring output: per-structure predicted
// success scores in [0,1] plus a global preference vector used when pushing
// preferences to the generator.
type ScoreResponse struct {
	Structures             []StructureScore   `json:"structures"`
	GlobalPreferenceVector map[string]float64 `json:"global_preference_vector"`
}

// ScoreMap flattens the response into an entity-id to score mapping.
func (r *ScoreResponse) ScoreMap() map[string]float64 {
	scores := make(map[string]float64, len(r.Structures))
	for _, s := range r.Structures {
		if s.StructureID != "" {
			scores[s.StructureID] = s.PredictedSuccessScore
		}
	}
	return scores
}

// TrainResponse is the optimizer's acknowledgement of a training run.
type TrainResponse struct {
	Status string `json:"status"`
}

// InsightsResponse carries per-structure prompt insights keyed by the
// structures scored in the same cycle.
type InsightsResponse struct {
	Status   string                 `json:"status"`
	Insights map[string]interface{} `json:"insights"`
}

// OptimizerTimeouts holds the per-operation deadlines for the optimizer.
type OptimizerTimeouts struct {
	Train    time.Duration
	Score    time.Duration
	Insights time.Duration
}

// OptimizerClient talks to the trainer/scorer/insights service.
type OptimizerClient struct {
	client   *serviceClient
	timeouts OptimizerTimeouts
}

// NewOptimizerClient creates a client for the optimizer service.
func NewOptimizerClient(baseURL string, timeouts OptimizerTimeouts, retry RetryPolicy) *OptimizerClient {
	return &OptimizerClient{
		client:   newServiceClient("optimizer", baseURL, "", retry),
		timeouts: timeouts,
	}
}

// Train triggers a training run on the latest feedback. Training is not
// known to be idempotent, so a failed attempt is NEVER retried here; the
// caller decides whether a whole new cycle is warranted.
func (c *OptimizerClient) Train(ctx context.Context) (*TrainResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Train)
	defer cancel()

	var resp TrainResponse
	if err := c.client.doJSON(ctx, http.MethodPost, "/train", "train", struct{}{}, &resp, callOptions{noRetry: true}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScoreStructures fetches a fresh ScoreSet from the optimizer.
func (c *OptimizerClient) ScoreStructures(ctx context.Context) (*ScoreResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Score)
	defer cancel()

	var resp ScoreResponse
	if err := c.client.doJSON(ctx, http.MethodPost, "/score_structures", "score_structures", struct{}{}, &resp, callOptions{}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StructureInsights fetches prompt insights for the scored structures.
func (c *OptimizerClient) StructureInsights(ctx context.Context) (*InsightsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Insights)
	defer cancel()

	var resp InsightsResponse
	if err := c.client.doJSON(ctx, http.MethodGet, "/structure_prompt_insights", "structure_prompt_insights", nil, &resp, callOptions{}); err != nil {
		return nil, err
	}
	return &resp, nil
}
