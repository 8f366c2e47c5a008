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

// IdeasRequest is the payload of a strategist batch run.
type IdeasRequest struct {
	NumIdeas        int                `json:"num_ideas"`
	ExplorationRate float64            `json:"exploration_rate"`
	StructureScores map[string]float64 `json:"structure_scores"`
}

// IdeasResponse reports how many structure ideas the strategist produced.
type IdeasResponse struct {
	TotalGenerated int `json:"totalGenerated"`
}

// StrategistClient talks to the idea-generation service.
type StrategistClient struct {
	client  *serviceClient
	timeout time.Duration
}

// NewStrategistClient creates a client for the strategist service.
func NewStrategistClient(baseURL string, timeout time.Duration, retry RetryPolicy) *StrategistClient {
	return &StrategistClient{
		client:  newServiceClient("strategist", baseURL, "", retry),
		timeout: timeout,
	}
}

// GenerateIdeas asks the strategist for numIdeas new structure ideas,
// seeding it with the current scores and exploration rate.
func (c *StrategistClient) GenerateIdeas(ctx context.Context, numIdeas int, explorationRate float64, scores map[string]float64) (*IdeasResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := IdeasRequest{
		NumIdeas:        numIdeas,
		ExplorationRate: explorationRate,
		StructureScores: scores,
	}

	var resp IdeasResponse
	if err := c.client.doJSON(ctx, http.MethodPost, "/api/batch/run", "generate_ideas", req, &resp, callOptions{}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WarmUp pings the strategist health endpoint so cold starts don't eat
// into the batch-run deadline. Failure is tolerated.
func (c *StrategistClient) WarmUp(ctx context.Context) bool {
	return c.client.warmUp(ctx, "/api/health")
}
