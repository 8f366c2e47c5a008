// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/jmorane/atelier/internal/logging"
)

// promptChunkSize caps how many prompts one generator request may ask for.
// Larger requests are split so a single call never outlives the timeout.
const promptChunkSize = 10

// interChunkDelay spaces out chunked generator calls to respect the
// collaborator's rate limits. Variable so tests can shorten it.
var interChunkDelay = 2 * time.Second

// Prompt is one generated prompt as the generator returns it. Field names
// follow the generator's camelCase wire format.
type Prompt struct {
	PromptText        string `json:"promptText"`
	Renderer          string `json:"renderer"`
	DesignerID        string `json:"designerId,omitempty"`
	GarmentID         string `json:"garmentId,omitempty"`
	PromptStructureID string `json:"promptStructureId,omitempty"`
}

// PreferencesUpdate is what the learning cycle pushes to the generator
// after scoring: the fresh scores, insights and exploration rate.
type PreferencesUpdate struct {
	GlobalPreferenceVector  map[string]float64     `json:"global_preference_vector"`
	ExplorationRate         float64                `json:"exploration_rate"`
	StructureScores         map[string]float64     `json:"structure_scores"`
	StructurePromptInsights map[string]interface{} `json:"structure_prompt_insights"`
}

// generateRequest is the payload of a single generator call.
type generateRequest struct {
	NumPrompts int    `json:"num_prompts"`
	Renderer   string `json:"renderer"`
}

// generateResponse is one chunk of generated prompts.
type generateResponse struct {
	Prompts []Prompt `json:"prompts"`
}

// GeneratorTimeouts holds the per-operation deadlines for the generator.
type GeneratorTimeouts struct {
	Update   time.Duration
	Generate time.Duration
}

// GeneratorClient talks to the prompt-generation service.
type GeneratorClient struct {
	client   *serviceClient
	timeouts GeneratorTimeouts
}

// NewGeneratorClient creates a client for the generator service.
func NewGeneratorClient(baseURL string, timeouts GeneratorTimeouts, retry RetryPolicy) *GeneratorClient {
	return &GeneratorClient{
		client:   newServiceClient("generator", baseURL, "", retry),
		timeouts: timeouts,
	}
}

// UpdatePreferences pushes fresh scores and insights to the generator.
func (c *GeneratorClient) UpdatePreferences(ctx context.Context, update PreferencesUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Update)
	defer cancel()

	return c.client.doJSON(ctx, http.MethodPost, "/update_preferences", "update_preferences", update, nil, callOptions{})
}

// GeneratePrompts requests numPrompts prompts, splitting the work into
// chunks of at most promptChunkSize with a delay between chunks. A chunk
// failure aborts the remainder; prompts already received are returned with
// the error so the caller can still persist partial output.
func (c *GeneratorClient) GeneratePrompts(ctx context.Context, numPrompts int, renderer string) ([]Prompt, error) {
	var all []Prompt
	remaining := numPrompts
	chunk := 0

	for remaining > 0 {
		chunk++
		size := remaining
		if size > promptChunkSize {
			size = promptChunkSize
		}

		logging.Info().
			Int("chunk", chunk).
			Int("num_prompts", size).
			Str("renderer", renderer).
			Msg("Requesting generator prompt chunk")

		prompts, err := c.generateChunk(ctx, size, renderer)
		if err != nil {
			return all, err
		}
		all = append(all, prompts...)
		remaining -= size

		if remaining > 0 {
			select {
			case <-time.After(interChunkDelay):
			case <-ctx.Done():
				return all, &TransientError{Service: "generator", Operation: "generate_prompts", Err: ctx.Err()}
			}
		}
	}

	logging.Info().Int("total", len(all)).Int("chunks", chunk).Msg("Generator prompt run complete")
	return all, nil
}

// generateChunk issues one bounded generator call with its own deadline.
func (c *GeneratorClient) generateChunk(ctx context.Context, numPrompts int, renderer string) ([]Prompt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Generate)
	defer cancel()

	req := generateRequest{NumPrompts: numPrompts, Renderer: renderer}

	var resp generateResponse
	if err := c.client.doJSON(ctx, http.MethodPost, "/generate-prompts", "generate_prompts", req, &resp, callOptions{}); err != nil {
		return nil, err
	}
	return resp.Prompts, nil
}

// WarmUp pings the generator health endpoint. Failure is tolerated.
func (c *GeneratorClient) WarmUp(ctx context.Context) bool {
	return c.client.warmUp(ctx, "/health")
}
