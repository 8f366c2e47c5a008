// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jmorane/atelier/internal/logging"
)

// catalogWriteBatchSize caps how many records one catalog write carries.
const catalogWriteBatchSize = 10

// BatchSettings are per-run overrides stored in the catalog. Any field the
// catalog omits falls back to configured defaults. BatchEnabled is a pointer
// so an absent field is distinguishable from an explicit false.
type BatchSettings struct {
	BatchEnabled *bool  `json:"batch_enabled"`
	NumPrompts   int    `json:"num_prompts"`
	Renderer     string `json:"renderer"`
}

// scoreUpdate is one per-entity score write.
type scoreUpdate struct {
	OptimizerScore float64 `json:"optimizer_score"`
}

// promptRecord is one prompt as the catalog stores it.
type promptRecord struct {
	PromptText        string `json:"prompt_text"`
	Renderer          string `json:"renderer"`
	DesignerID        string `json:"designer_id,omitempty"`
	GarmentID         string `json:"garment_id,omitempty"`
	PromptStructureID string `json:"prompt_structure_id,omitempty"`
}

// promptWriteRequest is a batched catalog prompt write.
type promptWriteRequest struct {
	Records []promptRecord `json:"records"`
}

// promptWriteResponse reports how many records the catalog accepted.
type promptWriteResponse struct {
	Written int `json:"written"`
}

// WriteScoresResult summarizes a per-entity score persistence pass.
type WriteScoresResult struct {
	Updated int
	Total   int
}

// CatalogClient talks to the persistence backend. It is optional: when no
// catalog URL is configured the orchestrator skips persistence entirely.
type CatalogClient struct {
	client  *serviceClient
	timeout time.Duration
}

// NewCatalogClient creates a client for the catalog service. authToken may
// be empty when the catalog does not require credentials.
func NewCatalogClient(baseURL, authToken string, timeout time.Duration, retry RetryPolicy) *CatalogClient {
	return &CatalogClient{
		client:  newServiceClient("catalog", baseURL, authToken, retry),
		timeout: timeout,
	}
}

// WriteScores persists one record per scored entity. Individual write
// failures are tolerated and counted; the pass only errors when every
// single write failed.
func (c *CatalogClient) WriteScores(ctx context.Context, scores map[string]float64) (*WriteScoresResult, error) {
	result := &WriteScoresResult{Total: len(scores)}

	for entityID, score := range scores {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		path := "/structures/" + url.PathEscape(entityID) + "/score"
		err := c.client.doJSON(callCtx, http.MethodPatch, path, "write_score", scoreUpdate{OptimizerScore: score}, nil, callOptions{})
		cancel()

		if err != nil {
			logging.Warn().Str("entity_id", entityID).Err(err).Msg("Failed to persist score")
			continue
		}
		result.Updated++
	}

	if result.Total > 0 && result.Updated == 0 {
		return result, fmt.Errorf("catalog write_score: all %d score writes failed", result.Total)
	}
	return result, nil
}

// WritePrompts stores generated prompts in batches of catalogWriteBatchSize.
// A batch failure is tolerated; the returned count covers accepted records.
func (c *CatalogClient) WritePrompts(ctx context.Context, prompts []Prompt) (int, error) {
	written := 0

	for start := 0; start < len(prompts); start += catalogWriteBatchSize {
		end := start + catalogWriteBatchSize
		if end > len(prompts) {
			end = len(prompts)
		}

		records := make([]promptRecord, 0, end-start)
		for _, p := range prompts[start:end] {
			records = append(records, promptRecord{
				PromptText:        p.PromptText,
				Renderer:          p.Renderer,
				DesignerID:        p.DesignerID,
				GarmentID:         p.GarmentID,
				PromptStructureID: p.PromptStructureID,
			})
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		var resp promptWriteResponse
		err := c.client.doJSON(callCtx, http.MethodPost, "/prompts", "write_prompts", promptWriteRequest{Records: records}, &resp, callOptions{})
		cancel()

		if err != nil {
			logging.Warn().Int("batch_size", len(records)).Err(err).Msg("Failed to write prompt batch")
			continue
		}
		if resp.Written > 0 {
			written += resp.Written
		} else {
			written += len(records)
		}
	}

	if len(prompts) > 0 && written == 0 {
		return 0, fmt.Errorf("catalog write_prompts: all %d prompt writes failed", len(prompts))
	}
	return written, nil
}

// FetchBatchSettings loads the per-run batch overrides. The caller falls
// back to configured defaults when this errors.
func (c *CatalogClient) FetchBatchSettings(ctx context.Context) (*BatchSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var settings BatchSettings
	if err := c.client.doJSON(ctx, http.MethodGet, "/batch_settings", "fetch_batch_settings", nil, &settings, callOptions{}); err != nil {
		return nil, err
	}
	return &settings, nil
}
