// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmorane/atelier/internal/clients"
	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/metrics"
)

// LikeEvent is an inbound engagement event. Consumed and discarded; only
// the counters persist.
type LikeEvent struct {
	RecordID    string
	StructureID string
	ImageURL    string
}

// LikeResult is the response to one like event.
type LikeResult struct {
	Status                string `json:"status"`
	LikesSinceLastRetrain int    `json:"likes_since_last_retrain"`
	Threshold             int    `json:"threshold"`
	ThresholdReached      bool   `json:"threshold_reached"`
	RetrainTriggered      bool   `json:"retrain_triggered"`
	Message               string `json:"message"`
}

// BatchParams are the optional overrides of a daily batch run. Zero values
// fall back to catalog settings and then to configured defaults.
type BatchParams struct {
	ForceRetrain bool
	NumIdeas     int
	NumPrompts   int
	Renderer     string
}

// BatchResult is the outcome of a daily batch run.
type BatchResult struct {
	Success          bool    `json:"success"`
	RetrainTriggered bool    `json:"retrain_triggered"`
	IdeasGenerated   int     `json:"ideas_generated"`
	PromptsGenerated int     `json:"prompts_generated"`
	PromptsWritten   int     `json:"prompts_written"`
	Summary          string  `json:"summary"`
	Error            *string `json:"error"`
}

// GenerateParams are the inputs of a manual generation run.
type GenerateParams struct {
	NumPrompts   int
	Renderer     string
	ForceRetrain bool
}

// GenerateResult is the outcome of a manual generation run.
type GenerateResult struct {
	Success          bool    `json:"success"`
	RetrainTriggered bool    `json:"retrain_triggered"`
	PromptsGenerated int     `json:"prompts_generated"`
	PromptsWritten   int     `json:"prompts_written"`
	Renderer         string  `json:"renderer"`
	Error            *string `json:"error"`
}

// RecordLike atomically counts a like and, when the threshold is reached,
// runs the learning cycle on the spot. The single-flight guard inside
// RunLearningCycle keeps concurrent threshold hits from double-running.
func (c *Coordinator) RecordLike(ctx context.Context, event LikeEvent) LikeResult {
	likes := c.state.RecordLike()
	metrics.LikesRecorded.Inc()
	metrics.LikeCounterValue.Set(float64(likes))

	logging.Info().
		Str("record_id", event.RecordID).
		Str("structure_id", event.StructureID).
		Int("likes_since_last_retrain", likes).
		Msg("Like recorded")

	threshold := c.cfg.LikeThreshold
	if likes < threshold {
		return LikeResult{
			Status:                "recorded",
			LikesSinceLastRetrain: likes,
			Threshold:             threshold,
			Message:               fmt.Sprintf("Like recorded. %d until next learning cycle.", threshold-likes),
		}
	}

	// A cycle already in flight absorbs this trigger: the counter stays
	// above threshold, so the next evaluation runs the pipeline.
	if c.state.IsRetraining() {
		return LikeResult{
			Status:                "queued",
			LikesSinceLastRetrain: likes,
			Threshold:             threshold,
			ThresholdReached:      true,
			Message:               "Learning cycle already in progress. Like queued for next cycle.",
		}
	}

	metrics.ThresholdTriggers.Inc()
	cycle := c.RunLearningCycle(ctx, false)

	return LikeResult{
		Status:                "threshold_reached",
		LikesSinceLastRetrain: c.state.LikesSinceLastRetrain(),
		Threshold:             threshold,
		ThresholdReached:      true,
		RetrainTriggered:      cycle.RetrainTriggered,
		Message:               "Threshold reached. Learning cycle triggered.",
	}
}

// RunDailyBatch executes the batch workflow: optional learning cycle,
// score retrieval, idea generation and prompt generation. Idea failure does
// not stop prompt generation; the batch is stamped as attempted regardless.
func (c *Coordinator) RunDailyBatch(ctx context.Context, params BatchParams) BatchResult {
	logging.Info().Bool("force_retrain", params.ForceRetrain).Msg("STARTING DAILY BATCH")
	start := time.Now()

	numIdeas, numPrompts, renderer, enabled := c.resolveBatchSettings(ctx, params)
	if !enabled {
		logging.Info().Msg("Daily batch disabled in catalog settings, skipping")
		return BatchResult{
			Success: true,
			Summary: "Daily batch is disabled. Skipped.",
		}
	}

	var errs []string
	result := BatchResult{}

	cycle := c.RunLearningCycle(ctx, params.ForceRetrain)
	result.RetrainTriggered = cycle.RetrainTriggered
	if cycle.Error != nil {
		errs = append(errs, *cycle.Error)
	}

	scores := c.scoresForGeneration(ctx)

	// Idea generation. A failure here is contained: prompts still run.
	c.strategist.WarmUp(ctx)
	ideas, err := c.strategist.GenerateIdeas(ctx, numIdeas, c.cfg.ExplorationRate, scores)
	if err != nil {
		logging.Error().Err(err).Msg("Idea generation failed")
		errs = append(errs, err.Error())
	} else {
		result.IdeasGenerated = ideas.TotalGenerated
		metrics.IdeasGenerated.Add(float64(ideas.TotalGenerated))
	}

	// Prompt generation, independent of the idea outcome.
	c.generator.WarmUp(ctx)
	prompts, err := c.generator.GeneratePrompts(ctx, numPrompts, renderer)
	if err != nil {
		logging.Error().Err(err).Msg("Prompt generation failed")
		errs = append(errs, err.Error())
	}
	result.PromptsGenerated = len(prompts)
	metrics.PromptsGenerated.Add(float64(len(prompts)))

	result.PromptsWritten = c.persistPrompts(ctx, prompts, &errs)

	c.state.RecordBatch(BatchSummary{
		Ideas:            result.IdeasGenerated,
		Prompts:          result.PromptsGenerated,
		PromptsWritten:   result.PromptsWritten,
		RetrainTriggered: result.RetrainTriggered,
	})

	result.Success = len(errs) == 0
	if len(errs) > 0 {
		msg := strings.Join(errs, "; ")
		result.Error = &msg
		c.state.SetLastError(msg)
	}
	result.Summary = c.batchSummary(result)

	metrics.RecordBatch("daily", time.Since(start), errorIf(len(errs) > 0))
	logging.Info().
		Int("ideas", result.IdeasGenerated).
		Int("prompts", result.PromptsGenerated).
		Int("written", result.PromptsWritten).
		Bool("success", result.Success).
		Msg("DAILY BATCH COMPLETE")

	return result
}

// RunManualGenerate is the lighter-weight manual path: optional learning
// cycle, then prompt generation only.
func (c *Coordinator) RunManualGenerate(ctx context.Context, params GenerateParams) GenerateResult {
	numPrompts := params.NumPrompts
	if numPrompts <= 0 {
		numPrompts = c.cfg.DefaultNumPrompts
	}
	renderer := params.Renderer
	if renderer == "" {
		renderer = c.cfg.DefaultRenderer
	}

	logging.Info().Int("num_prompts", numPrompts).Str("renderer", renderer).Msg("STARTING MANUAL GENERATION")
	start := time.Now()

	var errs []string
	result := GenerateResult{Renderer: renderer}

	cycle := c.RunLearningCycle(ctx, params.ForceRetrain)
	result.RetrainTriggered = cycle.RetrainTriggered
	if cycle.Error != nil {
		errs = append(errs, *cycle.Error)
	}

	c.generator.WarmUp(ctx)
	prompts, err := c.generator.GeneratePrompts(ctx, numPrompts, renderer)
	if err != nil {
		logging.Error().Err(err).Msg("Prompt generation failed")
		errs = append(errs, err.Error())
	}
	result.PromptsGenerated = len(prompts)
	metrics.PromptsGenerated.Add(float64(len(prompts)))

	result.PromptsWritten = c.persistPrompts(ctx, prompts, &errs)

	c.state.RecordGeneration(GenerationSummary{
		Prompts:  result.PromptsGenerated,
		Renderer: renderer,
		Manual:   true,
	})

	result.Success = len(errs) == 0
	if len(errs) > 0 {
		msg := strings.Join(errs, "; ")
		result.Error = &msg
		c.state.SetLastError(msg)
	}

	metrics.RecordBatch("manual", time.Since(start), errorIf(len(errs) > 0))
	logging.Info().
		Int("prompts", result.PromptsGenerated).
		Int("written", result.PromptsWritten).
		Bool("success", result.Success).
		Msg("MANUAL GENERATION COMPLETE")

	return result
}

// resolveBatchSettings layers request params over catalog batch settings
// over configured defaults. The batch is enabled unless the catalog says
// otherwise; a settings fetch failure never blocks the run.
func (c *Coordinator) resolveBatchSettings(ctx context.Context, params BatchParams) (numIdeas, numPrompts int, renderer string, enabled bool) {
	numIdeas = c.cfg.DefaultBatchIdeas
	numPrompts = c.cfg.DefaultNumPrompts
	renderer = c.cfg.DefaultRenderer
	enabled = true

	if c.catalog != nil {
		settings, err := c.catalog.FetchBatchSettings(ctx)
		if err != nil {
			logging.Warn().Err(err).Msg("Could not fetch batch settings, using defaults")
		} else {
			if settings.BatchEnabled != nil {
				enabled = *settings.BatchEnabled
			}
			if settings.NumPrompts > 0 {
				numPrompts = settings.NumPrompts
			}
			if settings.Renderer != "" {
				renderer = settings.Renderer
			}
		}
	}

	if params.NumIdeas > 0 {
		numIdeas = params.NumIdeas
	}
	if params.NumPrompts > 0 {
		numPrompts = params.NumPrompts
	}
	if params.Renderer != "" {
		renderer = params.Renderer
	}
	return numIdeas, numPrompts, renderer, enabled
}

// scoresForGeneration obtains a ScoreSet to seed the strategist: cached if
// fresh, fetched otherwise. GetScores already degrades to the stale cache
// on fetch failure, so the error only needs a warning here.
func (c *Coordinator) scoresForGeneration(ctx context.Context) ScoreSet {
	scores, err := c.GetScores(ctx, c.cfg.ScoreMaxAge)
	if err != nil {
		logging.Warn().Err(err).Msg("Could not fetch fresh scores, using cached")
	}
	return scores
}

// persistPrompts writes generated prompts to the catalog when one is
// configured. A write failure is appended to errs but never aborts the run.
func (c *Coordinator) persistPrompts(ctx context.Context, prompts []clients.Prompt, errs *[]string) int {
	if len(prompts) == 0 || c.catalog == nil {
		return 0
	}

	written, err := c.catalog.WritePrompts(ctx, prompts)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to write prompts to catalog")
		*errs = append(*errs, err.Error())
	}
	return written
}

// batchSummary renders the human-readable batch outcome for notifications.
func (c *Coordinator) batchSummary(result BatchResult) string {
	var parts []string
	if result.RetrainTriggered {
		parts = append(parts, "Learning cycle completed")
	}
	parts = append(parts, fmt.Sprintf("%d new structure ideas generated", result.IdeasGenerated))
	parts = append(parts, fmt.Sprintf("%d prompts created", result.PromptsGenerated))
	return strings.Join(parts, ". ") + "."
}

// errorIf adapts a boolean failure flag to the metrics helpers.
func errorIf(failed bool) error {
	if failed {
		return errWorkflowFailed
	}
	return nil
}

var errWorkflowFailed = fmt.Errorf("workflow failed")
