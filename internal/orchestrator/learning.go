// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/jmorane/atelier/internal/clients"
	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/metrics"
)

// Optimizer is the trainer/scorer/insights collaborator.
type Optimizer interface {
	Train(ctx context.Context) (*clients.TrainResponse, error)
	ScoreStructures(ctx context.Context) (*clients.ScoreResponse, error)
	StructureInsights(ctx context.Context) (*clients.InsightsResponse, error)
}

// Strategist is the idea-generation collaborator.
type Strategist interface {
	GenerateIdeas(ctx context.Context, numIdeas int, explorationRate float64, scores map[string]float64) (*clients.IdeasResponse, error)
	WarmUp(ctx context.Context) bool
}

// Generator is the prompt-generation collaborator.
type Generator interface {
	UpdatePreferences(ctx context.Context, update clients.PreferencesUpdate) error
	GeneratePrompts(ctx context.Context, numPrompts int, renderer string) ([]clients.Prompt, error)
	WarmUp(ctx context.Context) bool
}

// Catalog is the persistence backend. A nil Catalog disables persistence;
// the persist stage and prompt writes are then skipped.
type Catalog interface {
	WriteScores(ctx context.Context, scores map[string]float64) (*clients.WriteScoresResult, error)
	WritePrompts(ctx context.Context, prompts []clients.Prompt) (int, error)
	FetchBatchSettings(ctx context.Context) (*clients.BatchSettings, error)
}

// WorkflowConfig carries the tunables of both coordinators.
type WorkflowConfig struct {
	LikeThreshold     int
	ExplorationRate   float64
	DefaultBatchIdeas int
	DefaultNumPrompts int
	DefaultRenderer   string
	ScoreMaxAge       time.Duration
}

// LearningCycleResult is the structured outcome handed to the event router.
// Stage failures are reported here, never as transport errors.
type LearningCycleResult struct {
	Success          bool    `json:"success"`
	RetrainTriggered bool    `json:"retrain_triggered"`
	FailedStage      string  `json:"failed_stage,omitempty"`
	Error            *string `json:"error"`
}

// Coordinator owns both the learning cycle and the batch workflows. It is
// safe for concurrent use: state access goes through State's lock and
// pipeline execution is serialized by runMu.
type Coordinator struct {
	state      *State
	optimizer  Optimizer
	strategist Strategist
	generator  Generator
	catalog    Catalog
	cfg        WorkflowConfig

	// runMu is the single-flight guard around the five pipeline stages.
	// Distinct from the state lock: runMu is held across network calls,
	// the state lock never is.
	runMu sync.Mutex
}

// NewCoordinator wires the coordinator. catalog may be nil.
func NewCoordinator(state *State, optimizer Optimizer, strategist Strategist, generator Generator, catalog Catalog, cfg WorkflowConfig) *Coordinator {
	return &Coordinator{
		state:      state,
		optimizer:  optimizer,
		strategist: strategist,
		generator:  generator,
		catalog:    catalog,
		cfg:        cfg,
	}
}

// State exposes the injected state aggregate for handlers.
func (c *Coordinator) State() *State {
	return c.state
}

// Threshold returns the configured like threshold.
func (c *Coordinator) Threshold() int {
	return c.cfg.LikeThreshold
}

// cycleNeeded is the trigger predicate.
func (c *Coordinator) cycleNeeded(force bool) bool {
	return force || c.state.LikesSinceLastRetrain() >= c.cfg.LikeThreshold
}

// RunLearningCycle runs the five-stage pipeline if a cycle is needed
// (threshold reached or forced); otherwise it returns immediately without
// external calls.
//
// A concurrent trigger blocks on the pipeline mutex. Once through, it
// re-evaluates: if a cycle executed while it waited, its own force flag is
// considered consumed and only the threshold predicate can start another
// run. This is what keeps two simultaneous triggers from both running the
// pipeline and double-resetting the counter.
func (c *Coordinator) RunLearningCycle(ctx context.Context, force bool) LearningCycleResult {
	if !c.cycleNeeded(force) {
		return LearningCycleResult{Success: true, RetrainTriggered: false}
	}

	trigger := "threshold"
	if force {
		trigger = "forced"
	}

	seqBefore := c.state.CycleSeq()
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.state.CycleSeq() != seqBefore {
		// A cycle ran while this trigger waited: the force is satisfied
		// by that run, so only the threshold can justify another.
		force = false
	}
	if !c.cycleNeeded(force) {
		metrics.RecordCycleSkipped(trigger)
		return LearningCycleResult{Success: true, RetrainTriggered: false}
	}

	c.state.SetRetraining(true)
	defer c.state.SetRetraining(false)
	c.state.SetLastError("")

	logging.Info().Str("trigger", trigger).Msg("STARTING LEARNING CYCLE")

	start := time.Now()
	run := c.executePipeline(ctx)
	c.state.BumpCycleSeq()

	err := run.failure()
	metrics.RecordCycle(trigger, time.Since(start), err)

	result := LearningCycleResult{
		Success:          run.OverallSuccess,
		RetrainTriggered: true,
	}
	if err != nil {
		result.FailedStage = run.FailedStage()
		msg := err.Error()
		result.Error = &msg
		c.state.SetLastError(msg)
		logging.Error().Str("failed_stage", result.FailedStage).Err(err).Msg("Learning cycle failed")
	} else {
		logging.Info().Msg("LEARNING CYCLE COMPLETE")
	}

	return result
}

// executePipeline evaluates the five stages left to right, short-circuiting
// on the first failure. No rollback: side effects already sent to
// collaborators stand. Train success commits the counter reset regardless
// of what later stages do.
func (c *Coordinator) executePipeline(ctx context.Context) *PipelineRun {
	run := newLearningRun(time.Now())
	defer func() { run.FinishedAt = time.Now() }()

	// Stage 1: Train. The irreversible commit point.
	logging.Info().Msg("Stage 1/5: Training optimizer")
	if _, err := c.timedStage(StageTrain, func() (interface{}, error) {
		return c.optimizer.Train(ctx)
	}); err != nil {
		run.markFailed(StageTrain, err)
		return run
	}
	run.markOK(StageTrain)
	c.state.CommitRetrain()
	metrics.RetrainsTotal.Inc()
	metrics.LikeCounterValue.Set(0)

	// Stage 2: Score structures.
	logging.Info().Msg("Stage 2/5: Scoring structures")
	scoreVal, err := c.timedStage(StageScore, func() (interface{}, error) {
		return c.optimizer.ScoreStructures(ctx)
	})
	if err != nil {
		run.markFailed(StageScore, err)
		return run
	}
	run.markOK(StageScore)
	scoreResp := scoreVal.(*clients.ScoreResponse)

	// The ScoreSet survives later-stage failures: cache it now.
	scores := scoreResp.ScoreMap()
	c.state.CacheScores(scores)
	metrics.ScoreCacheEntries.Set(float64(len(scores)))

	// Stage 3: Fetch insights.
	logging.Info().Msg("Stage 3/5: Fetching structure insights")
	insightsVal, err := c.timedStage(StageInsights, func() (interface{}, error) {
		return c.optimizer.StructureInsights(ctx)
	})
	if err != nil {
		run.markFailed(StageInsights, err)
		return run
	}
	run.markOK(StageInsights)
	insights := insightsVal.(*clients.InsightsResponse)

	// Stage 4: Push preferences to the generator.
	logging.Info().Msg("Stage 4/5: Updating generator preferences")
	if _, err := c.timedStage(StageUpdate, func() (interface{}, error) {
		return nil, c.generator.UpdatePreferences(ctx, clients.PreferencesUpdate{
			GlobalPreferenceVector:  scoreResp.GlobalPreferenceVector,
			ExplorationRate:         c.cfg.ExplorationRate,
			StructureScores:         scores,
			StructurePromptInsights: insights.Insights,
		})
	}); err != nil {
		run.markFailed(StageUpdate, err)
		return run
	}
	run.markOK(StageUpdate)

	// Stage 5: Persist scores, one record per entity. Skipped without a
	// catalog, as the original deployment runs without credentials.
	logging.Info().Msg("Stage 5/5: Persisting scores")
	if c.catalog == nil {
		logging.Warn().Msg("No catalog configured, skipping score persistence")
		run.markOK(StagePersist)
	} else {
		if _, err := c.timedStage(StagePersist, func() (interface{}, error) {
			return c.catalog.WriteScores(ctx, scores)
		}); err != nil {
			run.markFailed(StagePersist, err)
			return run
		}
		run.markOK(StagePersist)
	}

	run.OverallSuccess = true
	return run
}

// timedStage runs one stage body and records its duration metric.
func (c *Coordinator) timedStage(stage string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	val, err := fn()
	metrics.RecordStage(stage, time.Since(start), err)
	return val, err
}
