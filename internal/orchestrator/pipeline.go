// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import "time"

// Learning cycle stage names, in the strict order they execute.
const (
	StageTrain    = "train"
	StageScore    = "score"
	StageInsights = "insights"
	StageUpdate   = "update_preferences"
	StagePersist  = "persist_scores"
)

// learningStages is the canonical stage order of one cycle.
var learningStages = []string{StageTrain, StageScore, StageInsights, StageUpdate, StagePersist}

// StageStatus tags the outcome of one pipeline stage.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
)

// StageResult is the evaluated outcome of one stage.
type StageResult struct {
	Name   string
	Status StageStatus
	Err    error
}

// PipelineRun captures one execution of the learning cycle pipeline. It is
// ephemeral: counters and the score cache that must outlive the run are
// committed into State; the run itself is discarded once the response is
// built.
type PipelineRun struct {
	Kind           string
	StartedAt      time.Time
	Stages         []StageResult
	FinishedAt     time.Time
	OverallSuccess bool
}

// newLearningRun builds a run with all five stages pending.
func newLearningRun(startedAt time.Time) *PipelineRun {
	stages := make([]StageResult, len(learningStages))
	for i, name := range learningStages {
		stages[i] = StageResult{Name: name, Status: StagePending}
	}
	return &PipelineRun{
		Kind:      "learning_cycle",
		StartedAt: startedAt,
		Stages:    stages,
	}
}

// markOK flags the named stage as succeeded.
func (r *PipelineRun) markOK(name string) {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			r.Stages[i].Status = StageOK
			return
		}
	}
}

// markFailed flags the named stage as failed with its error.
func (r *PipelineRun) markFailed(name string, err error) {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			r.Stages[i].Status = StageFailed
			r.Stages[i].Err = err
			return
		}
	}
}

// FailedStage returns the name of the first failed stage, or empty.
func (r *PipelineRun) FailedStage() string {
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			return s.Name
		}
	}
	return ""
}

// failure returns the error of the first failed stage, or nil.
func (r *PipelineRun) failure() error {
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			return s.Err
		}
	}
	return nil
}
