// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import (
	"testing"
	"time"
)

func TestStateRecordLikeAndCommit(t *testing.T) {
	s := NewState()

	for i := 1; i <= 5; i++ {
		if got := s.RecordLike(); got != i {
			t.Errorf("RecordLike #%d = %d, want %d", i, got, i)
		}
	}

	s.CommitRetrain()

	if got := s.LikesSinceLastRetrain(); got != 0 {
		t.Errorf("likes after commit = %d, want 0", got)
	}
	if got := s.TotalRetrains(); got != 1 {
		t.Errorf("total retrains = %d, want 1", got)
	}

	snap := s.Snapshot()
	if snap.TotalLikesProcessed != 5 {
		t.Errorf("total likes processed = %d, want 5 (commit must not erase it)", snap.TotalLikesProcessed)
	}
	if snap.LastRetrainAt == nil {
		t.Error("last_retrain_at should be set after commit")
	}
}

func TestStateResetLikesDoesNotCommit(t *testing.T) {
	s := NewState()
	s.RecordLike()
	s.RecordLike()

	s.ResetLikes()

	if got := s.LikesSinceLastRetrain(); got != 0 {
		t.Errorf("likes after reset = %d, want 0", got)
	}
	if got := s.TotalRetrains(); got != 0 {
		t.Errorf("total retrains = %d, want 0 (reset is not a retrain)", got)
	}
	if snap := s.Snapshot(); snap.LastRetrainAt != nil {
		t.Error("last_retrain_at must stay nil after an admin reset")
	}
}

func TestStateSnapshotZeroValue(t *testing.T) {
	snap := NewState().Snapshot()

	if snap.LastRetrainAt != nil || snap.LastLikeAt != nil || snap.LastBatchAt != nil {
		t.Error("timestamps should be nil before any activity")
	}
	if snap.LastBatchResult != nil || snap.LastGenerationResult != nil {
		t.Error("result summaries should be nil before any activity")
	}
	if snap.IsRetraining {
		t.Error("a fresh state is not retraining")
	}
}

func TestStateScoreCacheFreshness(t *testing.T) {
	s := NewState()
	current := time.Now()
	s.now = func() time.Time { return current }

	if s.HasFreshScores(time.Hour) {
		t.Error("empty cache reported fresh")
	}

	s.CacheScores(ScoreSet{"rec_a": 0.5})
	if !s.HasFreshScores(time.Hour) {
		t.Error("just-cached scores reported stale")
	}

	current = current.Add(2 * time.Hour)
	if s.HasFreshScores(time.Hour) {
		t.Error("expired scores reported fresh")
	}

	scores, at := s.CachedScores()
	if scores["rec_a"] != 0.5 || at.IsZero() {
		t.Error("stale scores must remain readable")
	}
}

func TestStateCachedScoresReturnsCopy(t *testing.T) {
	s := NewState()
	s.CacheScores(ScoreSet{"rec_a": 0.5})

	scores, _ := s.CachedScores()
	scores["rec_a"] = 0.9

	again, _ := s.CachedScores()
	if again["rec_a"] != 0.5 {
		t.Errorf("cache mutated through returned copy: got %v, want 0.5", again["rec_a"])
	}
}

func TestStateBatchAndGenerationTracking(t *testing.T) {
	s := NewState()

	s.RecordBatch(BatchSummary{Ideas: 5, Prompts: 12, RetrainTriggered: true})
	s.RecordGeneration(GenerationSummary{Prompts: 6, Renderer: "ImageFX", Manual: true})

	snap := s.Snapshot()
	if snap.TotalBatches != 1 || snap.TotalGenerations != 1 {
		t.Errorf("totals = %d batches, %d generations, want 1 each", snap.TotalBatches, snap.TotalGenerations)
	}
	if snap.LastBatchResult == nil || snap.LastBatchResult.Ideas != 5 {
		t.Error("last batch result not recorded")
	}
	if snap.LastGenerationResult == nil || snap.LastGenerationResult.Renderer != "ImageFX" {
		t.Error("last generation result not recorded")
	}
}
