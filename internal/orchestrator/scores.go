// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import (
	"context"
	"time"

	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/metrics"
)

// ScoresView is the cache-aware read of the current structure scores.
type ScoresView struct {
	Scores   ScoreSet   `json:"scores"`
	CachedAt *time.Time `json:"cached_at"`
	IsFresh  bool       `json:"is_fresh"`
	Count    int        `json:"count"`
}

// GetScores returns structure scores no older than maxAge. A fresh cache
// entry short-circuits the optimizer call; a failed fetch falls back to
// whatever is cached, stale or not, alongside the error.
func (c *Coordinator) GetScores(ctx context.Context, maxAge time.Duration) (ScoreSet, error) {
	if c.state.HasFreshScores(maxAge) {
		metrics.ScoreCacheHits.Inc()
		scores, _ := c.state.CachedScores()
		return scores, nil
	}
	metrics.ScoreCacheMisses.Inc()

	resp, err := c.optimizer.ScoreStructures(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Score fetch failed, serving cached scores")
		cached, _ := c.state.CachedScores()
		return cached, err
	}

	scores := ScoreSet(resp.ScoreMap())
	c.state.CacheScores(scores)
	metrics.ScoreCacheEntries.Set(float64(len(scores)))
	return scores, nil
}

// Scores builds the read-model served to API consumers. Stale caches are
// refreshed in-line; a refresh failure degrades to the stale copy.
func (c *Coordinator) Scores(ctx context.Context, maxAge time.Duration) ScoresView {
	scores, _ := c.GetScores(ctx, maxAge)

	cached, cachedAt := c.state.CachedScores()
	if scores == nil {
		scores = cached
	}

	view := ScoresView{
		Scores: scores,
		Count:  len(scores),
	}
	if !cachedAt.IsZero() {
		at := cachedAt
		view.CachedAt = &at
		view.IsFresh = c.state.HasFreshScores(maxAge)
	}
	if view.Scores == nil {
		view.Scores = ScoreSet{}
	}
	return view
}
