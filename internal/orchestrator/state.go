// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package orchestrator

import (
	"sync"
	"time"
)

// ScoreSet maps entity IDs to predicted-success scores in [0,1]. The source
// of truth is the optimizer; this process only caches it.
type ScoreSet map[string]float64

// BatchSummary records the outcome of the most recent batch run.
type BatchSummary struct {
	Ideas            int  `json:"ideas"`
	Prompts          int  `json:"prompts"`
	PromptsWritten   int  `json:"prompts_written"`
	RetrainTriggered bool `json:"retrain_triggered"`
}

// GenerationSummary records the outcome of the most recent manual generation.
type GenerationSummary struct {
	Prompts  int    `json:"prompts"`
	Renderer string `json:"renderer"`
	Manual   bool   `json:"manual"`
}

// Status is a point-in-time snapshot of the orchestrator state, shaped for
// the /status endpoint. Timestamps are nil until the event first happens.
type Status struct {
	LikesSinceLastRetrain int                `json:"likes_since_last_retrain"`
	LastRetrainAt         *time.Time         `json:"last_retrain_at"`
	LastLikeAt            *time.Time         `json:"last_like_at"`
	TotalRetrains         int                `json:"total_retrains"`
	TotalLikesProcessed   int                `json:"total_likes_processed"`
	IsRetraining          bool               `json:"is_retraining"`
	LastError             string             `json:"last_error,omitempty"`
	LastBatchAt           *time.Time         `json:"last_batch_at"`
	TotalBatches          int                `json:"total_batches"`
	LastBatchResult       *BatchSummary      `json:"last_batch_result"`
	LastGenerationAt      *time.Time         `json:"last_generation_at"`
	TotalGenerations      int                `json:"total_generations"`
	LastGenerationResult  *GenerationSummary `json:"last_generation_result"`
	ScoresCachedAt        *time.Time         `json:"scores_cached_at"`
	CachedScoresCount     int                `json:"cached_scores_count"`
}

// State is the process-wide mutable aggregate. It is constructed once at
// startup and injected into the coordinator and handlers; all access is
// serialized by its single mutex. Methods never block on the network, so
// the lock is only ever held briefly.
type State struct {
	mu sync.Mutex

	likesSinceLastRetrain int
	lastRetrainAt         time.Time
	lastLikeAt            time.Time
	totalRetrains         int
	totalLikesProcessed   int
	retraining            bool
	lastError             string

	lastBatchAt     time.Time
	totalBatches    int
	lastBatchResult *BatchSummary

	lastGenerationAt     time.Time
	totalGenerations     int
	lastGenerationResult *GenerationSummary

	cachedScores   ScoreSet
	scoresCachedAt time.Time

	// cycleSeq increments after every executed learning cycle pipeline,
	// attempted or successful. Blocked triggers use it to detect that a
	// cycle ran while they waited.
	cycleSeq uint64

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewState creates a zeroed state with the real clock.
func NewState() *State {
	return &State{now: time.Now}
}

// RecordLike increments the like counters and returns the new
// likesSinceLastRetrain value.
func (s *State) RecordLike() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likesSinceLastRetrain++
	s.totalLikesProcessed++
	s.lastLikeAt = s.now()
	return s.likesSinceLastRetrain
}

// LikesSinceLastRetrain returns the current counter value.
func (s *State) LikesSinceLastRetrain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likesSinceLastRetrain
}

// CommitRetrain is the Train-success commit point: it resets the like
// counter, stamps lastRetrainAt and increments totalRetrains, atomically.
func (s *State) CommitRetrain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likesSinceLastRetrain = 0
	s.lastRetrainAt = s.now()
	s.totalRetrains++
}

// ResetLikes zeroes the like counter without committing a retrain. Admin
// operation behind POST /reset_counter.
func (s *State) ResetLikes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likesSinceLastRetrain = 0
}

// TotalRetrains returns the cumulative committed retrain count.
func (s *State) TotalRetrains() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRetrains
}

// SetRetraining flags whether a learning cycle pipeline is in flight.
func (s *State) SetRetraining(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retraining = v
}

// IsRetraining reports whether a learning cycle pipeline is in flight.
func (s *State) IsRetraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retraining
}

// SetLastError records the most recent workflow error, empty to clear.
func (s *State) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

// RecordBatch stamps a batch attempt. Called regardless of partial failure.
func (s *State) RecordBatch(summary BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBatchAt = s.now()
	s.totalBatches++
	s.lastBatchResult = &summary
}

// RecordGeneration stamps a manual generation attempt.
func (s *State) RecordGeneration(summary GenerationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGenerationAt = s.now()
	s.totalGenerations++
	s.lastGenerationResult = &summary
}

// CacheScores unconditionally overwrites the cached ScoreSet and stamps the
// fetch time.
func (s *State) CacheScores(scores ScoreSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedScores = scores
	s.scoresCachedAt = s.now()
}

// CachedScores returns a copy of the cached ScoreSet and its fetch time.
// The copy keeps callers from racing the single-entry cache.
func (s *State) CachedScores() (ScoreSet, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := make(ScoreSet, len(s.cachedScores))
	for k, v := range s.cachedScores {
		scores[k] = v
	}
	return scores, s.scoresCachedAt
}

// HasFreshScores reports whether the cache holds scores fetched within maxAge.
func (s *State) HasFreshScores(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scoresCachedAt.IsZero() || len(s.cachedScores) == 0 {
		return false
	}
	return s.now().Sub(s.scoresCachedAt) <= maxAge
}

// CycleSeq returns the learning cycle execution sequence number.
func (s *State) CycleSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycleSeq
}

// BumpCycleSeq marks that one learning cycle pipeline finished executing.
func (s *State) BumpCycleSeq() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleSeq++
}

// Snapshot assembles a Status view under the lock.
func (s *State) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		LikesSinceLastRetrain: s.likesSinceLastRetrain,
		LastRetrainAt:         optionalTime(s.lastRetrainAt),
		LastLikeAt:            optionalTime(s.lastLikeAt),
		TotalRetrains:         s.totalRetrains,
		TotalLikesProcessed:   s.totalLikesProcessed,
		IsRetraining:          s.retraining,
		LastError:             s.lastError,
		LastBatchAt:           optionalTime(s.lastBatchAt),
		TotalBatches:          s.totalBatches,
		LastBatchResult:       s.lastBatchResult,
		LastGenerationAt:      optionalTime(s.lastGenerationAt),
		TotalGenerations:      s.totalGenerations,
		LastGenerationResult:  s.lastGenerationResult,
		ScoresCachedAt:        optionalTime(s.scoresCachedAt),
		CachedScoresCount:     len(s.cachedScores),
	}
}

// optionalTime maps the zero time to nil so it serializes as null.
func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
