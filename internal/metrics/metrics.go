// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Learning cycle stage outcomes and durations
// - Like counter and threshold triggers
// - Batch workflow runs
// - Collaborator HTTP client calls
// - Score cache efficiency
// - Circuit breaker state

var (
	// Learning Cycle Metrics
	LearningCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learning_cycles_total",
			Help: "Total number of learning cycle runs by outcome",
		},
		[]string{"trigger", "outcome"}, // trigger: "threshold", "forced"; outcome: "completed", "failed", "skipped"
	)

	LearningCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learning_cycle_duration_seconds",
			Help:    "Duration of full learning cycle runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // Train alone can take minutes
		},
	)

	LearningStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learning_stage_duration_seconds",
			Help:    "Duration of individual learning cycle stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"}, // "train", "score", "insights", "update", "persist"
	)

	LearningStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learning_stage_failures_total",
			Help: "Total number of learning cycle stage failures",
		},
		[]string{"stage"},
	)

	RetrainsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retrains_total",
			Help: "Total number of committed retrains (successful train stages)",
		},
	)

	// Like Counter Metrics
	LikesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "likes_recorded_total",
			Help: "Total number of like events recorded",
		},
	)

	LikeCounterValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "like_counter_value",
			Help: "Current value of the like counter since last retrain",
		},
	)

	ThresholdTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshold_triggers_total",
			Help: "Total number of learning cycles triggered by the like threshold",
		},
	)

	// Batch Workflow Metrics
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Total number of batch workflow runs by outcome",
		},
		[]string{"kind", "outcome"}, // kind: "daily", "manual"; outcome: "completed", "failed"
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Duration of batch workflow runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	IdeasGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ideas_generated_total",
			Help: "Total number of structure ideas generated",
		},
	)

	PromptsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompts_generated_total",
			Help: "Total number of prompts generated",
		},
	)

	// Score Cache Metrics
	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_hits_total",
			Help: "Total number of score cache hits (fresh cached scores served)",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_misses_total",
			Help: "Total number of score cache misses (stale or empty, refetched)",
		},
	)

	ScoreCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "score_cache_entries",
			Help: "Current number of cached structure scores",
		},
	)

	// Collaborator Client Metrics
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_requests_total",
			Help: "Total number of collaborator service requests",
		},
		[]string{"service", "operation", "status"}, // status: "success", "error"
	)

	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Duration of collaborator service requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "operation"},
	)

	ClientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_retries_total",
			Help: "Total number of collaborator request retries",
		},
		[]string{"service", "operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordStage records the outcome and duration of a single learning cycle stage.
func RecordStage(stage string, duration time.Duration, err error) {
	LearningStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		LearningStageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordCycle records a completed learning cycle run.
func RecordCycle(trigger string, duration time.Duration, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	LearningCyclesTotal.WithLabelValues(trigger, outcome).Inc()
	LearningCycleDuration.Observe(duration.Seconds())
}

// RecordCycleSkipped records a cycle run that was skipped because the
// trigger condition no longer held after acquiring the run lock.
func RecordCycleSkipped(trigger string) {
	LearningCyclesTotal.WithLabelValues(trigger, "skipped").Inc()
}

// RecordBatch records a batch workflow run.
func RecordBatch(kind string, duration time.Duration, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	BatchRunsTotal.WithLabelValues(kind, outcome).Inc()
	BatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordClientRequest records a collaborator service request metric.
func RecordClientRequest(service, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ClientRequestsTotal.WithLabelValues(service, operation, status).Inc()
	ClientRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
