// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package clients provides typed HTTP clients for the four collaborator
// services: the optimizer (train/score/insights), the strategist (idea
// generation), the generator (prompt generation) and the catalog
// (persistence backend).
//
// All clients share one HTTP layer with bounded retries for transient
// failures, per-service circuit breakers (sony/gobreaker) and per-operation
// deadlines. Definitive 4xx rejections surface as *CollaboratorError and
// are never retried; everything retryable surfaces as *TransientError.
package clients
