// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package orchestrator holds the stateful core of the service: the
// lock-guarded OrchestratorState aggregate, the single-flight learning
// cycle pipeline (train, score, insights, update preferences, persist
// scores), the batch and manual generation workflows, and the single-entry
// score cache.
//
// Invariants:
//   - All counter and cache mutations go through State methods holding its
//     one mutex; the mutex is never held across a network call.
//   - At most one learning cycle pipeline executes at a time; a second
//     trigger blocks, then re-evaluates whether a cycle is still needed.
//   - A successful Train stage is the commit point: it resets the like
//     counter and increments totalRetrains even when a later stage fails.
package orchestrator
