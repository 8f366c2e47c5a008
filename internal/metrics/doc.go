// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package metrics provides Prometheus instrumentation for the orchestrator.
//
// All metrics are registered with the default registry via promauto and
// exposed on the /metrics endpoint. Metric names are stable and treated as
// part of the operational interface.
package metrics
