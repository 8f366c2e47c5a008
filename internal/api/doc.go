// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package api provides HTTP routing and handlers using Chi router.
//
// Inbound events and workflow triggers arrive here and are dispatched to
// the orchestrator. Handlers translate workflow outcomes to JSON; stage
// failures are reported in the response body, not as transport errors.
package api
