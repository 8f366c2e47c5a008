// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"github.com/jmorane/atelier/internal/config"
	"github.com/jmorane/atelier/internal/orchestrator"
)

// Version is the reported service version, injected at build time.
var Version = "dev"

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	coordinator *orchestrator.Coordinator
	cfg         *config.Config
}

// NewHandler creates a handler backed by the given coordinator.
func NewHandler(coordinator *orchestrator.Coordinator, cfg *config.Config) *Handler {
	return &Handler{
		coordinator: coordinator,
		cfg:         cfg,
	}
}
