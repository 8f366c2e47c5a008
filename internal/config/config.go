// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

// Package config loads and validates orchestrator configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables > optional YAML file > built-in
// defaults. Validation failures are fatal at startup; a missing
// collaborator URL must never surface as a per-request error.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServiceConfig holds connection settings for one external collaborator.
type ServiceConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// TimeoutsConfig holds per-operation timeouts for outbound calls.
//
// Training and generation are slow, batch-shaped operations on the
// collaborator side; the defaults reflect the 60-300s round trips
// observed in production.
type TimeoutsConfig struct {
	Train    time.Duration `koanf:"train"`
	Score    time.Duration `koanf:"score"`
	Insights time.Duration `koanf:"insights"`
	Update   time.Duration `koanf:"update"`
	Ideas    time.Duration `koanf:"ideas"`
	Generate time.Duration `koanf:"generate"`
	Catalog  time.Duration `koanf:"catalog"`
}

// ClientConfig holds retry behavior shared by all collaborator clients.
type ClientConfig struct {
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// WorkflowConfig holds the coordination parameters for the learning cycle
// and the batch workflows.
type WorkflowConfig struct {
	// LikeThreshold is the like count at which a learning cycle auto-triggers.
	LikeThreshold int `koanf:"like_threshold"`

	// ExplorationRate is passed through to generation calls uninterpreted.
	ExplorationRate float64 `koanf:"exploration_rate"`

	// DefaultBatchIdeas is the idea count for daily batches when the
	// request does not specify one.
	DefaultBatchIdeas int `koanf:"default_batch_ideas"`

	// DefaultNumPrompts is the prompt count for generation calls when the
	// request does not specify one.
	DefaultNumPrompts int `koanf:"default_num_prompts"`

	// DefaultRenderer is the renderer passed to the prompt generator when
	// the request does not specify one.
	DefaultRenderer string `koanf:"default_renderer"`

	// ScoreMaxAge is the staleness bound for the cached ScoreSet. Cached
	// scores older than this are refetched from the scorer.
	ScoreMaxAge time.Duration `koanf:"score_max_age"`
}

// SecurityConfig holds rate limiting and CORS settings for the event router.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the root configuration for the orchestrator.
type Config struct {
	Server     ServerConfig   `koanf:"server"`
	Optimizer  ServiceConfig  `koanf:"optimizer"`
	Strategist ServiceConfig  `koanf:"strategist"`
	Generator  ServiceConfig  `koanf:"generator"`
	Catalog    ServiceConfig  `koanf:"catalog"`
	Timeouts   TimeoutsConfig `koanf:"timeouts"`
	Client     ClientConfig   `koanf:"client"`
	Workflow   WorkflowConfig `koanf:"workflow"`
	Security   SecurityConfig `koanf:"security"`
	Logging    LoggingConfig  `koanf:"logging"`
}

// Validate checks the configuration for startup-fatal problems.
// Collaborator URLs are required: the coordinator cannot degrade
// gracefully when it does not know where its collaborators live.
// The catalog URL is the exception - catalog writes are skipped when
// it is not configured, matching how deployments run without a
// persistence backend.
func (c *Config) Validate() error {
	required := map[string]string{
		"optimizer.url":  c.Optimizer.URL,
		"strategist.url": c.Strategist.URL,
		"generator.url":  c.Generator.URL,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("missing required configuration: %s", key)
		}
	}

	urls := map[string]string{
		"optimizer.url":  c.Optimizer.URL,
		"strategist.url": c.Strategist.URL,
		"generator.url":  c.Generator.URL,
		"catalog.url":    c.Catalog.URL,
	}
	for key, val := range urls {
		if val == "" {
			continue
		}
		u, err := url.Parse(val)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid URL for %s: %q", key, val)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported scheme for %s: %q", key, u.Scheme)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Workflow.LikeThreshold < 1 {
		return fmt.Errorf("like threshold must be positive, got %d", c.Workflow.LikeThreshold)
	}
	if c.Workflow.ExplorationRate < 0 || c.Workflow.ExplorationRate > 1 {
		return fmt.Errorf("exploration rate must be in [0,1], got %g", c.Workflow.ExplorationRate)
	}
	if c.Workflow.DefaultBatchIdeas < 0 || c.Workflow.DefaultNumPrompts < 0 {
		return fmt.Errorf("default generation counts must be non-negative")
	}
	if c.Workflow.ScoreMaxAge <= 0 {
		return fmt.Errorf("score max age must be positive, got %s", c.Workflow.ScoreMaxAge)
	}
	if c.Client.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Client.RetryAttempts)
	}

	return nil
}

// CatalogEnabled reports whether the persistence backend is configured.
func (c *Config) CatalogEnabled() bool {
	return c.Catalog.URL != ""
}
