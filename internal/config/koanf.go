// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/atelier/config.yaml",
	"/etc/atelier/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8093,
			Timeout: 30 * time.Second,
		},
		Optimizer:  ServiceConfig{},
		Strategist: ServiceConfig{},
		Generator:  ServiceConfig{},
		Catalog:    ServiceConfig{},
		Timeouts: TimeoutsConfig{
			Train:    300 * time.Second,
			Score:    120 * time.Second,
			Insights: 60 * time.Second,
			Update:   60 * time.Second,
			Ideas:    300 * time.Second,
			Generate: 300 * time.Second,
			Catalog:  30 * time.Second,
		},
		Client: ClientConfig{
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
		Workflow: WorkflowConfig{
			LikeThreshold:     25,
			ExplorationRate:   0.2,
			DefaultBatchIdeas: 5,
			DefaultNumPrompts: 12,
			DefaultRenderer:   "ImageFX",
			// Matches the typical period of a threshold-driven cycle.
			ScoreMaxAge: 24 * time.Hour,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// LIKE_THRESHOLD -> workflow.like_threshold, OPTIMIZER_URL -> optimizer.url
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Comma-separated env values for slice fields
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables are ignored so unrelated environment noise cannot leak
// into the configuration tree.
//
// Examples:
//   - OPTIMIZER_URL -> optimizer.url
//   - LIKE_THRESHOLD -> workflow.like_threshold
//   - TRAIN_TIMEOUT -> timeouts.train
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Collaborator service URLs and credentials
		"optimizer_url":   "optimizer.url",
		"strategist_url":  "strategist.url",
		"generator_url":   "generator.url",
		"catalog_url":     "catalog.url",
		"catalog_api_key": "catalog.api_key",

		// Per-operation timeouts
		"train_timeout":    "timeouts.train",
		"score_timeout":    "timeouts.score",
		"insights_timeout": "timeouts.insights",
		"update_timeout":   "timeouts.update",
		"ideas_timeout":    "timeouts.ideas",
		"generate_timeout": "timeouts.generate",
		"catalog_timeout":  "timeouts.catalog",

		// Client retry behavior
		"retry_attempts": "client.retry_attempts",
		"retry_delay":    "client.retry_delay",

		// Workflow parameters
		"like_threshold":      "workflow.like_threshold",
		"exploration_rate":    "workflow.exploration_rate",
		"default_batch_ideas": "workflow.default_batch_ideas",
		"default_num_prompts": "workflow.default_num_prompts",
		"default_renderer":    "workflow.default_renderer",
		"score_max_age":       "workflow.score_max_age",

		// Security
		"rate_limit_reqs":    "security.rate_limit_reqs",
		"rate_limit_window":  "security.rate_limit_window",
		"disable_rate_limit": "security.rate_limit_disabled",
		"cors_origins":       "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
