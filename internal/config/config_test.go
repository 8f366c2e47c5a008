// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to pass validation.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPTIMIZER_URL", "http://optimizer:8000")
	t.Setenv("STRATEGIST_URL", "http://strategist:8001")
	t.Setenv("GENERATOR_URL", "http://generator:8002")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8093 {
		t.Errorf("expected default port 8093, got %d", cfg.Server.Port)
	}
	if cfg.Workflow.LikeThreshold != 25 {
		t.Errorf("expected default like threshold 25, got %d", cfg.Workflow.LikeThreshold)
	}
	if cfg.Workflow.ExplorationRate != 0.2 {
		t.Errorf("expected default exploration rate 0.2, got %f", cfg.Workflow.ExplorationRate)
	}
	if cfg.Workflow.ScoreMaxAge != 24*time.Hour {
		t.Errorf("expected default score max age 24h, got %s", cfg.Workflow.ScoreMaxAge)
	}
	if cfg.Timeouts.Train != 300*time.Second {
		t.Errorf("expected default train timeout 300s, got %s", cfg.Timeouts.Train)
	}
	if cfg.Client.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Client.RetryAttempts)
	}
	if cfg.Workflow.DefaultRenderer != "ImageFX" {
		t.Errorf("expected default renderer ImageFX, got %s", cfg.Workflow.DefaultRenderer)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("expected default CORS origins [*], got %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LIKE_THRESHOLD", "50")
	t.Setenv("TRAIN_TIMEOUT", "10m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_URL", "http://catalog:8003")
	t.Setenv("CATALOG_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Workflow.LikeThreshold != 50 {
		t.Errorf("expected like threshold 50, got %d", cfg.Workflow.LikeThreshold)
	}
	if cfg.Timeouts.Train != 10*time.Minute {
		t.Errorf("expected train timeout 10m, got %s", cfg.Timeouts.Train)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if !cfg.CatalogEnabled() {
		t.Error("expected catalog to be enabled when catalog URL set")
	}
}

func TestLoadCORSOriginsFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "http://a.example.com, http://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.Security.CORSOrigins)
	}
	if cfg.Security.CORSOrigins[0] != "http://a.example.com" {
		t.Errorf("expected trimmed origin, got %q", cfg.Security.CORSOrigins[0])
	}
}

func TestLoadMissingRequiredURLs(t *testing.T) {
	// No required env set and no config file in the temp working dir.
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error when service URLs missing")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atelier.yaml")
	content := []byte(`
optimizer:
  url: http://optimizer:8000
strategist:
  url: http://strategist:8001
generator:
  url: http://generator:8002
workflow:
  like_threshold: 10
server:
  port: 8100
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Workflow.LikeThreshold != 10 {
		t.Errorf("expected like threshold 10 from file, got %d", cfg.Workflow.LikeThreshold)
	}
	if cfg.Server.Port != 8100 {
		t.Errorf("expected port 8100 from file, got %d", cfg.Server.Port)
	}
	// Unspecified values keep defaults.
	if cfg.Workflow.DefaultBatchIdeas != 5 {
		t.Errorf("expected default batch ideas 5, got %d", cfg.Workflow.DefaultBatchIdeas)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atelier.yaml")
	content := []byte(`
optimizer:
  url: http://optimizer:8000
strategist:
  url: http://strategist:8001
generator:
  url: http://generator:8002
workflow:
  like_threshold: 10
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LIKE_THRESHOLD", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Workflow.LikeThreshold != 99 {
		t.Errorf("expected env to win over file, got %d", cfg.Workflow.LikeThreshold)
	}
}

func TestValidateRejectsBadURLScheme(t *testing.T) {
	cfg := defaultConfig()
	cfg.Optimizer.URL = "ftp://optimizer:8000"
	cfg.Strategist.URL = "http://strategist:8001"
	cfg.Generator.URL = "http://generator:8002"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http URL scheme")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Optimizer.URL = "http://optimizer:8000"
	cfg.Strategist.URL = "http://strategist:8001"
	cfg.Generator.URL = "http://generator:8002"
	cfg.Server.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestValidateRejectsBadExplorationRate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Optimizer.URL = "http://optimizer:8000"
	cfg.Strategist.URL = "http://strategist:8001"
	cfg.Generator.URL = "http://generator:8002"
	cfg.Workflow.ExplorationRate = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for exploration rate > 1")
	}
}

func TestEnvTransformFuncIgnoresUnknownVars(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("expected unknown env var to map to empty, got %q", got)
	}
	if got := envTransformFunc("OPTIMIZER_URL"); got != "optimizer.url" {
		t.Errorf("expected optimizer.url, got %q", got)
	}
}
