// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmorane/atelier/internal/clients"
	"github.com/jmorane/atelier/internal/config"
	"github.com/jmorane/atelier/internal/orchestrator"
)

// stubBackend implements all four collaborator interfaces for handler tests.
type stubBackend struct {
	mu         sync.Mutex
	trainErr   error
	trainCalls int
	ideaCalls  int
}

func (s *stubBackend) ideaCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ideaCalls
}

func (s *stubBackend) Train(ctx context.Context) (*clients.TrainResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trainCalls++
	if s.trainErr != nil {
		return nil, s.trainErr
	}
	return &clients.TrainResponse{Status: "ok"}, nil
}

func (s *stubBackend) ScoreStructures(ctx context.Context) (*clients.ScoreResponse, error) {
	return &clients.ScoreResponse{
		Structures: []clients.StructureScore{
			{StructureID: "rec_a", PredictedSuccessScore: 0.8},
			{StructureID: "rec_b", PredictedSuccessScore: 0.3},
		},
	}, nil
}

func (s *stubBackend) StructureInsights(ctx context.Context) (*clients.InsightsResponse, error) {
	return &clients.InsightsResponse{Status: "ok"}, nil
}

func (s *stubBackend) GenerateIdeas(ctx context.Context, numIdeas int, explorationRate float64, scores map[string]float64) (*clients.IdeasResponse, error) {
	s.mu.Lock()
	s.ideaCalls++
	s.mu.Unlock()
	return &clients.IdeasResponse{TotalGenerated: numIdeas}, nil
}

func (s *stubBackend) UpdatePreferences(ctx context.Context, update clients.PreferencesUpdate) error {
	return nil
}

func (s *stubBackend) GeneratePrompts(ctx context.Context, numPrompts int, renderer string) ([]clients.Prompt, error) {
	prompts := make([]clients.Prompt, numPrompts)
	for i := range prompts {
		prompts[i] = clients.Prompt{PromptText: fmt.Sprintf("prompt %d", i), Renderer: renderer}
	}
	return prompts, nil
}

func (s *stubBackend) WarmUp(ctx context.Context) bool { return true }

func (s *stubBackend) WriteScores(ctx context.Context, scores map[string]float64) (*clients.WriteScoresResult, error) {
	return &clients.WriteScoresResult{Updated: len(scores), Total: len(scores)}, nil
}

func (s *stubBackend) WritePrompts(ctx context.Context, prompts []clients.Prompt) (int, error) {
	return len(prompts), nil
}

func (s *stubBackend) FetchBatchSettings(ctx context.Context) (*clients.BatchSettings, error) {
	return &clients.BatchSettings{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			LikeThreshold:     25,
			ExplorationRate:   0.2,
			DefaultBatchIdeas: 5,
			DefaultNumPrompts: 12,
			DefaultRenderer:   "ImageFX",
			ScoreMaxAge:       24 * time.Hour,
		},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *orchestrator.Coordinator, *stubBackend) {
	t.Helper()

	backend := &stubBackend{}
	cfg := testConfig()
	coordinator := orchestrator.NewCoordinator(
		orchestrator.NewState(),
		backend, backend, backend, backend,
		orchestrator.WorkflowConfig{
			LikeThreshold:     cfg.Workflow.LikeThreshold,
			ExplorationRate:   cfg.Workflow.ExplorationRate,
			DefaultBatchIdeas: cfg.Workflow.DefaultBatchIdeas,
			DefaultNumPrompts: cfg.Workflow.DefaultNumPrompts,
			DefaultRenderer:   cfg.Workflow.DefaultRenderer,
			ScoreMaxAge:       cfg.Workflow.ScoreMaxAge,
		},
	)

	router := NewRouter(NewHandler(coordinator, cfg), cfg)
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server, coordinator, backend
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLikeEventBelowThreshold(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/like_event", map[string]string{
		"record_id":    "rec123",
		"structure_id": "s9",
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result orchestrator.LikeResult
	decodeBody(t, resp, &result)

	if result.Status != "recorded" {
		t.Errorf("status = %q, want recorded", result.Status)
	}
	if result.LikesSinceLastRetrain != 1 {
		t.Errorf("likes = %d, want 1", result.LikesSinceLastRetrain)
	}
	if want := "Like recorded. 24 until next learning cycle."; result.Message != want {
		t.Errorf("message = %q, want %q", result.Message, want)
	}
}

func TestLikeEventValidation(t *testing.T) {
	server, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid image url", map[string]string{"record_id": "r1", "image_url": "not a url"}},
		{"oversized record_id", map[string]string{"record_id": strings.Repeat("x", 300)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/like_event", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestLikeEventAllFieldsOptional(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/events/like", map[string]string{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result orchestrator.LikeResult
	decodeBody(t, resp, &result)
	if result.LikesSinceLastRetrain != 1 {
		t.Errorf("likes_since_last_retrain = %d, want 1", result.LikesSinceLastRetrain)
	}
	if got := coordinator.State().LikesSinceLastRetrain(); got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}
}

func TestLikeEventInvalidJSON(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/like_event", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLikeEventThresholdTriggersCycle(t *testing.T) {
	server, coordinator, backend := newTestServer(t)

	var result orchestrator.LikeResult
	for i := 0; i < 25; i++ {
		resp := postJSON(t, server.URL+"/like_event", map[string]string{"record_id": "rec1"})
		decodeBody(t, resp, &result)
	}

	if result.Status != "threshold_reached" {
		t.Errorf("status = %q, want threshold_reached", result.Status)
	}
	if !result.RetrainTriggered {
		t.Error("expected retrain on the 25th like")
	}
	if got := coordinator.State().TotalRetrains(); got != 1 {
		t.Errorf("total retrains = %d, want 1", got)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.trainCalls != 1 {
		t.Errorf("train calls = %d, want 1", backend.trainCalls)
	}
}

func TestDailyBatch(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/daily_batch", map[string]interface{}{})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result orchestrator.BatchResult
	decodeBody(t, resp, &result)

	if !result.Success {
		t.Errorf("expected success, got error %v", result.Error)
	}
	if result.IdeasGenerated != 5 || result.PromptsGenerated != 12 {
		t.Errorf("ideas/prompts = %d/%d, want 5/12", result.IdeasGenerated, result.PromptsGenerated)
	}
	if want := "5 new structure ideas generated. 12 prompts created."; result.Summary != want {
		t.Errorf("summary = %q, want %q", result.Summary, want)
	}
}

func TestDailyBatchEmptyBody(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/daily_batch", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for empty body", resp.StatusCode)
	}
}

func TestDailyBatchWhileRetraining(t *testing.T) {
	server, coordinator, backend := newTestServer(t)

	coordinator.State().SetRetraining(true)
	t.Cleanup(func() { coordinator.State().SetRetraining(false) })

	resp := postJSON(t, server.URL+"/events/daily_batch", map[string]interface{}{})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result orchestrator.BatchResult
	decodeBody(t, resp, &result)

	if result.Success {
		t.Error("expected success=false while retraining")
	}
	if result.Error == nil || *result.Error != "retrain_in_progress" {
		t.Errorf("error = %v, want retrain_in_progress", result.Error)
	}
	if want := "Retrain in progress. Try again later."; result.Summary != want {
		t.Errorf("summary = %q, want %q", result.Summary, want)
	}
	if got := backend.ideaCallCount(); got != 0 {
		t.Errorf("idea calls = %d, want 0 while retraining", got)
	}
}

func TestGeneratePromptsWhileRetraining(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	coordinator.State().SetRetraining(true)
	t.Cleanup(func() { coordinator.State().SetRetraining(false) })

	resp := postJSON(t, server.URL+"/events/manual_generate", map[string]interface{}{})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result orchestrator.GenerateResult
	decodeBody(t, resp, &result)

	if result.Success {
		t.Error("expected success=false while retraining")
	}
	if result.Error == nil || *result.Error != "retrain_in_progress" {
		t.Errorf("error = %v, want retrain_in_progress", result.Error)
	}
	if result.Renderer != testConfig().Workflow.DefaultRenderer {
		t.Errorf("renderer = %q, want configured default", result.Renderer)
	}
}

func TestGeneratePrompts(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/generate_prompts", map[string]interface{}{
		"num_prompts": 6,
		"renderer":    "Midjourney",
	})

	var result orchestrator.GenerateResult
	decodeBody(t, resp, &result)

	if !result.Success {
		t.Errorf("expected success, got error %v", result.Error)
	}
	if result.PromptsGenerated != 6 {
		t.Errorf("prompts = %d, want 6", result.PromptsGenerated)
	}
	if result.Renderer != "Midjourney" {
		t.Errorf("renderer = %q, want Midjourney", result.Renderer)
	}
	if got := coordinator.State().Snapshot().TotalGenerations; got != 1 {
		t.Errorf("total generations = %d, want 1", got)
	}
}

func TestTriggerRetrain(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/trigger_retrain", map[string]interface{}{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for coordinator.State().TotalRetrains() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("background learning cycle never committed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResetCounter(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	coordinator.State().RecordLike()
	coordinator.State().RecordLike()

	resp := postJSON(t, server.URL+"/reset_counter", map[string]interface{}{})

	var body map[string]interface{}
	decodeBody(t, resp, &body)

	if body["status"] != "reset" {
		t.Errorf("status = %v, want reset", body["status"])
	}
	if got := coordinator.State().LikesSinceLastRetrain(); got != 0 {
		t.Errorf("likes = %d, want 0 after reset", got)
	}
	if got := coordinator.State().TotalRetrains(); got != 0 {
		t.Errorf("total retrains = %d, want 0 (reset is not a commit)", got)
	}
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}

	var body healthResponse
	decodeBody(t, resp, &body)

	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if body.Threshold != 25 {
		t.Errorf("threshold = %d, want 25", body.Threshold)
	}
}

func TestStatus(t *testing.T) {
	server, coordinator, _ := newTestServer(t)

	coordinator.State().RecordLike()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}

	var body map[string]interface{}
	decodeBody(t, resp, &body)

	if body["service"] != "atelier" {
		t.Errorf("service = %v, want atelier", body["service"])
	}
	if body["likes_since_last_retrain"] != float64(1) {
		t.Errorf("likes = %v, want 1", body["likes_since_last_retrain"])
	}
	if _, ok := body["last_retrain_at"]; !ok {
		t.Error("expected last_retrain_at key, null before first retrain")
	}
}

func TestScores(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/scores")
	if err != nil {
		t.Fatalf("GET /scores: %v", err)
	}

	var body struct {
		Scores   map[string]float64 `json:"scores"`
		CachedAt *time.Time         `json:"cached_at"`
		IsFresh  bool               `json:"is_fresh"`
		Count    int                `json:"count"`
	}
	decodeBody(t, resp, &body)

	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
	if !body.IsFresh {
		t.Error("freshly fetched scores should be fresh")
	}
	if body.Scores["rec_a"] != 0.8 {
		t.Errorf("rec_a score = %v, want 0.8", body.Scores["rec_a"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/like_event")
	if err != nil {
		t.Fatalf("GET /like_event: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestEventAliasRoutes(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/events/like", map[string]string{"record_id": "rec1"})
	var result orchestrator.LikeResult
	decodeBody(t, resp, &result)
	if result.Status != "recorded" {
		t.Errorf("status via /events/like = %q, want recorded", result.Status)
	}

	resp = postJSON(t, server.URL+"/events/manual_generate", map[string]interface{}{"num_prompts": 2})
	var gen orchestrator.GenerateResult
	decodeBody(t, resp, &gen)
	if gen.PromptsGenerated != 2 {
		t.Errorf("prompts via /events/manual_generate = %d, want 2", gen.PromptsGenerated)
	}
}

func TestRequestIDHeader(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
