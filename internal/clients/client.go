// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jmorane/atelier/internal/logging"
	"github.com/jmorane/atelier/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads up to maxErrorBodySize of the response body for
// error reporting. Returns a placeholder if the read itself fails.
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// RetryPolicy bounds the retry loop of the shared client.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// BaseDelay is the first backoff delay; it doubles on each retry.
	BaseDelay time.Duration
}

// serviceClient is the shared HTTP layer under every collaborator client.
// It owns the retry loop for transient failures, the per-service circuit
// breaker, and request/response JSON handling.
//
// Thread safety: safe for concurrent use; each call builds its own request.
type serviceClient struct {
	service    string
	baseURL    string
	authToken  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[interface{}]
	retry      RetryPolicy
}

// newServiceClient creates the shared client for one collaborator service.
// The circuit breaker opens after a 60% failure rate over at least 10
// requests within a 1 minute window, and probes recovery after 2 minutes.
func newServiceClient(service, baseURL, authToken string, retry RetryPolicy) *serviceClient {
	metrics.CircuitBreakerState.WithLabelValues(service).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        service,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Str("service", service).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().
				Str("service", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &serviceClient{
		service:   service,
		baseURL:   baseURL,
		authToken: authToken,
		// Per-call deadlines come from the caller's context; the transport
		// timeout here is only a backstop against leaked connections.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		breaker:    cb,
		retry:      retry,
	}
}

// callOptions modify a single doJSON call.
type callOptions struct {
	// noRetry disables the retry loop for operations that are not known
	// to be idempotent (Train).
	noRetry bool
}

// doJSON issues an HTTP request with a JSON payload (nil for none), decodes
// the JSON response into result (nil to discard), and applies the retry
// policy to transient failures. All attempts run inside the service's
// circuit breaker.
func (c *serviceClient) doJSON(ctx context.Context, method, path, operation string, payload, result interface{}, opts callOptions) error {
	start := time.Now()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, method, path, operation, payload, result, opts)
	})

	metrics.RecordClientRequest(c.service, operation, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.service, "rejected").Inc()
			logging.Warn().Str("service", c.service).Str("operation", operation).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return &TransientError{Service: c.service, Operation: operation, Err: err}
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.service, "failure").Inc()
		return err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.service, "success").Inc()
	return nil
}

// doWithRetry runs the bounded retry loop. Transient failures (connection
// errors, 5xx, 429) are retried with doubling backoff; 429 honors the
// Retry-After header. CollaboratorError is returned immediately.
func (c *serviceClient) doWithRetry(ctx context.Context, method, path, operation string, payload, result interface{}, opts callOptions) error {
	attempts := c.retry.MaxAttempts
	if opts.noRetry || attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return &TransientError{Service: c.service, Operation: operation, Err: ctx.Err()}
		}

		retryAfter, err := c.doOnce(ctx, method, path, operation, payload, result)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		metrics.ClientRetries.WithLabelValues(c.service, operation).Inc()

		wait := delay
		if retryAfter > 0 {
			wait = retryAfter
		}
		logging.Warn().
			Str("service", c.service).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Err(err).
			Msg("Collaborator request failed, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return &TransientError{Service: c.service, Operation: operation, Err: ctx.Err()}
		}
		delay *= 2
	}

	return lastErr
}

// doOnce performs a single HTTP round trip and classifies the outcome.
// The returned duration is the server-requested Retry-After, when present.
func (c *serviceClient) doOnce(ctx context.Context, method, path, operation string, payload, result interface{}) (time.Duration, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransientError{Service: c.service, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return parseRetryAfter(resp.Header.Get("Retry-After")),
			&TransientError{Service: c.service, Operation: operation, Err: fmt.Errorf("rate limited (HTTP 429)")}

	case resp.StatusCode >= 500:
		errBody := readBodyForError(resp.Body)
		return 0, &TransientError{
			Service:   c.service,
			Operation: operation,
			Err:       fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(errBody)),
		}

	case resp.StatusCode >= 400:
		errBody := readBodyForError(resp.Body)
		return 0, &CollaboratorError{
			Service:    c.service,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return 0, fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return 0, nil
}

// parseRetryAfter parses the Retry-After header in its integer-seconds form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// warmUp hits a health endpoint so a cold-started collaborator is ready
// before the real call. Failures are log-only; the caller proceeds anyway.
func (c *serviceClient) warmUp(ctx context.Context, healthPath string) bool {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Warn().Str("service", c.service).Err(err).Msg("Warm-up ping failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		logging.Warn().Str("service", c.service).Int("status", resp.StatusCode).Msg("Warm-up ping returned non-200")
		return false
	}

	logging.Info().Str("service", c.service).Msg("Service is warm and ready")
	return true
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
