// Atelier - Learning Cycle and Batch Workflow Orchestrator
// Copyright 2026 J. Morane (jmorane)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmorane/atelier

package clients

import (
	"errors"
	"fmt"
)

// TransientError wraps a failure that is worth retrying: connection errors,
// 5xx responses and 429 rate limiting. The retry loop in the shared client
// consumes these; a TransientError escaping the client means the bounded
// retries were exhausted.
type TransientError struct {
	Service   string
	Operation string
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s %s: transient failure: %v", e.Service, e.Operation, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// CollaboratorError represents a definitive rejection from a collaborator
// service (4xx other than 429). It is never retried; the stage that issued
// the call is marked failed.
type CollaboratorError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *CollaboratorError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Service, e.Operation, e.StatusCode)
}

// IsRetryable reports whether the error is transient and worth another attempt.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
