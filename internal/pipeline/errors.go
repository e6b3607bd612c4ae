package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure so the queue layer can apply retry policy
// without inspecting error strings.
type Kind string

const (
	// KindNotFound means the referenced content or source row is absent. The
	// store cannot distinguish a permanent delete from a racing insert, so
	// the default policy is to retry per queue policy.
	KindNotFound Kind = "not_found"

	// KindProviderUnavailable means no provider is registered under the
	// requested identifier. Requires a configuration fix; retrying blindly
	// is not useful.
	KindProviderUnavailable Kind = "provider_unavailable"

	// KindProviderFailure means the upstream call failed: connectivity, rate
	// limit, non-200 status. Retryable.
	KindProviderFailure Kind = "provider_failure"

	// KindMalformedResponse means the provider replied with something the
	// stage could not parse. Treated as a provider failure for retry
	// purposes, but the raw payload is logged for diagnosis.
	KindMalformedResponse Kind = "malformed_response"

	// KindValidation means the stage was handed invalid input (empty text or
	// prompt). A caller-side bug: the task is dropped with a log record.
	KindValidation Kind = "validation"

	// KindStorageFailure means a record-store operation failed mid-stage.
	// Retryable: the store is shared and the condition is usually transient.
	KindStorageFailure Kind = "storage_failure"
)

// StageError is the explicit result value a stage returns on failure.
type StageError struct {
	Kind      Kind
	Stage     string
	ContentID uint
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for content %d (%s): %v", e.Stage, e.ContentID, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether queue-level redelivery can plausibly fix the
// failure.
func (e *StageError) Retryable() bool {
	switch e.Kind {
	case KindNotFound, KindProviderFailure, KindMalformedResponse, KindStorageFailure:
		return true
	default:
		return false
	}
}

// AsStageError unwraps err into a *StageError if there is one.
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}
