package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown policy, rule, report, workflow,
	// decision, or appeal id. Always surfaced to the caller, never retried.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed submission. Surfaced immediately;
	// no partial state is created.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates two actions raced on the same queue item or
	// workflow; the losing action receives this instead of silently
	// overwriting.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrTerminalWorkflow indicates a reviewer action against a completed or
	// rejected workflow. State is left unchanged.
	ErrTerminalWorkflow = errors.New("workflow is in a terminal state")

	// ErrUnknownAction indicates a review action outside the defined set.
	ErrUnknownAction = errors.New("unknown review action")

	// ErrDisabled indicates the moderation engine is disabled by configuration.
	ErrDisabled = errors.New("moderation disabled")
)

// MissingFieldError builds a validation error naming the missing field.
func MissingFieldError(field string) error {
	return fmt.Errorf("%w: missing required field %q", ErrValidation, field)
}
