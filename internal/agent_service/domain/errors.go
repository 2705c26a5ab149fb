package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration means the generative text backend was unreachable or errored.
	ErrGeneration = errors.New("script generation failed")
	// ErrResourceCreation is matched by every *ResourceCreationError.
	ErrResourceCreation = errors.New("resource creation failed")
	// ErrSignatureVerification means a payment callback failed authentication.
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	// ErrPersistence means the agent record store rejected a write.
	ErrPersistence = errors.New("persistence failed")
	// ErrValidation covers caller input problems (missing requester id, oversized metadata).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrUnsupportedRequestVersion is returned when a serialized request carries an unknown schema version.
	ErrUnsupportedRequestVersion = errors.New("unsupported provisioning request version")
)

// ResourceCreationError reports which provisioning step failed and the
// platform's HTTP status (0 when the request never got a response).
type ResourceCreationError struct {
	Step       ProvisionStep
	StatusCode int
	Err        error
}

func (e *ResourceCreationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: step %s returned status %d: %v", ErrResourceCreation, e.Step, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: step %s: %v", ErrResourceCreation, e.Step, e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

func (e *ResourceCreationError) Is(target error) bool { return target == ErrResourceCreation }

// RunError is returned by the orchestrator; State is the last state reached
// before the failure.
type RunError struct {
	RunID string
	State RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("provisioning run %s failed after %s: %v", e.RunID, e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
