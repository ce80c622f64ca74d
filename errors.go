package hookgate

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by gateway operations and stores.
var (
	// ErrNoStore is returned when a Gateway is created without a store.
	ErrNoStore = errors.New("hookgate: store is required")

	// ErrProjectNotFound is returned when a project cannot be found.
	ErrProjectNotFound = errors.New("hookgate: project not found")

	// ErrEndpointNotFound is returned when an endpoint cannot be found.
	ErrEndpointNotFound = errors.New("hookgate: endpoint not found")

	// ErrEventNotFound is returned when an event cannot be found.
	ErrEventNotFound = errors.New("hookgate: event not found")

	// ErrRuleNotFound is returned when a routing rule cannot be found.
	ErrRuleNotFound = errors.New("hookgate: routing rule not found")

	// ErrTransformationNotFound is returned when a transformation cannot be found.
	ErrTransformationNotFound = errors.New("hookgate: transformation not found")

	// ErrDLQNotFound is returned when a DLQ entry cannot be found.
	ErrDLQNotFound = errors.New("hookgate: dlq entry not found")

	// ErrEndpointInactive is returned when ingesting on a disabled endpoint.
	ErrEndpointInactive = errors.New("hookgate: endpoint is inactive")

	// ErrEventNotReplayable is returned when replaying an event whose payload
	// cannot be recovered.
	ErrEventNotReplayable = errors.New("hookgate: event cannot be replayed")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("hookgate: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("hookgate: migration failed")
)

// ValidationError reports an inbound payload or request that failed
// validation. No event is created.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "hookgate: invalid request: " + e.Message
	}
	return fmt.Sprintf("hookgate: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthError reports a rejected inbound call.
type AuthError struct {
	Reason string

	// RateLimited is set when the caller exceeded the project's rate limit.
	RateLimited bool
}

func (e *AuthError) Error() string {
	if e.RateLimited {
		return "hookgate: rate limit exceeded"
	}
	return "hookgate: unauthorized: " + e.Reason
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrEndpointNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrTransformationNotFound) ||
		errors.Is(err, ErrDLQNotFound)
}
