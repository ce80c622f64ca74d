package delivery

import (
	"fmt"

	"github.com/xraph/hookgate/id"
)

// TransportError is a failure to get any HTTP response from a destination.
type TransportError struct {
	Destination string
	Timeout     bool
	Err         error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("delivery: %s: timed out: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("delivery: %s: %v", e.Destination, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DestinationError is a non-2xx answer.
type DestinationError struct {
	Destination string
	StatusCode  int
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("delivery: %s: unexpected status %d", e.Destination, e.StatusCode)
}

// PermanentFailure is the reason handed to escalation when an event reaches
// permanently_failed.
type PermanentFailure struct {
	EventID  id.ID
	Attempts int

	// Exhausted is true when the retry budget ran out, false when the
	// exception budget did.
	Exhausted bool

	// Last is the failure of the final round.
	Last error
}

func (e *PermanentFailure) Error() string {
	what := "exception budget exhausted"
	if e.Exhausted {
		what = "max retries exhausted"
	}
	if e.Last == nil {
		return fmt.Sprintf("event %s: %s after %d attempts", e.EventID, what, e.Attempts)
	}
	return fmt.Sprintf("event %s: %s after %d attempts: %v", e.EventID, what, e.Attempts, e.Last)
}

func (e *PermanentFailure) Unwrap() error { return e.Last }
