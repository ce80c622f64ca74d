package transform

import (
	"errors"
	"fmt"

	"github.com/xraph/hookgate/id"
)

// ErrUnsupportedKind is matched by UnsupportedKindError.
var ErrUnsupportedKind = errors.New("transform: unsupported kind")

// UnsupportedKindError is returned for kinds that are recognised but not
// executable, and for unknown kinds.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("transform: kind %q is not supported", e.Kind)
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// Error wraps a failure of a single transformation step.
type Error struct {
	TransformationID id.ID
	Kind             Kind
	Err              error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s (%s): %v", e.TransformationID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
