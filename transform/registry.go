package transform

import (
	"encoding/json"
	"time"
)

// Input is what a strategy operates on.
type Input struct {
	Payload   map[string]any
	Headers   map[string]string
	Timestamp time.Time
}

// strategy executes one transformation kind. It must not modify in.Payload.
type strategy interface {
	apply(cfg json.RawMessage, in Input) (map[string]any, error)
	validate(cfg json.RawMessage) error
}

type unsupported Kind

func (u unsupported) apply(json.RawMessage, Input) (map[string]any, error) {
	return nil, &UnsupportedKindError{Kind: Kind(u)}
}

func (u unsupported) validate(json.RawMessage) error {
	return &UnsupportedKindError{Kind: Kind(u)}
}

// registry is closed: adding a kind means adding a case here.
var registry = map[Kind]strategy{
	KindFieldMapping: fieldMapping{},
	KindTemplate:     template{},
	KindJavaScript:   unsupported(KindJavaScript),
	KindJQ:           unsupported(KindJQ),
}

func lookup(k Kind) strategy {
	if s, ok := registry[k]; ok {
		return s
	}
	return unsupported(k)
}

// Run executes a single transformation against in, ignoring its Active flag
// and conditions.
func Run(t *Transformation, in Input) (map[string]any, error) {
	out, err := lookup(t.Kind).apply(t.Config, in)
	if err != nil {
		return nil, &Error{TransformationID: t.ID, Kind: t.Kind, Err: err}
	}
	return out, nil
}

// Validate checks that t's configuration parses for its kind.
func Validate(t *Transformation) error {
	if err := lookup(t.Kind).validate(t.Config); err != nil {
		return &Error{TransformationID: t.ID, Kind: t.Kind, Err: err}
	}
	return nil
}
