// Package id provides prefixed, K-sortable identifiers for every hookgate
// entity. An ID renders as "prefix_suffix" (a TypeID), e.g.
// "evt_01h455vb4pex5vsknk084sn02q".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the entity kind carried by an ID.
type Prefix string

const (
	PrefixProject        Prefix = "proj"
	PrefixEndpoint       Prefix = "ep"
	PrefixEvent          Prefix = "evt"
	PrefixDelivery       Prefix = "del"
	PrefixRule           Prefix = "rule"
	PrefixTransformation Prefix = "xform"
	PrefixDLQ            Prefix = "dlq"
)

// ID is a prefix-qualified TypeID. The zero value is Nil.
//
//nolint:recvcheck // pointer receivers only where the value is replaced.
type ID struct {
	tid   typeid.TypeID
	valid bool
}

// Nil is the empty ID.
var Nil ID

// New returns a fresh ID. An invalid prefix is a programming error and panics.
func New(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate with prefix %q: %v", p, err))
	}
	return ID{tid: tid, valid: true}
}

// Parse accepts any well-formed TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, valid: true}, nil
}

// ParseWithPrefix parses s and rejects it unless its prefix is want.
func ParseWithPrefix(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return v, nil
}

func NewProjectID() ID        { return New(PrefixProject) }
func NewEndpointID() ID       { return New(PrefixEndpoint) }
func NewEventID() ID          { return New(PrefixEvent) }
func NewDeliveryID() ID       { return New(PrefixDelivery) }
func NewRuleID() ID           { return New(PrefixRule) }
func NewTransformationID() ID { return New(PrefixTransformation) }
func NewDLQID() ID            { return New(PrefixDLQ) }

func ParseProjectID(s string) (ID, error)  { return ParseWithPrefix(s, PrefixProject) }
func ParseEndpointID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEndpoint) }
func ParseEventID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixEvent) }
func ParseDeliveryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDelivery) }
func ParseRuleID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixRule) }
func ParseDLQID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixDLQ) }

func ParseTransformationID(s string) (ID, error) {
	return ParseWithPrefix(s, PrefixTransformation)
}

// ParseOptional is Parse that maps "" to Nil instead of failing. Stores use
// it for nullable references such as Event.ReplayOf.
func ParseOptional(s string) (ID, error) {
	if s == "" {
		return Nil, nil
	}
	return Parse(s)
}

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the entity prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields Nil.
func (i *ID) UnmarshalText(b []byte) error {
	v, err := ParseOptional(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value implements driver.Valuer; Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
