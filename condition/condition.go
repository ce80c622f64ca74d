// Package condition evaluates structured predicates against an inbound
// event. Routing rules and transformations both gate on lists of conditions.
//
// Evaluation never fails: a malformed condition, an unknown operator or an
// operand of the wrong type simply does not match.
package condition

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/xraph/hookgate/internal/dotpath"
)

// Operator names a comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpEqualsSym   Operator = "="
	OpNotEquals   Operator = "not_equals"
	OpNotEqualSym Operator = "!="
	OpGreater     Operator = ">"
	OpLess        Operator = "<"
	OpGreaterEq   Operator = ">="
	OpLessEq      Operator = "<="
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
)

// Source selects the part of the context a field path is resolved against.
type Source string

const (
	SourcePayload Source = "payload"
	SourceHeaders Source = "headers"
)

// Condition is a single predicate.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Source   Source   `json:"source,omitempty"`
}

// Context is what conditions are evaluated against.
type Context struct {
	Payload   map[string]any
	Headers   map[string]string
	Timestamp time.Time
}

// NewContext builds a Context stamped with the current UTC time.
func NewContext(payload map[string]any, headers map[string]string) Context {
	return Context{Payload: payload, Headers: headers, Timestamp: time.Now().UTC()}
}

// MatchAll reports whether every condition holds. An empty list matches.
func MatchAll(conds []Condition, ctx Context) bool {
	for _, c := range conds {
		if !Evaluate(c, ctx) {
			return false
		}
	}
	return true
}

// Evaluate reports whether c holds for ctx.
//
// Values are compared without type coercion: numbers of any Go numeric kind
// compare by value, but the JSON string "42" never equals the number 42 and
// ordering operators need numbers on both sides.
func Evaluate(c Condition, ctx Context) bool {
	actual, present := resolve(c, ctx)

	switch c.Operator {
	case OpExists:
		return present
	case OpNotExists:
		return !present
	case OpEquals, OpEqualsSym:
		return present && equal(actual, c.Value)
	case OpNotEquals, OpNotEqualSym:
		return !present || !equal(actual, c.Value)
	case OpGreater, OpLess, OpGreaterEq, OpLessEq:
		return present && compare(c.Operator, actual, c.Value)
	case OpContains, OpStartsWith, OpEndsWith:
		return present && matchString(c.Operator, actual, c.Value)
	case OpIn:
		items, ok := asList(c.Value)
		return ok && present && contains(items, actual)
	case OpNotIn:
		items, ok := asList(c.Value)
		return ok && (!present || !contains(items, actual))
	default:
		return false
	}
}

func resolve(c Condition, ctx Context) (any, bool) {
	if c.Source == SourceHeaders {
		want := strings.ToLower(c.Field)
		for k, v := range ctx.Headers {
			if strings.ToLower(k) == want {
				return v, true
			}
		}
		return nil, false
	}
	return dotpath.Get(ctx.Payload, c.Field)
}

func equal(a, b any) bool {
	fa, aNum := Number(a)
	fb, bNum := Number(b)
	if aNum && bNum {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func compare(op Operator, a, b any) bool {
	fa, ok := Number(a)
	if !ok {
		return false
	}
	fb, ok := Number(b)
	if !ok {
		return false
	}
	switch op {
	case OpGreater:
		return fa > fb
	case OpLess:
		return fa < fb
	case OpGreaterEq:
		return fa >= fb
	default:
		return fa <= fb
	}
}

func matchString(op Operator, a, b any) bool {
	s, ok := a.(string)
	if !ok {
		return false
	}
	sub, ok := b.(string)
	if !ok {
		return false
	}
	switch op {
	case OpContains:
		return strings.Contains(s, sub)
	case OpStartsWith:
		return strings.HasPrefix(s, sub)
	default:
		return strings.HasSuffix(s, sub)
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func contains(items []any, v any) bool {
	for _, item := range items {
		if equal(item, v) {
			return true
		}
	}
	return false
}

// Number converts any Go or JSON numeric value to float64. Strings are not
// numbers here.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
