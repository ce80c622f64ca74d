package transform

import (
	"encoding/json"
	"reflect"
	"time"
)

// FixtureResult is the outcome of one fixture run.
type FixtureResult struct {
	Name   string         `json:"name"`
	Passed bool           `json:"passed"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// RunFixtures executes t against each of its fixtures. Conditions are
// honoured, so a fixture whose input does not satisfy them expects its input
// back unchanged.
func RunFixtures(t *Transformation, now time.Time) []FixtureResult {
	results := make([]FixtureResult, 0, len(t.Fixtures))
	candidate := *t
	candidate.Active = true

	for _, f := range t.Fixtures {
		res := FixtureResult{Name: f.Name}
		var stepErr error
		out := ApplyAll([]*Transformation{&candidate}, f.Input, f.Headers, now, func(_ *Transformation, err error) {
			stepErr = err
		})
		if stepErr != nil {
			res.Error = stepErr.Error()
		} else {
			res.Output = out
			res.Passed = sameJSON(out, f.Expected)
		}
		results = append(results, res)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []FixtureResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// sameJSON compares documents after a JSON round trip so that int64 produced
// by to_int equals the float64 decoded from a fixture.
func sameJSON(a, b map[string]any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v map[string]any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
