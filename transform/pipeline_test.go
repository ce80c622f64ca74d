package transform

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/xraph/hookgate/condition"
	"github.com/xraph/hookgate/id"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func xform(kind Kind, priority int, cfg string) *Transformation {
	return &Transformation{
		ID:       id.NewTransformationID(),
		Kind:     kind,
		Priority: priority,
		Active:   true,
		Config:   json.RawMessage(cfg),
	}
}

func TestFieldMapping(t *testing.T) {
	tr := xform(KindFieldMapping, 0, `{"mappings":[
		{"source":"user.email","target":"customer.email","transform":"lowercase"},
		{"source":"amount","target":"total","transform":"to_int"},
		{"source":"missing","target":"currency","default":"EUR"},
		{"source":"also_missing","target":"skipped"}
	]}`)

	in := map[string]any{"user": map[string]any{"email": "ADA@Example.com"}, "amount": "42"}
	out, err := Run(tr, Input{Payload: in, Timestamp: fixedNow})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"customer": map[string]any{"email": "ada@example.com"},
		"total":    int64(42),
		"currency": "EUR",
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v, want %#v", out, want)
	}
	if _, ok := in["customer"]; ok {
		t.Fatal("input payload was mutated")
	}
}

func TestFieldMappingMergeWithOriginal(t *testing.T) {
	tr := xform(KindFieldMapping, 0, `{"merge_with_original":true,"mappings":[
		{"source":"id","target":"order_id"}
	]}`)

	out, err := Run(tr, Input{Payload: map[string]any{"id": "o1", "keep": true}})
	if err != nil {
		t.Fatal(err)
	}
	if out["order_id"] != "o1" || out["keep"] != true || out["id"] != "o1" {
		t.Fatalf("merge failed: %v", out)
	}
}

func TestFieldTransforms(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"uppercase", "abc", "ABC"},
		{"trim", "  x ", "x"},
		{"to_string", 12.5, "12.5"},
		{"to_float", "3.25", 3.25},
		{"to_bool", "true", true},
		{"md5", "hello", "5d41402abc4b2a76b9719d911017c592"},
		{"sha1", "hello", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"base64_encode", "hi", "aGk="},
		{"base64_decode", "aGk=", "hi"},
		{"url_encode", "a b&c", "a+b%26c"},
		{"url_decode", "a+b%26c", "a b&c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fieldTransforms[tt.name](tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFieldTransformConversionFailure(t *testing.T) {
	tr := xform(KindFieldMapping, 0, `{"mappings":[{"source":"n","target":"n","transform":"to_int"}]}`)
	_, err := Run(tr, Input{Payload: map[string]any{"n": "not a number"}})
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestTemplate(t *testing.T) {
	tr := xform(KindTemplate, 0, `{"template":"{\"text\":\"Order {{order.id}} by {{payload.user}}\",\"amount\":{{order.amount}},\"src\":\"{{headers.X-Source}}\",\"at\":\"{{timestamp}}\"}"}`)

	in := map[string]any{
		"order": map[string]any{"id": "o-\"1\"", "amount": 9.5},
		"user":  "ada",
	}
	out, err := Run(tr, Input{Payload: in, Headers: map[string]string{"X-Source": "shop"}, Timestamp: fixedNow})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"text":   `Order o-"1" by ada`,
		"amount": 9.5,
		"src":    "shop",
		"at":     "2024-05-01T12:00:00Z",
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v, want %#v", out, want)
	}
}

func TestTemplateInvalidJSONIsNoop(t *testing.T) {
	in := map[string]any{"a": 1.0}
	for name, tmpl := range map[string]string{
		"unparseable": `{"template":"not json {{a}}"}`,
		"array":       `{"template":"[{{a}}]"}`,
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Run(xform(KindTemplate, 0, tmpl), Input{Payload: in})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(out, in) {
				t.Fatalf("expected unchanged payload, got %v", out)
			}
		})
	}
}

func TestUnsupportedKinds(t *testing.T) {
	for _, k := range []Kind{KindJavaScript, KindJQ, "lua"} {
		_, err := Run(xform(k, 0, `{}`), Input{})
		if !errors.Is(err, ErrUnsupportedKind) {
			t.Fatalf("%s: expected ErrUnsupportedKind, got %v", k, err)
		}
		var uk *UnsupportedKindError
		if !errors.As(err, &uk) || uk.Kind != k {
			t.Fatalf("%s: expected UnsupportedKindError, got %v", k, err)
		}
	}
}

func TestApplyAllOrderAndSkips(t *testing.T) {
	second := xform(KindFieldMapping, 20, `{"merge_with_original":true,"mappings":[{"source":"step","target":"seen_step"}]}`)
	broken := xform(KindJavaScript, 15, `{}`)
	first := xform(KindFieldMapping, 10, `{"merge_with_original":true,"mappings":[{"source":"missing","target":"step","default":"one"}]}`)
	inactive := xform(KindFieldMapping, 0, `{"mappings":[{"source":"x","target":"y"}]}`)
	inactive.Active = false
	gated := xform(KindFieldMapping, 5, `{"mappings":[{"source":"x","target":"y"}]}`)
	gated.Conditions = []condition.Condition{{Field: "kind", Operator: condition.OpEquals, Value: "never"}}

	var skipped []*Transformation
	out := ApplyAll([]*Transformation{second, broken, first, inactive, gated},
		map[string]any{"x": 1.0}, nil, fixedNow,
		func(tr *Transformation, _ error) { skipped = append(skipped, tr) })

	if out["seen_step"] != "one" {
		t.Fatalf("second step did not see first step's output: %v", out)
	}
	if _, ok := out["y"]; ok {
		t.Fatal("inactive or gated transformation ran")
	}
	if len(skipped) != 1 || skipped[0] != broken {
		t.Fatalf("expected only the javascript step skipped, got %d", len(skipped))
	}
}

func TestRunFixtures(t *testing.T) {
	tr := xform(KindFieldMapping, 0, `{"mappings":[{"source":"n","target":"count","transform":"to_int"}]}`)
	tr.Active = false
	tr.Fixtures = []Fixture{
		{Name: "ok", Input: map[string]any{"n": "7"}, Expected: map[string]any{"count": 7.0}},
		{Name: "wrong", Input: map[string]any{"n": "7"}, Expected: map[string]any{"count": 8.0}},
		{Name: "error", Input: map[string]any{"n": "x"}, Expected: map[string]any{}},
	}

	res := RunFixtures(tr, fixedNow)
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if !res[0].Passed || res[1].Passed || res[2].Passed {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[2].Error == "" {
		t.Fatal("expected error text for failing step")
	}
	if AllPassed(res) {
		t.Fatal("AllPassed should be false")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(xform(KindFieldMapping, 0, `{"mappings":[{"source":"a"}]}`)); err == nil {
		t.Fatal("expected error for mapping without target")
	}
	if err := Validate(xform(KindFieldMapping, 0, `{"mappings":[{"source":"a","target":"b","transform":"rot13"}]}`)); err == nil {
		t.Fatal("expected error for unknown field transform")
	}
	if err := Validate(xform(KindTemplate, 0, `{"template":""}`)); err == nil {
		t.Fatal("expected error for empty template")
	}
	if err := Validate(xform(KindTemplate, 0, `{"template":"{}"}`)); err != nil {
		t.Fatal(err)
	}
}
