package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/xraph/hookgate/schema"
)

var orderSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"amount":   {"type": "number"},
		"currency": {"type": "string"}
	},
	"required": ["amount", "currency"]
}`)

func TestValidateEmptySchema(t *testing.T) {
	v := schema.NewValidator()
	if err := v.Validate(nil, map[string]any{"anything": true}); err != nil {
		t.Fatalf("empty schema should accept, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	v := schema.NewValidator()

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"amount": 10.5, "currency": "USD"}, false},
		{"missing required", map[string]any{"amount": 10.5}, true},
		{"wrong type", map[string]any{"amount": "ten", "currency": "USD"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(orderSchema, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckRejectsBrokenSchema(t *testing.T) {
	v := schema.NewValidator()
	if err := v.Check(json.RawMessage(`{"type": 12}`)); err == nil {
		t.Fatal("expected compile error for invalid schema")
	}
	if err := v.Check(json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected parse error")
	}
	if err := v.Check(orderSchema); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
}
