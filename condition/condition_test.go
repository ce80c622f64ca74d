package condition

import "testing"

func TestEvaluate(t *testing.T) {
	ctx := Context{
		Payload: map[string]any{
			"type":   "order.created",
			"amount": 150.0,
			"count":  3,
			"user":   map[string]any{"email": "ada@example.com", "tier": "gold"},
			"tags":   []any{"vip"},
		},
		Headers: map[string]string{"X-Source": "shopify"},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals", Condition{Field: "type", Operator: OpEquals, Value: "order.created"}, true},
		{"equals symbol", Condition{Field: "type", Operator: OpEqualsSym, Value: "order.updated"}, false},
		{"equals numeric kinds", Condition{Field: "count", Operator: OpEquals, Value: 3.0}, true},
		{"equals string vs number", Condition{Field: "count", Operator: OpEquals, Value: "3"}, false},
		{"not equals", Condition{Field: "type", Operator: OpNotEquals, Value: "x"}, true},
		{"not equals absent", Condition{Field: "missing", Operator: OpNotEqualSym, Value: "x"}, true},
		{"greater", Condition{Field: "amount", Operator: OpGreater, Value: 100}, true},
		{"less eq", Condition{Field: "amount", Operator: OpLessEq, Value: 150}, true},
		{"numeric on string", Condition{Field: "type", Operator: OpGreater, Value: 1}, false},
		{"numeric with string operand", Condition{Field: "amount", Operator: OpLess, Value: "200"}, false},
		{"contains", Condition{Field: "user.email", Operator: OpContains, Value: "@example"}, true},
		{"starts with", Condition{Field: "type", Operator: OpStartsWith, Value: "order."}, true},
		{"ends with", Condition{Field: "type", Operator: OpEndsWith, Value: ".deleted"}, false},
		{"contains on number", Condition{Field: "amount", Operator: OpContains, Value: "1"}, false},
		{"in", Condition{Field: "user.tier", Operator: OpIn, Value: []any{"gold", "silver"}}, true},
		{"in non array", Condition{Field: "user.tier", Operator: OpIn, Value: "gold"}, false},
		{"not in", Condition{Field: "user.tier", Operator: OpNotIn, Value: []string{"bronze"}}, true},
		{"not in non array", Condition{Field: "user.tier", Operator: OpNotIn, Value: "bronze"}, false},
		{"exists", Condition{Field: "tags.0", Operator: OpExists}, true},
		{"not exists", Condition{Field: "user.phone", Operator: OpNotExists}, true},
		{"header lookup", Condition{Field: "x-source", Operator: OpEquals, Value: "shopify", Source: SourceHeaders}, true},
		{"unknown operator", Condition{Field: "type", Operator: "matches", Value: ".*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.cond, ctx); got != tt.want {
				t.Fatalf("Evaluate(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchAll(t *testing.T) {
	ctx := Context{Payload: map[string]any{"a": 1.0, "b": "x"}}

	if !MatchAll(nil, ctx) {
		t.Fatal("empty condition list should match")
	}

	conds := []Condition{
		{Field: "a", Operator: OpEquals, Value: 1},
		{Field: "b", Operator: OpEquals, Value: "x"},
	}
	if !MatchAll(conds, ctx) {
		t.Fatal("expected all conditions to match")
	}

	conds = append(conds, Condition{Field: "c", Operator: OpExists})
	if MatchAll(conds, ctx) {
		t.Fatal("expected AND semantics to reject a failing condition")
	}
}
