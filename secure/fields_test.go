package secure

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldsRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	doc := map[string]any{
		"name":  "Ada",
		"email": "ada@example.com",
		"contacts": []any{
			map[string]any{"phone": "+15551234567", "label": "home"},
		},
		"tokens": map[string]any{"token": "tok_123", "count": 2.0},
	}

	sealed, err := c.EncryptFields(doc)
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	if sealed["name"] != "Ada" {
		t.Fatalf("non-sensitive field changed: %v", sealed["name"])
	}
	email, _ := sealed["email"].(string)
	if !strings.HasPrefix(email, FieldMarker) {
		t.Fatalf("email not sealed: %q", email)
	}
	phone := sealed["contacts"].([]any)[0].(map[string]any)["phone"].(string)
	if !strings.HasPrefix(phone, FieldMarker) {
		t.Fatalf("nested phone not sealed: %q", phone)
	}
	if doc["email"] != "ada@example.com" {
		t.Fatal("input document was mutated")
	}

	opened, err := c.DecryptFields(sealed)
	if err != nil {
		t.Fatalf("DecryptFields: %v", err)
	}
	if opened["email"] != "ada@example.com" {
		t.Fatalf("email = %v", opened["email"])
	}
	if got := opened["tokens"].(map[string]any)["token"]; got != "tok_123" {
		t.Fatalf("token = %v", got)
	}
}

func TestDecryptFieldsToleratesPlainValues(t *testing.T) {
	c := newTestCipher(t)
	doc := map[string]any{"password": "plain-text", "secret": 42.0}

	out, err := c.DecryptFields(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["password"] != "plain-text" {
		t.Fatalf("plain value changed: %v", out["password"])
	}
	if out["secret"] != 42.0 {
		t.Fatalf("non-string value changed: %v", out["secret"])
	}
}

func TestDecryptFieldsRejectsCorruptMarkedValue(t *testing.T) {
	c := newTestCipher(t)
	doc := map[string]any{"ssn": FieldMarker + "garbage"}

	_, err := c.DecryptFields(doc)
	if !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
	var ce *CiphertextError
	if !errors.As(err, &ce) || ce.Field != "ssn" {
		t.Fatalf("expected CiphertextError for field ssn, got %v", err)
	}
}

func TestWithFieldsOverridesSet(t *testing.T) {
	c := newTestCipher(t).WithFields([]string{"iban"})
	out, err := c.EncryptFields(map[string]any{"iban": "DE89", "email": "a@b.c"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out["iban"].(string), FieldMarker) {
		t.Fatal("custom field not sealed")
	}
	if out["email"] != "a@b.c" {
		t.Fatal("default field sealed despite override")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"somebody@example.com", "so****************om"},
		{"abc", "***"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MaskString(tt.in); got != tt.want {
			t.Errorf("MaskString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	masked := Mask(map[string]any{
		"email": "somebody@example.com",
		"pin":   "1234",
		"user":  map[string]any{"token": "abc"},
	}, nil)
	if masked["email"] != "so****************om" {
		t.Fatalf("email = %v", masked["email"])
	}
	if masked["pin"] != "1234" {
		t.Fatalf("non-sensitive field masked: %v", masked["pin"])
	}
	if got := masked["user"].(map[string]any)["token"]; got != "***" {
		t.Fatalf("nested token = %v", got)
	}
}

func TestDecryptFieldsIgnoresFieldSet(t *testing.T) {
	base := newTestCipher(t)
	sealed, err := base.WithFields([]string{"iban"}).EncryptFields(map[string]any{"iban": "DE89"})
	if err != nil {
		t.Fatal(err)
	}

	opened, err := base.DecryptFields(sealed)
	if err != nil {
		t.Fatalf("DecryptFields: %v", err)
	}
	if opened["iban"] != "DE89" {
		t.Fatalf("iban = %v", opened["iban"])
	}
}

func TestEncryptFieldsSealsMarkerLookalikes(t *testing.T) {
	c := newTestCipher(t)
	doc := map[string]any{
		"email": FieldMarker + "hello",
		"note":  FieldMarker + "hello",
		"memo":  rawMarker + "kept",
		"label": "enc:other",
	}

	sealed, err := c.EncryptFields(doc)
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}
	if sealed["email"] == doc["email"] {
		t.Fatal("sensitive value starting with the marker was stored in plain text")
	}
	if sealed["note"] != rawMarker+FieldMarker+"hello" {
		t.Fatalf("non-sensitive lookalike not escaped: %v", sealed["note"])
	}

	opened, err := c.DecryptFields(sealed)
	if err != nil {
		t.Fatalf("DecryptFields: %v", err)
	}
	for k, want := range doc {
		if opened[k] != want {
			t.Fatalf("%s = %v, want %v", k, opened[k], want)
		}
	}
}
