package secure

import (
	"errors"
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short"), nil); err == nil {
		t.Fatal("expected error for short master key")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	in := map[string]any{"order": "ORD-1", "amount": 12.5}

	sealed, err := c.EncryptDocument(in)
	if err != nil {
		t.Fatalf("EncryptDocument: %v", err)
	}
	if strings.Contains(sealed, "ORD-1") {
		t.Fatal("ciphertext leaks plaintext")
	}

	var out map[string]any
	if err := c.DecryptDocument(sealed, &out); err != nil {
		t.Fatalf("DecryptDocument: %v", err)
	}
	if out["order"] != "ORD-1" || out["amount"] != 12.5 {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestDecryptDocumentGarbled(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.EncryptDocument(map[string]any{"a": 1})
	if err != nil {
		t.Fatal(err)
	}

	inputs := map[string]string{
		"not base64": "%%%",
		"too short":  "AAAA",
		"tampered":   flipChar(sealed, len(sealed)/2),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			var out map[string]any
			err := c.DecryptDocument(in, &out)
			if !errors.Is(err, ErrInvalidCiphertext) {
				t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
			}
			var ce *CiphertextError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CiphertextError, got %T", err)
			}
		})
	}
}

func TestDifferentKeysCannotOpen(t *testing.T) {
	a := newTestCipher(t)
	b, err := New([]byte("another-master-key-of-32-bytes!!"), nil)
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := a.EncryptDocument("x")
	if err != nil {
		t.Fatal(err)
	}
	var out string
	if err := b.DecryptDocument(sealed, &out); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func flipChar(s string, i int) string {
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
