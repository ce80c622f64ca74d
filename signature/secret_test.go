package signature_test

import (
	"strings"
	"testing"

	"github.com/xraph/hookgate/signature"
)

func TestGenerateSecret(t *testing.T) {
	a := signature.GenerateSecret()
	b := signature.GenerateSecret()

	if !strings.HasPrefix(a, signature.SecretPrefix) {
		t.Fatalf("expected prefix %q, got %q", signature.SecretPrefix, a)
	}
	if len(a) != len(signature.SecretPrefix)+64 {
		t.Fatalf("expected length %d, got %d", len(signature.SecretPrefix)+64, len(a))
	}
	if a == b {
		t.Fatal("two generated secrets are identical")
	}
}
