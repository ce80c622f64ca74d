package signature_test

import (
	"testing"

	"github.com/xraph/hookgate/signature"
)

func TestSignKnownVectors(t *testing.T) {
	tests := []struct {
		payload string
		secret  string
		want    string
	}{
		{
			payload: `{"event":"test"}`,
			secret:  "whsec_testsecret123",
			want:    "3b013bf19b496831952e1c87af010c64707d435d258b071f1feaa48b26cdcd0b",
		},
		{
			payload: "The quick brown fox jumps over the lazy dog",
			secret:  "key",
			want:    "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		},
	}
	for _, tt := range tests {
		got := signature.Sign([]byte(tt.payload), tt.secret)
		if got != tt.want {
			t.Errorf("Sign(%q) = %s, want %s", tt.payload, got, tt.want)
		}
		if again := signature.Sign([]byte(tt.payload), tt.secret); again != got {
			t.Errorf("Sign is not deterministic: %s vs %s", got, again)
		}
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"invoice_id":"inv_1","amount":9900}`)
	secret := "whsec_roundtrip"
	sig := signature.Sign(payload, secret)

	if !signature.Verify(payload, sig, secret) {
		t.Fatal("valid signature rejected")
	}
	if !signature.Verify(payload, "sha256="+sig, secret) {
		t.Fatal("prefixed signature rejected")
	}
	if signature.Verify(payload, sig, "whsec_other") {
		t.Fatal("signature accepted with wrong secret")
	}
	if signature.Verify([]byte(`{"invoice_id":"inv_2","amount":9900}`), sig, secret) {
		t.Fatal("signature accepted for tampered payload")
	}
}

func TestVerifyRejectsSingleBitFlip(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	secret := "whsec_testsecret123"
	sig := []byte(signature.Sign(payload, secret))

	for i := range sig {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		flipped[i] ^= 0x01
		if signature.Verify(payload, string(flipped), secret) {
			t.Fatalf("flipped bit at byte %d still verified", i)
		}
	}
}
