// Package secure provides reversible at-rest encryption for event payloads
// and masking of sensitive values for logs.
//
// Whole documents are sealed with AES-256-GCM under a key derived from the
// configured master key with HKDF-SHA256. Field-level encryption seals only
// string values whose key names look sensitive; each sealed value carries a
// marker so decryption can tell "never encrypted" apart from "corrupted".
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// FieldMarker prefixes every individually encrypted field value.
const FieldMarker = "enc:v1:"

const hkdfInfo = "hookgate payload encryption v1"

// DefaultSensitiveFields is the key-name heuristic used when a project does
// not configure its own list.
var DefaultSensitiveFields = []string{
	"email", "phone", "ssn", "credit_card", "password",
	"api_key", "token", "secret", "private_key",
}

// ErrInvalidCiphertext is matched by every decryption failure.
var ErrInvalidCiphertext = errors.New("secure: invalid ciphertext")

// CiphertextError reports data that claims to be ciphertext but cannot be
// opened. Field is empty for whole-document failures.
type CiphertextError struct {
	Field  string
	Reason string
}

func (e *CiphertextError) Error() string {
	if e.Field == "" {
		return "secure: invalid ciphertext: " + e.Reason
	}
	return "secure: invalid ciphertext in field " + e.Field + ": " + e.Reason
}

// Unwrap lets errors.Is match ErrInvalidCiphertext.
func (e *CiphertextError) Unwrap() error { return ErrInvalidCiphertext }

// Cipher seals and opens payloads. It is safe for concurrent use.
type Cipher struct {
	aead   cipher.AEAD
	fields fieldSet
}

// New derives an AES-256 key from masterKey. fields overrides the sensitive
// field set; nil selects DefaultSensitiveFields.
func New(masterKey []byte, fields []string) (*Cipher, error) {
	if len(masterKey) < 16 {
		return nil, fmt.Errorf("secure: master key must be at least 16 bytes, got %d", len(masterKey))
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("secure: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secure: aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secure: gcm: %w", err)
	}
	return &Cipher{aead: aead, fields: newFieldSet(fields)}, nil
}

// WithFields returns a Cipher sharing the key but matching a different
// sensitive field set. An empty list keeps the current set.
func (c *Cipher) WithFields(fields []string) *Cipher {
	if len(fields) == 0 {
		return c
	}
	return &Cipher{aead: c.aead, fields: newFieldSet(fields)}
}

// EncryptDocument seals the JSON encoding of v.
func (c *Cipher) EncryptDocument(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("secure: marshal document: %w", err)
	}
	return c.seal(plain)
}

// DecryptDocument opens s and decodes the JSON inside into out.
func (c *Cipher) DecryptDocument(s string, out any) error {
	plain, err := c.open(s)
	if err != nil {
		return &CiphertextError{Reason: err.Error()}
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return &CiphertextError{Reason: "decoded document is not JSON"}
	}
	return nil
}

func (c *Cipher) seal(plain []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secure: nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (c *Cipher) open(s string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("not base64")
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return nil, errors.New("too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, errors.New("authentication failed")
	}
	return plain, nil
}

type fieldSet map[string]struct{}

func newFieldSet(fields []string) fieldSet {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	set := make(fieldSet, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	return set
}

func (s fieldSet) has(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}
