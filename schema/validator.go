// Package schema validates inbound payloads against JSON Schema documents
// attached to endpoints.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator compiles schemas once and caches them by content hash.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks data against schema. An empty schema accepts everything.
func (v *Validator) Validate(schema json.RawMessage, data any) error {
	if len(bytes.TrimSpace(schema)) == 0 {
		return nil
	}
	compiled, err := v.compile(schema)
	if err != nil {
		return err
	}
	return compiled.Validate(data)
}

// Check compiles schema without validating anything, so a broken schema is
// rejected when the endpoint is saved rather than on the first event.
func (v *Validator) Check(schema json.RawMessage) error {
	if len(bytes.TrimSpace(schema)) == 0 {
		return nil
	}
	_, err := v.compile(schema)
	return err
}

func (v *Validator) compile(schema json.RawMessage) (*jsonschema.Schema, error) {
	sum := sha256.Sum256(schema)
	key := hex.EncodeToString(sum[:])

	v.mu.RLock()
	cached, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}

	url := "hookgate://schema/" + key + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}

	v.mu.Lock()
	v.cache[key] = compiled
	v.mu.Unlock()
	return compiled, nil
}
