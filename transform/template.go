package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xraph/hookgate/internal/dotpath"
)

// TemplateConfig configures the template kind. Every {{path}} in Template is
// replaced by the value at path, then the result is parsed as JSON.
//
// Paths resolve against the payload's top-level fields, plus "payload",
// "headers" and "timestamp". Strings are inserted JSON-escaped without
// quotes, so placeholders belong inside string literals for text values and
// outside them for numbers, booleans, objects and arrays. A missing path
// renders as an empty string.
type TemplateConfig struct {
	Template string `json:"template"`
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

type template struct{}

func (template) parse(cfg json.RawMessage) (*TemplateConfig, error) {
	var c TemplateConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("template config: %w", err)
	}
	if strings.TrimSpace(c.Template) == "" {
		return nil, errors.New("template config: template is required")
	}
	return &c, nil
}

func (t template) validate(cfg json.RawMessage) error {
	_, err := t.parse(cfg)
	return err
}

// apply returns the input payload unchanged when the rendered text is not a
// JSON object.
func (t template) apply(cfg json.RawMessage, in Input) (map[string]any, error) {
	c, err := t.parse(cfg)
	if err != nil {
		return nil, err
	}

	scope := make(map[string]any, len(in.Payload)+3)
	for k, v := range in.Payload {
		scope[k] = v
	}
	scope["payload"] = in.Payload
	headers := make(map[string]any, len(in.Headers))
	for k, v := range in.Headers {
		headers[k] = v
	}
	scope["headers"] = headers
	scope["timestamp"] = in.Timestamp.UTC().Format(time.RFC3339)

	rendered := placeholder.ReplaceAllStringFunc(c.Template, func(m string) string {
		path := placeholder.FindStringSubmatch(m)[1]
		v, ok := dotpath.Get(scope, path)
		if !ok {
			return ""
		}
		return renderValue(v)
	})

	var out map[string]any
	if err := json.Unmarshal([]byte(rendered), &out); err != nil || out == nil {
		return in.Payload, nil
	}
	return out, nil
}

func renderValue(v any) string {
	if s, ok := v.(string); ok {
		b, _ := json.Marshal(s)
		return string(b[1 : len(b)-1])
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
