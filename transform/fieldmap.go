package transform

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/xraph/hookgate/internal/dotpath"
)

// FieldMappingConfig configures the field_mapping kind.
type FieldMappingConfig struct {
	Mappings []Mapping `json:"mappings"`

	// MergeWithOriginal shallow-merges the mapped result over the step's input
	// payload instead of replacing it.
	MergeWithOriginal bool `json:"merge_with_original"`
}

// Mapping copies one value from Source to Target, both dot paths.
type Mapping struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Default   any    `json:"default,omitempty"`
	Transform string `json:"transform,omitempty"`
}

type fieldMapping struct{}

func (fieldMapping) parse(cfg json.RawMessage) (*FieldMappingConfig, error) {
	var c FieldMappingConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("field_mapping config: %w", err)
	}
	for i, m := range c.Mappings {
		if m.Source == "" || m.Target == "" {
			return nil, fmt.Errorf("field_mapping config: mapping %d needs source and target", i)
		}
		if m.Transform != "" {
			if _, ok := fieldTransforms[m.Transform]; !ok {
				return nil, fmt.Errorf("field_mapping config: unknown transform %q", m.Transform)
			}
		}
	}
	return &c, nil
}

func (f fieldMapping) validate(cfg json.RawMessage) error {
	_, err := f.parse(cfg)
	return err
}

func (f fieldMapping) apply(cfg json.RawMessage, in Input) (map[string]any, error) {
	c, err := f.parse(cfg)
	if err != nil {
		return nil, err
	}

	result := make(map[string]any)
	for _, m := range c.Mappings {
		v, ok := dotpath.Get(in.Payload, m.Source)
		if !ok {
			if m.Default == nil {
				continue
			}
			v = m.Default
		}
		if m.Transform != "" {
			if v, err = fieldTransforms[m.Transform](v); err != nil {
				return nil, fmt.Errorf("mapping %s -> %s: %s: %w", m.Source, m.Target, m.Transform, err)
			}
		}
		dotpath.Set(result, m.Target, v)
	}

	if !c.MergeWithOriginal {
		return result, nil
	}
	merged := make(map[string]any, len(in.Payload)+len(result))
	for k, v := range in.Payload {
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged, nil
}

var errConvert = errors.New("value cannot be converted")

var fieldTransforms = map[string]func(any) (any, error){
	"uppercase": stringFn(strings.ToUpper),
	"lowercase": stringFn(strings.ToLower),
	"trim":      stringFn(strings.TrimSpace),
	"to_string": func(v any) (any, error) { return toString(v), nil },
	"to_int":    toInt,
	"to_float":  toFloat,
	"to_bool":   toBool,
	"md5": stringFn(func(s string) string {
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	}),
	"sha1": stringFn(func(s string) string {
		sum := sha1.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	}),
	"base64_encode": stringFn(func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}),
	"base64_decode": func(v any) (any, error) {
		b, err := base64.StdEncoding.DecodeString(toString(v))
		if err != nil {
			return nil, errConvert
		}
		return string(b), nil
	},
	"url_encode": stringFn(url.QueryEscape),
	"url_decode": func(v any) (any, error) {
		s, err := url.QueryUnescape(toString(v))
		if err != nil {
			return nil, errConvert
		}
		return s, nil
	},
}

func stringFn(fn func(string) string) func(any) (any, error) {
	return func(v any) (any, error) { return fn(toString(v)), nil }
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
	}
	return nil, errConvert
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return nil, errConvert
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b, nil
		}
	}
	return nil, errConvert
}
