package secure

import (
	"strings"
)

// markerSpace is the prefix reserved for values written by EncryptFields.
// Plain strings that already start with it are stored behind rawMarker, so
// every FieldMarker value in a sealed document was produced by the cipher.
const (
	markerSpace = "enc:"
	rawMarker   = "enc:raw:"
)

// visit is applied to every string value. sensitive reports whether the key
// is in the field set. It returns the replacement value.
type visit func(key, value string, sensitive bool) (string, error)

// walk rebuilds a decoded JSON tree, passing string leaves through fn. A nil
// field set marks every keyed string sensitive. Objects and arrays are
// copied; the input is never mutated.
func walk(node any, key string, fields fieldSet, fn visit) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			next, err := walk(child, k, fields, fn)
			if err != nil {
				return nil, err
			}
			out[k] = next
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			// Array elements inherit the key of the array itself.
			next, err := walk(child, key, fields, fn)
			if err != nil {
				return nil, err
			}
			out[i] = next
		}
		return out, nil
	case string:
		return fn(key, v, key != "" && (fields == nil || fields.has(key)))
	default:
		return v, nil
	}
}

// EncryptFields seals every sensitive string value in doc, whatever it
// looks like. Other strings in the reserved "enc:" space are escaped so
// DecryptFields returns them verbatim.
func (c *Cipher) EncryptFields(doc map[string]any) (map[string]any, error) {
	out, err := walk(doc, "", c.fields, func(_, value string, sensitive bool) (string, error) {
		if !sensitive {
			if strings.HasPrefix(value, markerSpace) {
				return rawMarker + value, nil
			}
			return value, nil
		}
		sealed, err := c.seal([]byte(value))
		if err != nil {
			return "", err
		}
		return FieldMarker + sealed, nil
	})
	if err != nil {
		return nil, err
	}
	return asObject(out), nil
}

// DecryptFields opens every value in doc carrying FieldMarker, whatever the
// field set it was sealed with, and unescapes values stored behind the raw
// marker.
//
// A value without either marker was never encrypted (the payload may predate
// encryption being enabled) and is returned unchanged. A FieldMarker value
// that fails to open is a CiphertextError.
func (c *Cipher) DecryptFields(doc map[string]any) (map[string]any, error) {
	out, err := walk(doc, "", nil, func(key, value string, _ bool) (string, error) {
		if raw, ok := strings.CutPrefix(value, rawMarker); ok {
			return raw, nil
		}
		sealed, marked := strings.CutPrefix(value, FieldMarker)
		if !marked {
			return value, nil
		}
		plain, err := c.open(sealed)
		if err != nil {
			return "", &CiphertextError{Field: key, Reason: err.Error()}
		}
		return string(plain), nil
	})
	if err != nil {
		return nil, err
	}
	return asObject(out), nil
}

// Mask replaces sensitive string values with MaskString output. fields nil
// selects DefaultSensitiveFields. The result is for logging only.
func Mask(doc map[string]any, fields []string) map[string]any {
	out, _ := walk(doc, "", newFieldSet(fields), func(_, value string, sensitive bool) (string, error) {
		if !sensitive {
			return value, nil
		}
		return MaskString(value), nil
	})
	return asObject(out)
}

// MaskString keeps the first and last two characters of values longer than
// four characters and stars out everything else.
func MaskString(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
