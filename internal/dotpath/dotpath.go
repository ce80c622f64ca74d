// Package dotpath reads and writes values in decoded JSON documents using
// dot-separated paths such as "user.address.city" or "items.0.sku".
package dotpath

import (
	"strconv"
	"strings"
)

// Get resolves path against root. The second result is false when any
// segment is missing, so an absent value is distinguishable from a JSON null.
// Numeric segments index into arrays.
func Get(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes v at path inside root, creating intermediate objects as needed.
// A non-object value sitting on an intermediate segment is replaced.
func Set(root map[string]any, path string, v any) {
	if path == "" {
		return
	}
	segs := strings.Split(path, ".")
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
}
