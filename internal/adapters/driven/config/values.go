// Package config holds helpers shared by the configuration store adapters.
package config

import "strings"

// Values is a flat map of dot-separated keys to decoded values. The typed
// accessors return the zero value when a key is missing or holds an
// incompatible type. Integers arrive as int64 from TOML and as int from
// callers, so both are accepted.
type Values map[string]any

// String returns the string at key.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the integer at key. Floats are not truncated.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// Float returns the number at key, widening integers.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Bool returns the boolean at key.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// StringSlice returns the strings at key, dropping non-string elements.
func (v Values) StringSlice(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Flatten turns decoded tables into dotted keys:
// {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(tables map[string]any) Values {
	out := make(Values)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if table, ok := val.(map[string]any); ok {
				walk(k, table)
				continue
			}
			out[k] = val
		}
	}
	walk("", tables)
	return out
}

// Nested is the inverse of Flatten. When a key is both a value and the
// prefix of other keys, the table wins.
func (v Values) Nested() map[string]any {
	root := make(map[string]any)
	for key, val := range v {
		path := strings.Split(key, ".")
		node := root
		for _, seg := range path[:len(path)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		leaf := path[len(path)-1]
		if _, isTable := node[leaf].(map[string]any); !isTable {
			node[leaf] = val
		}
	}
	return root
}
