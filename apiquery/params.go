package apiquery

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/exp/slices"
)

// ParseQuery turns decoded URL query values into Params. Bracket notation
// nests: "duration[gte]=5" becomes {"duration": {"gte": "5"}} and
// "tags[]=a&tags[]=b" becomes {"tags": ["a", "b"]}. Repeated plain keys
// become a []string.
func ParseQuery(values url.Values) (Params, error) {
	params := make(Params, len(values))

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		name, path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		if err := assign(params, name, path, values[key], false); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// splitKey splits "a[b][c]" into "a" and ["b", "c"].
func splitKey(key string) (string, []string, error) {
	idx := strings.IndexByte(key, '[')
	if idx < 0 {
		return key, nil, nil
	}
	if idx == 0 {
		return "", nil, fmt.Errorf("%w: malformed key %q", ErrInvalidQueryParameters, key)
	}

	name, rest := key[:idx], key[idx:]
	var path []string
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("%w: malformed key %q", ErrInvalidQueryParameters, key)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("%w: unterminated bracket in %q", ErrInvalidQueryParameters, key)
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return name, path, nil
}

// assign stores values under name, descending into path. Inside a nested
// map a leaf must be a single value, so "duration[gte]=5&duration[gte]=7"
// is rejected.
func assign(m map[string]any, name string, path []string, values []string, nested bool) error {
	if len(path) == 0 || (len(path) == 1 && path[0] == "") {
		if nested && (len(path) == 1 || len(values) > 1) {
			return fmt.Errorf("%w: %q must have a single value", ErrInvalidQueryParameters, name)
		}

		var leaf any
		switch {
		case len(path) == 1 || len(values) > 1:
			leaf = slices.Clone(values)
		case len(values) == 1:
			leaf = values[0]
		default:
			leaf = ""
		}

		existing, ok := m[name]
		if !ok {
			m[name] = leaf
			return nil
		}
		merged, ok := appendValues(existing, leaf)
		if !ok {
			return fmt.Errorf("%w: %q used both as a value and as an object", ErrInvalidQueryParameters, name)
		}
		m[name] = merged
		return nil
	}

	if path[0] == "" {
		return fmt.Errorf("%w: empty bracket inside %q", ErrInvalidQueryParameters, name)
	}

	child, ok := m[name]
	if !ok {
		child = make(map[string]any)
		m[name] = child
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %q used both as a value and as an object", ErrInvalidQueryParameters, name)
	}
	return assign(childMap, path[0], path[1:], values, true)
}

func appendValues(existing, leaf any) (any, bool) {
	var out []string
	for _, v := range []any{existing, leaf} {
		switch vv := v.(type) {
		case string:
			out = append(out, vv)
		case []string:
			out = append(out, vv...)
		default:
			return nil, false
		}
	}
	return out, true
}

// scalar returns the string value of a control parameter. A missing or
// empty value reports false. Repeated or nested control parameters are
// rejected.
func (p Params) scalar(name string) (string, bool, error) {
	raw, ok := p[name]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, paramError(ErrInvalidQueryParameters, name, raw)
	}
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case []string:
		return slices.Clone(vv)
	case map[string]any:
		m := make(map[string]any, len(vv))
		for k, inner := range vv {
			m[k] = cloneValue(inner)
		}
		return m
	default:
		return v
	}
}

// splitList splits a comma separated field list, dropping blank entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
