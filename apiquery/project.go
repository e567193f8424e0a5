package apiquery

import (
	"errors"
	"strings"

	"golang.org/x/exp/slices"
)

var ErrMixedProjection = errors.New("cannot mix field inclusion and exclusion")

// SortKey is one entry of a sort order.
type SortKey struct {
	Field string
	Desc  bool
}

// ParseSort converts "-price" style field names into sort keys.
func ParseSort(fields []string) []SortKey {
	keys := make([]SortKey, 0, len(fields))
	for _, f := range fields {
		if name, ok := strings.CutPrefix(f, "-"); ok {
			keys = append(keys, SortKey{Field: name, Desc: true})
			continue
		}
		keys = append(keys, SortKey{Field: strings.TrimPrefix(f, "+")})
	}
	return keys
}

// Projection is a parsed field selection. At most one of Include and
// Exclude is set.
type Projection struct {
	Include []string
	Exclude []string
}

// ParseProjection splits fields into an inclusion or exclusion list.
// Mixing both kinds fails with ErrMixedProjection.
func ParseProjection(fields []string) (Projection, error) {
	var p Projection
	for _, f := range fields {
		if name, ok := strings.CutPrefix(f, "-"); ok {
			p.Exclude = append(p.Exclude, name)
		} else {
			p.Include = append(p.Include, f)
		}
	}
	if len(p.Include) > 0 && len(p.Exclude) > 0 {
		return Projection{}, ErrMixedProjection
	}
	return p, nil
}

// IsZero reports whether the projection keeps every field.
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Keeps reports whether field survives the projection. The identity
// field is kept unless it is excluded explicitly.
func (p Projection) Keeps(field, identity string) bool {
	if len(p.Exclude) > 0 {
		return !slices.Contains(p.Exclude, field)
	}
	if len(p.Include) > 0 {
		return field == identity || slices.Contains(p.Include, field)
	}
	return true
}

// Apply returns a copy of rec holding only the kept fields.
func (p Projection) Apply(rec Record, identity string) Record {
	if p.IsZero() {
		return rec
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		if p.Keeps(k, identity) {
			out[k] = v
		}
	}
	return out
}
