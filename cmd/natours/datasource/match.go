package datasource

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"golang.org/x/exp/slices"
)

// matches evaluates filter against rec the way the document store does:
// plain values test equality, lists test membership and operator maps
// compare. Operators without the marker never match.
func matches(rec apiquery.Record, filter apiquery.Filter) (bool, error) {
	for field, cond := range filter {
		ok, err := matchField(field, rec[field], cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchField(field string, value, cond any) (bool, error) {
	switch c := cond.(type) {
	case string:
		want, err := tour.Cast(field, c)
		if err != nil {
			return false, err
		}
		return equal(value, want), nil

	case []string:
		for _, raw := range c {
			want, err := tour.Cast(field, raw)
			if err != nil {
				return false, err
			}
			if equal(value, want) {
				return true, nil
			}
		}
		return false, nil

	case map[string]any:
		for op, operand := range c {
			raw, ok := operand.(string)
			if !ok {
				return false, nil
			}
			want, err := tour.Cast(field, raw)
			if err != nil {
				return false, err
			}
			if !compareOp(op, value, want) {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unsupported filter value %T for %s", cond, field)
	}
}

func compareOp(op string, value, want any) bool {
	if op == "$ne" {
		return !equal(value, want)
	}
	if op == "$eq" {
		return equal(value, want)
	}

	cmp, ok := compare(value, want)
	if !ok {
		return false
	}
	switch op {
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	case "$lt":
		return cmp < 0
	case "$lte":
		return cmp <= 0
	default:
		return false
	}
}

// equal treats a list value as matching when any element matches.
func equal(value, want any) bool {
	if list, ok := value.([]string); ok {
		return slices.ContainsFunc(list, func(v string) bool {
			return equal(v, want)
		})
	}
	cmp, ok := compare(value, want)
	return ok && cmp == 0
}

// compare orders two scalar values of the same kind.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// sortRecords orders records by keys. Missing values sort first.
func sortRecords(records []apiquery.Record, keys []apiquery.SortKey) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			a, aok := records[i][k.Field]
			b, bok := records[j][k.Field]

			var cmp int
			switch {
			case !aok && !bok:
				continue
			case !aok:
				cmp = -1
			case !bok:
				cmp = 1
			default:
				c, ok := compare(a, b)
				if !ok {
					continue
				}
				cmp = c
			}
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
