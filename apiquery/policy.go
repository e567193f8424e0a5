package apiquery

import (
	"golang.org/x/exp/slices"
)

// Reserved control parameters. Every other key is a filter on a record field.
const (
	ParamSort   = "sort"
	ParamFields = "fields"
	ParamPage   = "page"
	ParamLimit  = "limit"
)

var reservedParams = []string{ParamSort, ParamFields, ParamPage, ParamLimit}

// Policy decides which parameters a builder accepts and how it fills the
// gaps a request leaves open.
type Policy struct {
	// Filterable lists the field names that may be filtered on.
	// A nil slice accepts every non-reserved name.
	Filterable []string

	// Operators lists the comparison operators that get the marker prefix.
	Operators []string

	// OperatorMarker is prepended to recognised operators ("gte" -> "$gte").
	OperatorMarker string

	// DefaultSort applies when the request has no sort parameter.
	DefaultSort []string

	// DefaultSelect applies when the request has no fields parameter.
	DefaultSelect []string

	// StrictPaging rejects pages that start past the last matching record.
	// It needs a Counter; see WithCounter.
	StrictPaging bool
}

// DefaultPolicy returns a policy with an open filter set, the gt/gte/lt/lte
// operators, newest-first ordering and the version field hidden.
func DefaultPolicy() Policy {
	return Policy{
		Operators:      []string{"gt", "gte", "lt", "lte"},
		OperatorMarker: "$",
		DefaultSort:    []string{"-createdAt"},
		DefaultSelect:  []string{"-__v"},
	}
}

// IsReserved reports whether name is one of the control parameters.
func IsReserved(name string) bool {
	return slices.Contains(reservedParams, name)
}

// IsFilterable reports whether name may be used as a filter.
func (p Policy) IsFilterable(name string) bool {
	if IsReserved(name) {
		return false
	}
	if p.Filterable == nil {
		return true
	}
	return slices.Contains(p.Filterable, name)
}

// IsAllowed reports whether name is either reserved or filterable.
func (p Policy) IsAllowed(name string) bool {
	return IsReserved(name) || p.IsFilterable(name)
}

func (p Policy) isOperator(name string) bool {
	return slices.Contains(p.Operators, name)
}
