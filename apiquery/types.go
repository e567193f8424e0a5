package apiquery

import "context"

// Params is the parameter map decoded from a request query string.
// Values are a string, a []string for repeated keys, or a map[string]any
// for bracket notation (duration[gte]=5).
type Params map[string]any

// Filter is the predicate handed to Query.Find. Operator keys carry the
// operator marker, e.g. {"duration": {"$gte": "5"}}.
type Filter map[string]any

// Record is a single result document.
type Record map[string]any

// Query is a chainable, not yet executed data retrieval request.
// Implementations record errors while chaining and report them from Exec.
type Query interface {
	Find(filter Filter) Query
	// Sort takes field names in priority order; a leading "-" sorts descending.
	Sort(fields []string) Query
	// Select takes field names to include; a leading "-" excludes the field instead.
	Select(fields []string) Query
	Skip(n int) Query
	Limit(n int) Query
	Exec(ctx context.Context) ([]Record, error)
}

// Counter reports how many records match a filter.
type Counter interface {
	Count(ctx context.Context, filter Filter) (int64, error)
}
