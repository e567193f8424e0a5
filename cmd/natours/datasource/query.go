package datasource

import (
	"context"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/google/uuid"
)

// NewID returns a new tour id.
func NewID() string {
	return uuid.NewString()
}

// chain is the accumulated state of a query. Later Find calls add to the
// filter, later Sort/Select/Skip/Limit calls replace the previous value.
type chain struct {
	filter apiquery.Filter
	sort   []string
	fields []string
	skip   int
	limit  int
}

// sortKeys returns the sort keys of c on stored fields only. Virtual fields
// such as durationWeeks are dropped so every store orders the same way.
func (c chain) sortKeys() []apiquery.SortKey {
	var keys []apiquery.SortKey
	for _, k := range apiquery.ParseSort(c.sort) {
		if _, ok := tour.FieldByName(k.Field); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

type executor interface {
	exec(ctx context.Context, c chain) ([]apiquery.Record, error)
}

// query is the apiquery.Query shared by all stores. It is a value type, so
// every refinement returns a new query and leaves the receiver untouched.
type query struct {
	c    chain
	exec executor
}

func newQuery(exec executor) query {
	return query{c: chain{filter: apiquery.Filter{}}, exec: exec}
}

func (q query) Find(filter apiquery.Filter) apiquery.Query {
	merged := make(apiquery.Filter, len(q.c.filter)+len(filter))
	for k, v := range q.c.filter {
		merged[k] = v
	}
	for k, v := range filter {
		merged[k] = v
	}
	q.c.filter = merged
	return q
}

func (q query) Sort(fields []string) apiquery.Query {
	q.c.sort = fields
	return q
}

func (q query) Select(fields []string) apiquery.Query {
	q.c.fields = fields
	return q
}

func (q query) Skip(n int) apiquery.Query {
	q.c.skip = n
	return q
}

func (q query) Limit(n int) apiquery.Query {
	q.c.limit = n
	return q
}

func (q query) Exec(ctx context.Context) ([]apiquery.Record, error) {
	return q.exec.exec(ctx, q.c)
}
