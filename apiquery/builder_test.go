package apiquery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op  string
	arg any
}

// recordingQuery remembers every refinement applied to it.
type recordingQuery struct {
	calls []call
}

func (q *recordingQuery) Find(filter Filter) Query {
	q.calls = append(q.calls, call{"find", filter})
	return q
}

func (q *recordingQuery) Sort(fields []string) Query {
	q.calls = append(q.calls, call{"sort", fields})
	return q
}

func (q *recordingQuery) Select(fields []string) Query {
	q.calls = append(q.calls, call{"select", fields})
	return q
}

func (q *recordingQuery) Skip(n int) Query {
	q.calls = append(q.calls, call{"skip", n})
	return q
}

func (q *recordingQuery) Limit(n int) Query {
	q.calls = append(q.calls, call{"limit", n})
	return q
}

func (q *recordingQuery) Exec(context.Context) ([]Record, error) {
	return nil, nil
}

type staticCounter struct {
	total int64
	err   error
	seen  Filter
}

func (c *staticCounter) Count(_ context.Context, filter Filter) (int64, error) {
	c.seen = filter
	return c.total, c.err
}

func tourPolicy() Policy {
	p := DefaultPolicy()
	p.Filterable = []string{"duration", "difficulty", "price", "name"}
	return p
}

func build(t *testing.T, params Params) (*recordingQuery, error) {
	t.Helper()
	q := &recordingQuery{}
	_, err := NewBuilder(tourPolicy()).Build(context.Background(), q, params)
	return q, err
}

func TestBuildEmptyParamsUsesDefaults(t *testing.T) {
	q, err := build(t, Params{})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{"find", Filter{}},
		{"sort", []string{"-createdAt"}},
		{"select", []string{"-__v"}},
	}, q.calls)
}

func TestBuildEndToEnd(t *testing.T) {
	q, err := build(t, Params{
		"difficulty": "easy",
		"duration":   map[string]any{"gte": "5"},
		"sort":       "-price",
		"limit":      "5",
	})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{"find", Filter{
			"difficulty": "easy",
			"duration":   map[string]any{"$gte": "5"},
		}},
		{"sort", []string{"-price"}},
		{"select", []string{"-__v"}},
		{"limit", 5},
	}, q.calls)
}

func TestBuildRejectsUnknownParameters(t *testing.T) {
	tests := []Params{
		{"color": "red"},
		{"difficulty": "easy", "secret": "1"},
		{"sort": "price", "Page": "1"},
	}

	for _, params := range tests {
		q, err := build(t, params)
		assert.ErrorIs(t, err, ErrInvalidQueryParameters)
		assert.Empty(t, q.calls, "no stage may run after a validation failure")
	}
}

func TestBuildRejectsRepeatedControlParameter(t *testing.T) {
	q, err := build(t, Params{"sort": []string{"price", "name"}})
	assert.ErrorIs(t, err, ErrInvalidQueryParameters)
	assert.Empty(t, q.calls)
}

func TestBuildOpenFilterSet(t *testing.T) {
	q := &recordingQuery{}
	_, err := NewBuilder(DefaultPolicy()).Build(context.Background(), q, Params{"anything": "x"})
	require.NoError(t, err)
	assert.Equal(t, call{"find", Filter{"anything": "x"}}, q.calls[0])
}

func TestFilterRewritesOperatorKeysOnly(t *testing.T) {
	b := NewBuilder(tourPolicy())

	filter := b.FilterFor(Params{
		"name":     "lte",
		"price":    map[string]any{"lt": "gte", "gt": "100"},
		"duration": map[string]any{"ne": "5"},
		"sort":     "price",
	})

	assert.Equal(t, Filter{
		"name":     "lte",
		"price":    map[string]any{"$lt": "gte", "$gt": "100"},
		"duration": map[string]any{"ne": "5"},
	}, filter)
}

func TestSortAndFields(t *testing.T) {
	q, err := build(t, Params{
		"sort":   "price,-ratingsAverage",
		"fields": "name, price,",
	})
	require.NoError(t, err)

	assert.Equal(t, call{"sort", []string{"price", "-ratingsAverage"}}, q.calls[1])
	assert.Equal(t, call{"select", []string{"name", "price"}}, q.calls[2])
}

func TestEmptyControlValuesFallBack(t *testing.T) {
	q, err := build(t, Params{"sort": "", "fields": ",", "limit": ""})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{"find", Filter{}},
		{"sort", []string{"-createdAt"}},
		{"select", []string{"-__v"}},
	}, q.calls)
}

func TestLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "5", want: 5},
		{raw: " 7 ", want: 7},
		{raw: "3.0", want: 3},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "2.5", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, err := build(t, Params{"limit": tt.raw})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLimit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, call{"limit", tt.want}, q.calls[len(q.calls)-1])
		})
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantSkip  int
		wantLimit int
		wantErr   bool
	}{
		{name: "second page", page: "2", limit: "10", wantSkip: 10, wantLimit: 10},
		{name: "first page", page: "1", limit: "10", wantSkip: 0, wantLimit: 10},
		{name: "zero page", page: "0", limit: "10", wantErr: true},
		{name: "zero limit", page: "2", limit: "0", wantErr: true},
		{name: "fractional page", page: "1.5", limit: "10", wantErr: true},
		{name: "text limit", page: "1", limit: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := build(t, Params{"page": tt.page, "limit": tt.limit})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPagination)
				assert.False(t, errors.Is(err, ErrInvalidLimit))
				return
			}
			require.NoError(t, err)
			n := len(q.calls)
			assert.Equal(t, []call{{"skip", tt.wantSkip}, {"limit", tt.wantLimit}}, q.calls[n-2:])
		})
	}
}

func TestPageWithoutLimitIsIgnored(t *testing.T) {
	q, err := build(t, Params{"page": "3"})
	require.NoError(t, err)
	assert.Len(t, q.calls, 3)
}

func TestStrictPaging(t *testing.T) {
	policy := tourPolicy()
	policy.StrictPaging = true

	counter := &staticCounter{total: 15}
	b := NewBuilder(policy, WithCounter(counter))

	_, err := b.Build(context.Background(), &recordingQuery{}, Params{"page": "2", "limit": "10", "difficulty": "easy"})
	require.NoError(t, err)
	assert.Equal(t, Filter{"difficulty": "easy"}, counter.seen)

	built, err := b.Build(context.Background(), &recordingQuery{}, Params{"page": "3", "limit": "10"})
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Nil(t, built)

	counter.err = errors.New("connection refused")
	_, err = b.Build(context.Background(), &recordingQuery{}, Params{"page": "1", "limit": "10"})
	require.Error(t, err)
	assert.False(t, IsClientError(err))
}

func TestIsClientError(t *testing.T) {
	_, err := build(t, Params{"limit": "-1"})
	assert.True(t, IsClientError(err))
	assert.False(t, IsClientError(errors.New("boom")))
}
