package apiquery

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// Builder translates request parameters into a refined Query.
// A Builder holds no per-request state and may be shared.
type Builder struct {
	policy  Policy
	counter Counter
	log     zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCounter sets the Counter used by strict paging.
func WithCounter(counter Counter) Option {
	return func(b *Builder) {
		b.counter = counter
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = log.With().Str("component", "apiquery").Logger()
	}
}

// NewBuilder creates a Builder for the given policy.
func NewBuilder(policy Policy, opts ...Option) *Builder {
	b := &Builder{
		policy: policy,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Policy returns the policy the builder was created with.
func (b *Builder) Policy() Policy {
	return b.policy
}

// stage refines a query from the request parameters.
type stage func(ctx context.Context, q Query, params Params) (Query, error)

func (b *Builder) stages() []stage {
	return []stage{
		b.filterStage,
		b.sortStage,
		b.selectStage,
		b.limitStage,
		b.paginateStage,
	}
}

// Build validates params and applies the filter, sort, select, limit and
// paginate stages to q, in that order. An empty params map yields every
// record with the default sort and selection. Any error aborts the build
// and no partially refined query is returned.
func (b *Builder) Build(ctx context.Context, q Query, params Params) (Query, error) {
	if len(params) == 0 {
		b.log.Debug().Msg("No query parameters, using defaults")
		return q.Find(Filter{}).Sort(b.policy.DefaultSort).Select(b.policy.DefaultSelect), nil
	}

	if err := b.Validate(params); err != nil {
		return nil, err
	}

	var err error
	for _, st := range b.stages() {
		if q, err = st(ctx, q, params); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Validate checks that every key of params is allowed and that the
// control parameters are plain strings.
func (b *Builder) Validate(params Params) error {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if !b.policy.IsAllowed(key) {
			b.log.Debug().Str("param", key).Msg("Rejected unknown query parameter")
			return paramError(ErrInvalidQueryParameters, key, params[key])
		}
		if IsReserved(key) {
			if _, _, err := params.scalar(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// FilterFor extracts the filterable entries of params and prefixes the
// recognised operator keys with the operator marker. Values are never
// rewritten.
func (b *Builder) FilterFor(params Params) Filter {
	filter := make(Filter)
	for key, value := range params {
		if b.policy.IsFilterable(key) {
			filter[key] = b.rewrite(value)
		}
	}
	return filter
}

func (b *Builder) rewrite(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if b.policy.isOperator(key) {
				key = b.policy.OperatorMarker + key
			}
			out[key] = b.rewrite(inner)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}

func (b *Builder) filterStage(_ context.Context, q Query, params Params) (Query, error) {
	filter := b.FilterFor(params)
	b.log.Debug().Interface("filter", filter).Msg("Applying filter")
	return q.Find(filter), nil
}

func (b *Builder) sortStage(_ context.Context, q Query, params Params) (Query, error) {
	return q.Sort(b.listOrDefault(params, ParamSort, b.policy.DefaultSort)), nil
}

func (b *Builder) selectStage(_ context.Context, q Query, params Params) (Query, error) {
	return q.Select(b.listOrDefault(params, ParamFields, b.policy.DefaultSelect)), nil
}

func (b *Builder) listOrDefault(params Params, name string, fallback []string) []string {
	raw, ok, _ := params.scalar(name)
	if !ok {
		return fallback
	}
	fields := splitList(raw)
	if len(fields) == 0 {
		return fallback
	}
	return fields
}

func (b *Builder) limitStage(_ context.Context, q Query, params Params) (Query, error) {
	raw, hasLimit, _ := params.scalar(ParamLimit)
	_, hasPage, _ := params.scalar(ParamPage)
	if !hasLimit || hasPage {
		return q, nil
	}

	limit, ok := parsePositiveInt(raw)
	if !ok {
		return nil, paramError(ErrInvalidLimit, ParamLimit, raw)
	}
	return q.Limit(limit), nil
}

func (b *Builder) paginateStage(ctx context.Context, q Query, params Params) (Query, error) {
	rawPage, hasPage, _ := params.scalar(ParamPage)
	rawLimit, hasLimit, _ := params.scalar(ParamLimit)
	if !hasPage || !hasLimit {
		return q, nil
	}

	page, pageOK := parsePositiveInt(rawPage)
	limit, limitOK := parsePositiveInt(rawLimit)
	if !pageOK || !limitOK {
		return nil, fmt.Errorf("%w: page=%s limit=%s", ErrInvalidPagination, rawPage, rawLimit)
	}
	if page-1 > math.MaxInt/limit {
		return nil, fmt.Errorf("%w: page=%s limit=%s", ErrInvalidPagination, rawPage, rawLimit)
	}
	skip := (page - 1) * limit

	if b.policy.StrictPaging && b.counter != nil {
		total, err := b.counter.Count(ctx, b.FilterFor(params))
		if err != nil {
			return nil, fmt.Errorf("failed to count records: %w", err)
		}
		if int64(skip) >= total {
			return nil, fmt.Errorf("%w: page=%d", ErrPageOutOfRange, page)
		}
	}

	b.log.Debug().Int("skip", skip).Int("limit", limit).Msg("Applying pagination")
	return q.Skip(skip).Limit(limit), nil
}

// parsePositiveInt accepts any decimal number that is a whole number of at
// least one, so "5" and "5.0" both parse while "5.5", "0" and "abc" do not.
func parsePositiveInt(raw string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) || f < 1 || f >= math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
