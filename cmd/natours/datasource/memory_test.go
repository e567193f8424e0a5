package datasource

import (
	"context"
	"testing"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devDataFile = "../../../dev-data/data/tours.json"

func newDevStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(zerolog.Nop())
	require.NoError(t, store.LoadFile(devDataFile))
	return store
}

func runQuery(t *testing.T, store Store, params apiquery.Params) ([]apiquery.Record, error) {
	t.Helper()
	policy := apiquery.DefaultPolicy()
	policy.Filterable = tour.FilterableFields

	q, err := apiquery.NewBuilder(policy).Build(context.Background(), store.Query(), params)
	if err != nil {
		return nil, err
	}
	return q.Exec(context.Background())
}

func names(records []apiquery.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestMemoryStoreHidesSecretTours(t *testing.T) {
	store := newDevStore(t)

	n, err := store.Count(context.Background(), apiquery.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	records, err := runQuery(t, store, apiquery.Params{})
	require.NoError(t, err)
	assert.Len(t, records, 6)
	assert.NotContains(t, names(records), "The Super Secret Tour")
	for _, r := range records {
		assert.NotContains(t, r, "__v")
		assert.Contains(t, r, "durationWeeks")
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	store := newDevStore(t)

	tests := []struct {
		name   string
		params apiquery.Params
		want   []string
	}{
		{
			name: "filter sort and limit",
			params: apiquery.Params{
				"difficulty": "easy",
				"duration":   map[string]any{"gte": "5"},
				"sort":       "-price",
				"limit":      "5",
			},
			want: []string{"The City Wanderer", "The Forest Hiker"},
		},
		{
			name:   "second page by price",
			params: apiquery.Params{"sort": "price", "page": "2", "limit": "2"},
			want:   []string{"The Snow Adventurer", "The City Wanderer"},
		},
		{
			name:   "price range",
			params: apiquery.Params{"price": map[string]any{"lt": "1000", "gt": "400"}, "sort": "price"},
			want:   []string{"The Sea Explorer", "The Snow Adventurer"},
		},
		{
			name:   "membership",
			params: apiquery.Params{"difficulty": []string{"medium", "difficult"}, "sort": "-ratingsAverage,price"},
			want:   []string{"The Park Camper", "The Sea Explorer", "The Sports Lover", "The Snow Adventurer"},
		},
		{
			name:   "unrecognised operator matches nothing",
			params: apiquery.Params{"duration": map[string]any{"ne": "5"}},
			want:   []string{},
		},
		{
			name:   "page past the end",
			params: apiquery.Params{"page": "9", "limit": "10"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := runQuery(t, store, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(records))
		})
	}
}

func TestMemoryStoreProjection(t *testing.T) {
	store := newDevStore(t)

	records, err := runQuery(t, store, apiquery.Params{"fields": "name,price", "sort": "price", "limit": "1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Len(t, rec, 3)
	assert.Equal(t, "The Forest Hiker", rec["name"])
	assert.Equal(t, 397.0, rec["price"])
	assert.NotEmpty(t, rec["id"])

	_, err = runQuery(t, store, apiquery.Params{"fields": "name,-price"})
	assert.ErrorIs(t, err, apiquery.ErrMixedProjection)
}

func TestMemoryStoreCastError(t *testing.T) {
	store := newDevStore(t)

	_, err := runQuery(t, store, apiquery.Params{"price": map[string]any{"gt": "cheap"}})
	assert.ErrorIs(t, err, tour.ErrCast)
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := newDevStore(t)

	created, err := tour.FromDocument(tour.Document{
		"name":         "The Northern Lights",
		"duration":     3.0,
		"maxGroupSize": 12.0,
		"difficulty":   "easy",
		"price":        1497.0,
		"summary":      "Enjoy the Northern Lights in one of the best places in the world",
		"imageCover":   "tour-9-cover.jpg",
	})
	require.NoError(t, err)
	created.ID = NewID()

	require.NoError(t, store.Create(ctx, created))
	assert.ErrorIs(t, store.Create(ctx, created), ErrDuplicate)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "the-northern-lights", got.Slug)

	got.Price = 1297
	require.NoError(t, store.Update(ctx, got))
	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1297.0, got.Price)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrNotFound)

	n, err := store.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestMemoryStoreSecretTourIsNotAddressable(t *testing.T) {
	ctx := context.Background()
	store := newDevStore(t)

	var secretID string
	store.mu.RLock()
	for _, tr := range store.tours {
		if tr.SecretTour {
			secretID = tr.ID
		}
	}
	store.mu.RUnlock()
	require.NotEmpty(t, secretID)

	_, err := store.Get(ctx, secretID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, secretID), ErrNotFound)
}

func TestQueryIsImmutable(t *testing.T) {
	store := newDevStore(t)
	base := store.Query()
	limited := base.Limit(1)

	all, err := base.Exec(context.Background())
	require.NoError(t, err)
	one, err := limited.Exec(context.Background())
	require.NoError(t, err)

	assert.Len(t, all, 6)
	assert.Len(t, one, 1)
}
