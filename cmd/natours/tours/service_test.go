package tours

import (
	"context"
	"testing"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/cmd/natours/datasource"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, strict bool) *TourService {
	t.Helper()
	store := datasource.NewMemoryStore(zerolog.Nop())
	require.NoError(t, store.LoadFile("../../../dev-data/data/tours.json"))
	return NewTourService(store, strict, zerolog.Nop())
}

func idOf(t *testing.T, s *TourService, name string) string {
	t.Helper()
	records, err := s.List(context.Background(), apiquery.Params{"fields": "name"})
	require.NoError(t, err)
	for _, r := range records {
		if r["name"] == name {
			return r["id"].(string)
		}
	}
	t.Fatalf("tour %q not found", name)
	return ""
}

func TestTopCheap(t *testing.T) {
	s := newService(t, false)

	records, err := s.List(context.Background(), TopCheapParams())
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "The Park Camper", records[0]["name"])
	assert.Equal(t, "The Sea Explorer", records[1]["name"])
	assert.Equal(t, "The Forest Hiker", records[2]["name"])
	assert.Equal(t, "The Sports Lover", records[3]["name"])
	assert.Equal(t, "The City Wanderer", records[4]["name"])

	for _, r := range records {
		assert.ElementsMatch(t, []string{"id", "name", "price", "ratingsAverage", "summary", "difficulty"}, keys(r))
	}
}

func keys(r apiquery.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func TestListRejectsBadQueries(t *testing.T) {
	s := newService(t, true)

	tests := []struct {
		name   string
		params apiquery.Params
		want   error
	}{
		{name: "unknown field", params: apiquery.Params{"color": "red"}, want: apiquery.ErrInvalidQueryParameters},
		{name: "bad limit", params: apiquery.Params{"limit": "0"}, want: apiquery.ErrInvalidLimit},
		{name: "bad page", params: apiquery.Params{"page": "x", "limit": "2"}, want: apiquery.ErrInvalidPagination},
		{name: "page out of range", params: apiquery.Params{"page": "4", "limit": "2"}, want: apiquery.ErrPageOutOfRange},
		{name: "cast", params: apiquery.Params{"price": "cheap"}, want: tour.ErrCast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.List(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, records)
		})
	}

	records, err := s.List(context.Background(), apiquery.Params{"page": "3", "limit": "2"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestListReturnsStoreClientErrorsUnwrapped(t *testing.T) {
	s := newService(t, false)

	_, err := s.List(context.Background(), apiquery.Params{"fields": "name,-price"})
	assert.EqualError(t, err, apiquery.ErrMixedProjection.Error())

	_, err = s.List(context.Background(), apiquery.Params{"price": map[string]any{"lt": "cheap"}})
	require.ErrorIs(t, err, tour.ErrCast)
	assert.Equal(t, `cast failed: price="cheap" is not a number`, err.Error())
}

func TestCreateIgnoresClientIdentity(t *testing.T) {
	s := newService(t, false)

	created, err := s.Create(context.Background(), tour.Document{
		"id":           "chosen-by-client",
		"__v":          7.0,
		"name":         "The Northern Lights",
		"duration":     3.0,
		"maxGroupSize": 12.0,
		"difficulty":   "easy",
		"price":        1497.0,
		"summary":      "Enjoy the Northern Lights in one of the best places in the world",
		"imageCover":   "tour-9-cover.jpg",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-by-client", created.ID)
	assert.Zero(t, created.Version)
	assert.Equal(t, tour.DefaultRatingsAverage, created.RatingsAverage)

	_, err = s.Create(context.Background(), tour.Document{"name": "short"})
	var verr *tour.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newService(t, false)
	id := idOf(t, s, "The Forest Hiker")

	before, err := s.Get(ctx, id)
	require.NoError(t, err)

	updated, err := s.Update(ctx, id, tour.Document{"price": 497.0, "name": "The Forest Hiker Deluxe"})
	require.NoError(t, err)
	assert.Equal(t, id, updated.ID)
	assert.Equal(t, 497.0, updated.Price)
	assert.Equal(t, "the-forest-hiker-deluxe", updated.Slug)
	assert.Equal(t, before.Version+1, updated.Version)
	assert.Equal(t, before.Summary, updated.Summary)

	_, err = s.Update(ctx, id, tour.Document{"difficulty": "extreme"})
	var verr *tour.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "Difficulty is either: easy, medium, difficult")

	_, err = s.Update(ctx, id, tour.Document{"priceDiscount": 600.0})
	assert.ErrorAs(t, err, &verr)

	_, err = s.Update(ctx, id, tour.Document{"name": "The Sea Explorer"})
	assert.ErrorIs(t, err, datasource.ErrDuplicate)

	_, err = s.Update(ctx, "missing", tour.Document{"price": 1.0})
	assert.ErrorIs(t, err, datasource.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t, false)
	id := idOf(t, s, "The Sea Explorer")

	require.NoError(t, s.Delete(ctx, id))
	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, datasource.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), datasource.ErrNotFound)
}
