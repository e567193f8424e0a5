package tours

import (
	"context"
	"errors"
	"fmt"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/cmd/natours/datasource"
	"github.com/SanteonNL/natours/cmd/natours/metrics"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog"
)

// immutable fields are never taken from a client document.
var immutable = []string{tour.FieldID, tour.FieldVersion, tour.FieldCreatedAt}

type TourService struct {
	store   datasource.Store
	builder *apiquery.Builder
	log     zerolog.Logger
}

// NewTourService creates the tour service. With strictPaging set, pages
// starting past the last matching tour are rejected.
func NewTourService(store datasource.Store, strictPaging bool, log zerolog.Logger) *TourService {
	policy := apiquery.DefaultPolicy()
	policy.Filterable = tour.FilterableFields
	policy.StrictPaging = strictPaging

	return &TourService{
		store:   store,
		builder: apiquery.NewBuilder(policy, apiquery.WithCounter(store), apiquery.WithLogger(log)),
		log:     log.With().Str("component", "tours").Logger(),
	}
}

// TopCheapParams returns the parameters behind the top-5-cheap alias.
func TopCheapParams() apiquery.Params {
	return apiquery.Params{
		apiquery.ParamLimit:  "5",
		apiquery.ParamSort:   "-ratingsAverage,price",
		apiquery.ParamFields: "name,price,ratingsAverage,summary,difficulty",
	}
}

// List returns the tours selected by params.
func (s *TourService) List(ctx context.Context, params apiquery.Params) ([]apiquery.Record, error) {
	q, err := s.builder.Build(ctx, s.store.Query(), params)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	records, err := q.Exec(ctx)
	if err != nil {
		if s.reject(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}

	s.log.Debug().Int("results", len(records)).Msg("Listed tours")
	return records, nil
}

// reject counts err when it was caused by the request and reports whether
// it was.
func (s *TourService) reject(err error) bool {
	var reason string
	switch {
	case errors.Is(err, apiquery.ErrInvalidQueryParameters):
		reason = "invalid_parameters"
	case errors.Is(err, apiquery.ErrInvalidLimit), errors.Is(err, apiquery.ErrInvalidPagination):
		reason = "invalid_paging"
	case errors.Is(err, apiquery.ErrPageOutOfRange):
		reason = "page_out_of_range"
	case errors.Is(err, apiquery.ErrMixedProjection):
		reason = "mixed_projection"
	case errors.Is(err, tour.ErrCast):
		reason = "cast"
	default:
		return false
	}
	metrics.QueryRejections.WithLabelValues(reason).Inc()
	s.log.Debug().Err(err).Str("reason", reason).Msg("Rejected tour query")
	return true
}

func (s *TourService) Get(ctx context.Context, id string) (*tour.Tour, error) {
	return s.store.Get(ctx, id)
}

// Create validates doc and stores it as a new tour.
func (s *TourService) Create(ctx context.Context, doc tour.Document) (*tour.Tour, error) {
	t, err := tour.FromDocument(withoutImmutable(doc))
	if err != nil {
		return nil, err
	}
	t.ID = datasource.NewID()

	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", t.ID).Str("name", t.Name).Msg("Created tour")
	return t, nil
}

// Update merges patch into the stored tour and revalidates the result.
func (s *TourService) Update(ctx context.Context, id string, patch tour.Document) (*tour.Tour, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := existing.Document()
	for k, v := range withoutImmutable(patch) {
		doc[k] = v
	}

	updated, err := tour.FromDocument(doc)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Version = existing.Version + 1

	if err := s.store.Update(ctx, updated); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", id).Int("version", updated.Version).Msg("Updated tour")
	return updated, nil
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("Deleted tour")
	return nil
}

func withoutImmutable(doc tour.Document) tour.Document {
	out := make(tour.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range immutable {
		delete(out, k)
	}
	return out
}
