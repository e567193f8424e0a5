package datasource

import (
	"context"
	"sync"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog"
)

// MemoryStore keeps tours in process memory. It backs development setups
// and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	tours []tour.Tour
	log   zerolog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		log: log.With().Str("component", "memory_store").Logger(),
	}
}

// LoadFile adds the tours of a JSON file.
func (s *MemoryStore) LoadFile(path string) error {
	tours, err := ReadToursFile(path)
	if err != nil {
		return err
	}
	for _, t := range tours {
		if err := s.Create(context.Background(), t); err != nil {
			return err
		}
	}
	s.log.Info().
		Str("file", path).
		Int("tours", len(tours)).
		Msg("Loaded tours")
	return nil
}

func (s *MemoryStore) Query() apiquery.Query {
	return newQuery(s)
}

func (s *MemoryStore) visible() []apiquery.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]apiquery.Record, 0, len(s.tours))
	for _, t := range s.tours {
		if t.SecretTour {
			continue
		}
		records = append(records, t.Record())
	}
	return records
}

func (s *MemoryStore) filtered(filter apiquery.Filter) ([]apiquery.Record, error) {
	var out []apiquery.Record
	for _, rec := range s.visible() {
		ok, err := matches(rec, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) exec(_ context.Context, c chain) ([]apiquery.Record, error) {
	projection, err := apiquery.ParseProjection(c.fields)
	if err != nil {
		return nil, err
	}

	records, err := s.filtered(c.filter)
	if err != nil {
		return nil, err
	}

	sortRecords(records, c.sortKeys())

	if c.skip > 0 {
		if c.skip >= len(records) {
			records = nil
		} else {
			records = records[c.skip:]
		}
	}
	if c.limit > 0 && c.limit < len(records) {
		records = records[:c.limit]
	}

	out := make([]apiquery.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, projection.Apply(rec, tour.FieldID))
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, filter apiquery.Filter) (int64, error) {
	records, err := s.filtered(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*tour.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		t := s.tours[i]
		return &t, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, t *tour.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tours {
		if existing.Name == t.Name || existing.ID == t.ID {
			return ErrDuplicate
		}
	}
	s.tours = append(s.tours, *t)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, t *tour.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(t.ID)
	if i < 0 {
		return ErrNotFound
	}
	for j, existing := range s.tours {
		if j != i && existing.Name == t.Name {
			return ErrDuplicate
		}
	}
	s.tours[i] = *t
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.tours = append(s.tours[:i], s.tours[i+1:]...)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.tours))
	s.tours = nil
	return n, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// indexOf finds a visible tour. Callers hold the lock.
func (s *MemoryStore) indexOf(id string) int {
	for i, t := range s.tours {
		if t.ID == id && !t.SecretTour {
			return i
		}
	}
	return -1
}
