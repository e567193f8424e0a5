package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/cmd/natours/config"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound  = errors.New("no tour found with that ID")
	ErrDuplicate = errors.New("a tour with that name already exists")
)

// Store persists tours. Reads never return secret tours.
type Store interface {
	// Query starts a new tour query.
	Query() apiquery.Query
	Count(ctx context.Context, filter apiquery.Filter) (int64, error)
	Get(ctx context.Context, id string) (*tour.Tour, error)
	Create(ctx context.Context, t *tour.Tour) error
	Update(ctx context.Context, t *tour.Tour) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	Close() error
}

// Open connects the store selected by cfg.DataSource.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.DataSource {
	case config.DataSourceMemory:
		store := NewMemoryStore(log)
		if cfg.DataFile != "" {
			if err := store.LoadFile(cfg.DataFile); err != nil {
				return nil, err
			}
		}
		return store, nil

	case config.DataSourcePostgres:
		db, err := sqlx.Connect("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store, err := NewSQLStore(db, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case config.DataSourceMongo:
		store, err := NewMongoStore(ctx, cfg.MongoURI(), cfg.DatabaseName, log)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported data source: %s", cfg.DataSource)
	}
}

// ReadTours decodes a JSON array of tour documents. Documents without an
// id get one assigned.
func ReadTours(r io.Reader) ([]*tour.Tour, error) {
	var docs []tour.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode tours: %w", err)
	}

	tours := make([]*tour.Tour, 0, len(docs))
	for i, doc := range docs {
		// numeric ids from older dev data are not valid tour ids
		if _, ok := doc["id"].(string); !ok {
			delete(doc, "id")
		}
		t, err := tour.FromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("tour %d: %w", i, err)
		}
		if t.ID == "" {
			t.ID = NewID()
		}
		tours = append(tours, t)
	}
	return tours, nil
}

// ReadToursFile reads tours from a JSON file.
func ReadToursFile(path string) ([]*tour.Tour, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tours file %s: %w", path, err)
	}
	defer file.Close()
	return ReadTours(file)
}
