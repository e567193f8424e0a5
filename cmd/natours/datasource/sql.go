package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const toursSchema = `
CREATE TABLE IF NOT EXISTS tours (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL UNIQUE,
	slug             TEXT NOT NULL DEFAULT '',
	duration         DOUBLE PRECISION NOT NULL,
	max_group_size   INTEGER NOT NULL,
	difficulty       TEXT NOT NULL,
	ratings_average  DOUBLE PRECISION NOT NULL DEFAULT 4.5,
	ratings_quantity INTEGER NOT NULL DEFAULT 0,
	price            DOUBLE PRECISION NOT NULL,
	price_discount   DOUBLE PRECISION,
	summary          TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	image_cover      TEXT NOT NULL,
	images           JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	start_dates      JSONB NOT NULL DEFAULT '[]',
	secret_tour      BOOLEAN NOT NULL DEFAULT false,
	version          INTEGER NOT NULL DEFAULT 0
)`

const insertTour = `
INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty, ratings_average,
	ratings_quantity, price, price_discount, summary, description, image_cover, images,
	created_at, start_dates, secret_tour, version)
VALUES (:id, :name, :slug, :duration, :max_group_size, :difficulty, :ratings_average,
	:ratings_quantity, :price, :price_discount, :summary, :description, :image_cover, :images,
	:created_at, :start_dates, :secret_tour, :version)`

const updateTour = `
UPDATE tours SET name = :name, slug = :slug, duration = :duration, max_group_size = :max_group_size,
	difficulty = :difficulty, ratings_average = :ratings_average, ratings_quantity = :ratings_quantity,
	price = :price, price_discount = :price_discount, summary = :summary, description = :description,
	image_cover = :image_cover, images = :images, created_at = :created_at, start_dates = :start_dates,
	secret_tour = :secret_tour, version = :version
WHERE id = :id AND secret_tour = false`

// pq error code for unique_violation
const uniqueViolation = "23505"

var sqlOperators = map[string]string{
	"$gt":  ">",
	"$gte": ">=",
	"$lt":  "<",
	"$lte": "<=",
	"$ne":  "<>",
	"$eq":  "=",
}

// SQLStore keeps tours in PostgreSQL. Writes go through sqlx, queries are
// built with gorm on the same connection pool.
type SQLStore struct {
	db   *sqlx.DB
	gorm *gorm.DB
	log  zerolog.Logger
}

// NewSQLStore wraps an open postgres connection.
func NewSQLStore(db *sqlx.DB, log zerolog.Logger) (*SQLStore, error) {
	gdb, err := gorm.Open("postgres", db.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm on postgres connection: %w", err)
	}
	gdb.LogMode(false)

	return &SQLStore{
		db:   db,
		gorm: gdb,
		log:  log.With().Str("component", "sql_store").Logger(),
	}, nil
}

// Migrate creates the tours table when it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, toursSchema); err != nil {
		return fmt.Errorf("failed to create tours table: %w", err)
	}
	s.log.Debug().Msg("Tours table ready")
	return nil
}

func (s *SQLStore) Query() apiquery.Query {
	return newQuery(s)
}

func (s *SQLStore) visible() *gorm.DB {
	return s.gorm.Model(&tour.Tour{}).Where("secret_tour = ?", false)
}

func (s *SQLStore) exec(_ context.Context, c chain) ([]apiquery.Record, error) {
	projection, err := apiquery.ParseProjection(c.fields)
	if err != nil {
		return nil, err
	}

	db, err := applySQLFilter(s.visible(), c.filter)
	if err != nil {
		return nil, err
	}

	for _, key := range c.sortKeys() {
		f, ok := tour.FieldByName(key.Field)
		if !ok {
			continue
		}
		if key.Desc {
			db = db.Order(f.Column + " DESC")
		} else {
			db = db.Order(f.Column + " ASC")
		}
	}

	db = db.Select(selectColumns(projection))
	if c.skip > 0 {
		db = db.Offset(c.skip)
	}
	if c.limit > 0 {
		db = db.Limit(c.limit)
	}

	var tours []tour.Tour
	if err := db.Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	records := make([]apiquery.Record, 0, len(tours))
	for _, t := range tours {
		records = append(records, projection.Apply(t.Record(), tour.FieldID))
	}
	return records, nil
}

// applySQLFilter adds one WHERE clause per filter entry. Conditions that can
// never hold (unknown fields or unrecognised operators) match nothing.
func applySQLFilter(db *gorm.DB, filter apiquery.Filter) (*gorm.DB, error) {
	for field, cond := range filter {
		f, ok := tour.FieldByName(field)
		if !ok {
			db = db.Where("1 = 0")
			continue
		}

		switch c := cond.(type) {
		case string:
			v, err := tour.Cast(field, c)
			if err != nil {
				return nil, err
			}
			db = db.Where(f.Column+" = ?", v)

		case []string:
			values := make([]any, 0, len(c))
			for _, raw := range c {
				v, err := tour.Cast(field, raw)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			db = db.Where(f.Column+" IN (?)", values)

		case map[string]any:
			for op, operand := range c {
				sqlOp, known := sqlOperators[op]
				raw, isString := operand.(string)
				if !known || !isString {
					db = db.Where("1 = 0")
					continue
				}
				v, err := tour.Cast(field, raw)
				if err != nil {
					return nil, err
				}
				db = db.Where(f.Column+" "+sqlOp+" ?", v)
			}

		default:
			return nil, fmt.Errorf("unsupported filter value %T for %s", cond, field)
		}
	}
	return db, nil
}

func selectColumns(p apiquery.Projection) []string {
	var cols []string
	for _, f := range tour.Fields {
		if p.Keeps(f.Name, tour.FieldID) {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

func (s *SQLStore) Count(_ context.Context, filter apiquery.Filter) (int64, error) {
	db, err := applySQLFilter(s.visible(), filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("error counting tours: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*tour.Tour, error) {
	var t tour.Tour
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tours WHERE id = $1 AND secret_tour = false", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading tour %s: %w", id, err)
	}
	return &t, nil
}

func (s *SQLStore) Create(ctx context.Context, t *tour.Tour) error {
	if _, err := s.db.NamedExecContext(ctx, insertTour, t); err != nil {
		return mapSQLError(err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, t *tour.Tour) error {
	res, err := s.db.NamedExecContext(ctx, updateTour, t)
	if err != nil {
		return mapSQLError(err)
	}
	return expectRow(res)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tours WHERE id = $1 AND secret_tour = false", id)
	if err != nil {
		return fmt.Errorf("error deleting tour %s: %w", id, err)
	}
	return expectRow(res)
}

func (s *SQLStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tours")
	if err != nil {
		return 0, fmt.Errorf("error deleting tours: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapSQLError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, strings.TrimSpace(pqErr.Detail))
	}
	return fmt.Errorf("error writing tour: %w", err)
}
