package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const toursCollection = "tours"

// MongoStore keeps tours in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    zerolog.Logger
}

// NewMongoStore connects to uri and uses the tours collection of database.
func NewMongoStore(ctx context.Context, uri, database string, log zerolog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log = log.With().Str("component", "mongo_store").Logger()
	log.Info().Str("database", database).Msg("DB connection successful")

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(toursCollection),
		log:    log,
	}, nil
}

// EnsureIndexes creates the unique index on the tour name.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create tour name index: %w", err)
	}
	return nil
}

func (s *MongoStore) Query() apiquery.Query {
	return newQuery(s)
}

func (s *MongoStore) exec(ctx context.Context, c chain) ([]apiquery.Record, error) {
	projection, err := apiquery.ParseProjection(c.fields)
	if err != nil {
		return nil, err
	}
	filter, err := mongoFilter(c.filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cur, err := s.coll.Find(ctx, filter, findOptions(c, projection))
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer cur.Close(ctx)

	var tours []tour.Tour
	if err := cur.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("error decoding tours: %w", err)
	}
	s.log.Debug().Dur("took", time.Since(start)).Int("tours", len(tours)).Msg("Query finished")

	records := make([]apiquery.Record, 0, len(tours))
	for _, t := range tours {
		records = append(records, projection.Apply(t.Record(), tour.FieldID))
	}
	return records, nil
}

func mongoField(name string) string {
	if name == tour.FieldID {
		return "_id"
	}
	return name
}

// matchNothing returns a field condition no document satisfies.
// Unrecognised operators map to it so the server never sees them.
func matchNothing() bson.M {
	return bson.M{"$in": bson.A{}}
}

// knownOperators reports whether every key of ops carries the operator
// marker and every operand is a plain value.
func knownOperators(ops map[string]any) bool {
	for op, operand := range ops {
		if _, ok := operand.(string); !ok || !strings.HasPrefix(op, "$") {
			return false
		}
	}
	return true
}

// mongoFilter converts an apiquery filter into a bson filter, casting values
// to the stored field types and hiding secret tours.
func mongoFilter(filter apiquery.Filter) (bson.M, error) {
	out := bson.M{}
	for field, cond := range filter {
		switch c := cond.(type) {
		case string:
			v, err := tour.Cast(field, c)
			if err != nil {
				return nil, err
			}
			out[mongoField(field)] = v

		case []string:
			values := make(bson.A, 0, len(c))
			for _, raw := range c {
				v, err := tour.Cast(field, raw)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			out[mongoField(field)] = bson.M{"$in": values}

		case map[string]any:
			if !knownOperators(c) {
				out[mongoField(field)] = matchNothing()
				continue
			}
			ops := bson.M{}
			for op, operand := range c {
				v, err := tour.Cast(field, operand.(string))
				if err != nil {
					return nil, err
				}
				ops[op] = v
			}
			out[mongoField(field)] = ops

		default:
			return nil, fmt.Errorf("unsupported filter value %T for %s", cond, field)
		}
	}
	if _, ok := out[tour.FieldSecretTour]; !ok {
		out[tour.FieldSecretTour] = bson.M{"$ne": true}
	}
	return out, nil
}

func findOptions(c chain, projection apiquery.Projection) *options.FindOptions {
	opts := options.Find()

	if keys := c.sortKeys(); len(keys) > 0 {
		sort := bson.D{}
		for _, k := range keys {
			dir := 1
			if k.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: mongoField(k.Field), Value: dir})
		}
		opts.SetSort(sort)
	}

	if !projection.IsZero() {
		proj := bson.D{}
		for _, f := range projection.Include {
			proj = append(proj, bson.E{Key: mongoField(f), Value: 1})
		}
		for _, f := range projection.Exclude {
			proj = append(proj, bson.E{Key: mongoField(f), Value: 0})
		}
		opts.SetProjection(proj)
	}

	if c.skip > 0 {
		opts.SetSkip(int64(c.skip))
	}
	if c.limit > 0 {
		opts.SetLimit(int64(c.limit))
	}
	return opts
}

func visibleByID(id string) bson.M {
	return bson.M{"_id": id, tour.FieldSecretTour: bson.M{"$ne": true}}
}

func (s *MongoStore) Count(ctx context.Context, filter apiquery.Filter) (int64, error) {
	f, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.coll.CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("error counting tours: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*tour.Tour, error) {
	var t tour.Tour
	err := s.coll.FindOne(ctx, visibleByID(id)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading tour %s: %w", id, err)
	}
	return &t, nil
}

func (s *MongoStore) Create(ctx context.Context, t *tour.Tour) error {
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, t *tour.Tour) error {
	res, err := s.coll.ReplaceOne(ctx, visibleByID(t.ID), t)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, visibleByID(id))
	if err != nil {
		return fmt.Errorf("error deleting tour %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("error deleting tours: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return fmt.Errorf("error writing tour: %w", err)
}
