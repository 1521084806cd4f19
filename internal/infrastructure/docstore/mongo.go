package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoConfig holds the MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoStore is a Store backed by a MongoDB database
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRegistry(NewRegistry())
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("Mongo connection established",
		zap.String("database", cfg.Database),
	)

	return &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Collection returns the named collection
func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

// Ping checks the connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	s.logger.Info("Closing mongo connection")
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%s insert: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error) {
	opts := options.Update()
	if len(update.ArrayFilters) > 0 {
		filters := make([]any, 0, len(update.ArrayFilters))
		for _, f := range update.ArrayFilters {
			filters = append(filters, toBSONFilter(f))
		}
		opts.SetArrayFilters(options.ArrayFilters{Filters: filters})
	}

	res, err := c.coll.UpdateOne(ctx, toBSONFilter(filter), toBSONUpdate(update), opts)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("%s update: %w", c.coll.Name(), err)
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, toBSONFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("%s delete: %w", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, out any) error {
	cur, err := c.coll.Find(ctx, toBSONFilter(filter))
	if err != nil {
		return fmt.Errorf("%s find: %w", c.coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("%s decode: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	err := c.coll.FindOne(ctx, toBSONFilter(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocuments
	}
	if err != nil {
		return fmt.Errorf("%s find one: %w", c.coll.Name(), err)
	}
	return nil
}

func toBSONFilter(f Filter) bson.M {
	m := make(bson.M, len(f))
	for k, v := range f {
		switch cond := v.(type) {
		case InValues:
			m[k] = bson.M{"$in": bson.A(cond)}
		case Filter:
			m[k] = toBSONFilter(cond)
		default:
			m[k] = v
		}
	}
	return m
}

func toBSONUpdate(u Update) bson.M {
	m := bson.M{}
	if len(u.Set) > 0 {
		m["$set"] = bson.M(u.Set)
	}
	if len(u.Push) > 0 {
		m["$push"] = bson.M(u.Push)
	}
	if len(u.Pull) > 0 {
		pull := bson.M{}
		for path, f := range u.Pull {
			pull[path] = toBSONFilter(f)
		}
		m["$pull"] = pull
	}
	return m
}
