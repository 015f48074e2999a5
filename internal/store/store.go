// Package store wraps the primary document store: bounded-timeout
// connection, full-collection snapshot reads, and the change stream that
// drives the pipeline.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config identifies the store, database, and collection to mirror.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// Store is an open connection to the primary store, scoped to the mirrored
// collection. A pipeline session owns exactly one Store and discards it
// wholesale on restart.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// Connect opens a connection and verifies it with a ping, both bounded by
// cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("store: connecting to %s: %w", cfg.Database, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// Best-effort teardown of the half-open client.
		_ = client.Disconnect(context.WithoutCancel(ctx))

		return nil, fmt.Errorf("store: pinging %s: %w", cfg.Database, err)
	}

	logger.Info("connected to primary store",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger,
	}, nil
}

// Close disconnects from the store.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("store: disconnecting: %w", err)
	}

	return nil
}

// SnapshotAll reads every document in the collection in natural iteration
// order, for the snapshot bootstrap.
func (s *Store) SnapshotAll(ctx context.Context) ([]bson.M, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("store: snapshot query: %w", err)
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: reading snapshot: %w", err)
	}

	s.logger.Info("snapshot read complete", slog.Int("documents", len(docs)))

	return docs, nil
}

// Watch opens the collection's change stream with full-document lookup on
// updates — partial delta events are insufficient for row re-encoding.
func (s *Store) Watch(ctx context.Context) (*mongo.ChangeStream, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := s.coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: opening change stream: %w", err)
	}

	return cs, nil
}
