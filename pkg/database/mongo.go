// Package database owns the MongoDB client and the BSON registry used by
// every repository.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo bundles the client and the application database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect opens the client, verifies it with a ping and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("database: MONGODB_URI is not set")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(Registry()).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(10 * time.Second).
		SetAppName("plantnet")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &Mongo{Client: client, DB: client.Database(dbName)}, nil
}

// Collection returns a handle on the named collection.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Index describes one index to create on a collection.
type Index struct {
	Collection string
	Keys       interface{}
	Unique     bool
	TTL        time.Duration
	Name       string
}

// EnsureIndexes creates the given indexes. Existing identical indexes are
// a no-op on the server.
func (m *Mongo) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, ix := range indexes {
		opts := options.Index()
		if ix.Unique {
			opts.SetUnique(true)
		}
		if ix.TTL > 0 {
			opts.SetExpireAfterSeconds(int32(ix.TTL.Seconds()))
		}
		if ix.Name != "" {
			opts.SetName(ix.Name)
		}

		_, err := m.Collection(ix.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    ix.Keys,
			Options: opts,
		})
		if err != nil {
			return fmt.Errorf("database: index %s on %s: %w", ix.Name, ix.Collection, err)
		}
	}
	return nil
}
