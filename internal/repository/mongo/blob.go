// Package mongo provides a domain.BlobStorage backed by a MongoDB collection,
// one document per key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventcatalog/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection holding the blobs.
const CollectionName = "blobs"

// Config holds configuration for the MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// collection is the subset of *mongo.Collection the storage uses.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type blobDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// BlobStorage stores blobs in a MongoDB collection.
type BlobStorage struct {
	client *mongo.Client
	coll   collection
	now    func() time.Time
}

// Connect connects to MongoDB, verifies the connection and returns the storage.
func Connect(ctx context.Context, cfg Config) (*BlobStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	s := newBlobStorage(client.Database(cfg.Database).Collection(CollectionName))
	s.client = client
	return s, nil
}

func newBlobStorage(c collection) *BlobStorage {
	return &BlobStorage{coll: c, now: time.Now}
}

// Close disconnects the client.
func (s *BlobStorage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *BlobStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var doc blobDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %q: %w", key, err)
	}
	return doc.Value, nil
}

func (s *BlobStorage) Set(ctx context.Context, key string, value []byte) error {
	doc := blobDocument{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set blob %q: %w", key, err)
	}
	return nil
}

func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}
