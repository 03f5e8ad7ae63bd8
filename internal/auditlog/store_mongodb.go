package auditlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBStore implements LogStore for MongoDB.
// Retention is enforced by a TTL index rather than a cleanup loop.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates the ask_logs indexes, including the TTL index
// when retention is configured.
func NewMongoDBStore(ctx context.Context, database *mongo.Database, retentionDays int) (*MongoDBStore, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}

	collection := database.Collection(tableName)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider", Value: 1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}}},
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
	}
	tsIndex := mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: 1}}}
	if retentionDays > 0 {
		tsIndex.Options = options.Index().SetExpireAfterSeconds(int32(retentionDays * 24 * 60 * 60))
	}
	indexes = append(indexes, tsIndex)

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// indexes may already exist with other options
		slog.Warn("failed to create some MongoDB indexes", "error", err)
	}

	return &MongoDBStore{collection: collection}, nil
}

// WriteBatch inserts entries unordered so one duplicate does not stop the rest.
func (s *MongoDBStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]any, len(entries))
	for i, e := range entries {
		docs[i] = e
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			slog.Warn("partial ask log insert failure",
				"total", len(entries),
				"errors", len(bulkErr.WriteErrors),
			)
			return nil
		}
		return fmt.Errorf("failed to insert ask logs: %w", err)
	}
	return nil
}

// Flush is a no-op for MongoDB as writes are synchronous.
func (s *MongoDBStore) Flush(_ context.Context) error {
	return nil
}

// Close is a no-op; the client belongs to the storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
