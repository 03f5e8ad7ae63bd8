//go:build integration

package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"

	"askbot/internal/storage"
)

func sampleEntries(n int) []*LogEntry {
	entries := make([]*LogEntry, n)
	for i := range entries {
		entries[i] = &LogEntry{
			ID:          uuid.NewString(),
			Timestamp:   time.Now().UTC(),
			DurationNs:  int64(i),
			RequestID:   "req-integration",
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Outcome:     "answer",
			PromptChars: i,
		}
	}
	return entries
}

func TestPostgreSQLStore_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("askbot_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	pgURL, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := storage.New(ctx, storage.Config{
		Type:       storage.TypePostgreSQL,
		PostgreSQL: storage.PostgreSQLConfig{URL: pgURL, MaxConns: 4},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logStore, err := NewLogStore(ctx, store, 7)
	require.NoError(t, err)

	entries := sampleEntries(25)
	require.NoError(t, logStore.WriteBatch(ctx, entries))
	// duplicates are ignored
	require.NoError(t, logStore.WriteBatch(ctx, entries[:3]))

	var count int
	require.NoError(t, store.PostgreSQLPool().QueryRow(ctx,
		"SELECT COUNT(*) FROM ask_logs WHERE request_id = $1", "req-integration").Scan(&count))
	assert.Equal(t, 25, count)

	// expired rows are removed by cleanup
	old := sampleEntries(1)
	old[0].Timestamp = time.Now().AddDate(0, 0, -30)
	require.NoError(t, logStore.WriteBatch(ctx, old))
	logStore.(*PostgreSQLStore).cleanup()

	require.NoError(t, store.PostgreSQLPool().QueryRow(ctx, "SELECT COUNT(*) FROM ask_logs").Scan(&count))
	assert.Equal(t, 25, count)

	require.NoError(t, logStore.Close())
}

func TestMongoDBStore_Integration(t *testing.T) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(mongoContainer) })

	mongoURL, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := storage.New(ctx, storage.Config{
		Type:    storage.TypeMongoDB,
		MongoDB: storage.MongoDBConfig{URL: mongoURL, Database: "askbot_test"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logStore, err := NewLogStore(ctx, store, 30)
	require.NoError(t, err)

	entries := sampleEntries(10)
	require.NoError(t, logStore.WriteBatch(ctx, entries))
	// a batch with one duplicate still inserts the rest
	require.NoError(t, logStore.WriteBatch(ctx, append(entries[:1], sampleEntries(2)...)))

	count, err := store.MongoDatabase().Collection("ask_logs").CountDocuments(ctx, bson.D{{Key: "request_id", Value: "req-integration"}})
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
