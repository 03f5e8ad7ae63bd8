package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askbot/config"
)

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	store, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	defer store.Close()

	db := store.SQLiteDB()
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_asks (id TEXT PRIMARY KEY, outcome TEXT)`)
	require.NoError(t, err)

	const goroutines = 10
	const insertsPerGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*insertsPerGoroutine)

	// each chat command is handled on its own goroutine, so writes overlap
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < insertsPerGoroutine; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, err := db.ExecContext(ctx, `INSERT INTO test_asks (id, outcome) VALUES (?, ?)`,
					fmt.Sprintf("%d-%d", id, j), "answer")
				cancel()
				if err != nil {
					errs <- fmt.Errorf("goroutine %d insert %d: %w", id, j, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM test_asks").Scan(&count))
	assert.Equal(t, goroutines*insertsPerGoroutine, count)
}

func TestSQLiteInMemory(t *testing.T) {
	store, err := New(context.Background(), Config{Type: TypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, TypeSQLite, store.Type())
	assert.NotNil(t, store.SQLiteDB())
	assert.Nil(t, store.PostgreSQLPool())
	assert.Nil(t, store.MongoDatabase())

	_, err = store.SQLiteDB().Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)
	_, err = store.SQLiteDB().Exec(`INSERT INTO t VALUES (1)`)
	require.NoError(t, err)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Type: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")

	_, err = New(ctx, Config{Type: TypePostgreSQL})
	require.Error(t, err)

	_, err = New(ctx, Config{Type: TypeMongoDB})
	require.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	s := config.Defaults()
	s.Storage.PostgreSQL.URL = "postgres://localhost/askbot"

	cfg := ConfigFrom(s.Storage)
	assert.Equal(t, TypeSQLite, cfg.Type)
	assert.Equal(t, "data/askbot.db", cfg.SQLite.Path)
	assert.Equal(t, "postgres://localhost/askbot", cfg.PostgreSQL.URL)
	assert.Equal(t, 10, cfg.PostgreSQL.MaxConns)
	assert.Equal(t, "askbot", cfg.MongoDB.Database)
}
