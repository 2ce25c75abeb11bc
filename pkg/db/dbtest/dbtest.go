// Package dbtest opens throwaway SQLite-backed clients for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/cesink/pkg/config"
	"github.com/angelmondragon/cesink/pkg/db"
)

// Schema is the schema name SQLite answers to for the primary database.
const Schema = "main"

// NewSQLite returns a client backed by a fresh database file under t.TempDir.
// A pool size of 1 serialises writers, which SQLite needs under concurrency.
func NewSQLite(t testing.TB, poolSize int) *db.Client {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "sink.db"),
		PoolSize: poolSize,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
