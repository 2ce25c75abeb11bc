package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/cesink/pkg/config"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func TestPing(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
	if client.Dialect() != "sqlite" {
		t.Fatalf("unexpected dialect %q", client.Dialect())
	}
}

func TestNewAppliesPoolSize(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "pool.db"),
		PoolSize: 3,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("expected max open connections 3, got %d", got)
	}
}

func TestPostgresDialectorUsesExtendedProtocol(t *testing.T) {
	d, ok := dialector(config.DBConfig{Driver: "postgres", DSN: "postgres://sink@db.internal/events"}).(*postgres.Dialector)
	if !ok {
		t.Fatalf("expected postgres dialector")
	}
	if d.Config.PreferSimpleProtocol {
		t.Fatalf("inserts must bind parameters server side, simple protocol is enabled")
	}
	if d.Config.DSN != "postgres://sink@db.internal/events" {
		t.Fatalf("unexpected dsn %q", d.Config.DSN)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error without DSN")
	}
}

func TestExecAndRaw(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	ctx := context.Background()

	if err := client.Exec(ctx, "CREATE TABLE things (name TEXT)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := client.Exec(ctx, "INSERT INTO things (name) VALUES (?)", "a").Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	var count int64
	if err := client.Raw(ctx, "SELECT COUNT(*) FROM things").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestIsUndefinedTable(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	err := client.Raw(context.Background(), "SELECT 1 FROM missing_table").Scan(&struct{}{}).Error
	if !IsUndefinedTable(err) {
		t.Fatalf("expected sqlite missing table to be recognised, got %v", err)
	}

	if !IsUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Fatal("expected pgx undefined_table to be recognised")
	}
	if !IsUndefinedTable(&pq.Error{Code: "42P01"}) {
		t.Fatal("expected pq undefined_table to be recognised")
	}
	if IsUndefinedTable(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not a missing table")
	}
	if IsUndefinedTable(errors.New("connection refused")) || IsUndefinedTable(nil) {
		t.Fatal("unexpected match")
	}
}
