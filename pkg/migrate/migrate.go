package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/cesink/internal/sink"
	"github.com/angelmondragon/cesink/pkg/db"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// tableVersion is the single Go migration that provisions the sink table.
const tableVersion int64 = 1

// NewProvider returns a goose provider carrying the table DDL as a Go
// migration. Versioning is disabled: the DDL is idempotent and the sink
// keeps no goose version table next to the event table.
func NewProvider(client *db.Client, target sink.Target) (*goose.Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return nil, fmt.Errorf("extracting sql.DB: %w", err)
	}

	ddl := sink.CreateTableSQL(target)
	up := &goose.GoFunc{
		RunDB: func(ctx context.Context, conn *sql.DB) error {
			_, err := conn.ExecContext(ctx, ddl)
			return err
		},
	}

	provider, err := goose.NewProvider(
		dialectFor(client),
		sqlDB,
		nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithDisableVersioning(true),
		goose.WithGoMigrations(goose.NewGoMigration(tableVersion, up, nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating goose provider: %w", err)
	}
	return provider, nil
}

func dialectFor(client *db.Client) goose.Dialect {
	if client.Dialect() == "sqlite" {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Up provisions the sink table through goose.
func Up(ctx context.Context, client *db.Client, target sink.Target, logg *logger.Logger) error {
	provider, err := NewProvider(client, target)
	if err != nil {
		return err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"table":   target.Qualified(),
			"dialect": client.Dialect(),
		})
		logg.Info(ctx, "running goose provisioning")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "applied", len(results)), "goose provisioning completed")
	}
	return nil
}

// Status reports whether the sink table exists.
func Status(ctx context.Context, client *db.Client, target sink.Target) (bool, error) {
	prov, err := sink.NewProvisioner(client, target, nil)
	if err != nil {
		return false, err
	}
	return prov.Exists(ctx)
}
