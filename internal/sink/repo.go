package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/cesink/internal/events"
	"github.com/angelmondragon/cesink/pkg/db"
)

// Repository persists normalized rows.
type Repository interface {
	Insert(ctx context.Context, row events.Row) error
}

type repositoryImpl struct {
	db     *db.Client
	target Target
}

// NewRepository returns a repository writing to target through the shared pool.
func NewRepository(client *db.Client, target Target) (Repository, error) {
	if client == nil {
		return nil, errors.New("database client required")
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	return &repositoryImpl{db: client, target: target}, nil
}

// Insert writes exactly one row with a single statement. Values are bound
// positionally.
func (r *repositoryImpl) Insert(ctx context.Context, row events.Row) error {
	if len(row.Columns) == 0 || len(row.Columns) != len(row.Values) {
		return fmt.Errorf("row has %d columns and %d values", len(row.Columns), len(row.Values))
	}
	return r.db.Exec(ctx, insertSQL(r.target, row.Columns), row.Values...).Error
}

func insertSQL(target Target, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", target.Qualified(), strings.Join(columns, ", "), placeholders)
}
