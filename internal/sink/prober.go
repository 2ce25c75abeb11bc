package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelmondragon/cesink/pkg/db"
)

const (
	postgresNowQuery = `SELECT TO_CHAR(CURRENT_TIMESTAMP, 'YYYY-MM-DD"T"HH24:MI:SS') AS time`
	sqliteNowQuery   = `SELECT strftime('%Y-%m-%dT%H:%M:%S', 'now') AS time`
)

// ErrTimeNotConvertible is returned when the database answered without a usable time.
var ErrTimeNotConvertible = errors.New("could not convert time")

// Prober checks that the pool can reach the database.
type Prober struct {
	db *db.Client
}

func NewProber(client *db.Client) (*Prober, error) {
	if client == nil {
		return nil, errors.New("database client required")
	}
	return &Prober{db: client}, nil
}

// Now asks the database for its current time, formatted YYYY-MM-DDTHH:MM:SS.
func (p *Prober) Now(ctx context.Context) (string, error) {
	query := postgresNowQuery
	if p.db.Dialect() == "sqlite" {
		query = sqliteNowQuery
	}

	var now sql.NullString
	if err := p.db.Raw(ctx, query).Row().Scan(&now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTimeNotConvertible
		}
		return "", fmt.Errorf("querying database time: %w", err)
	}
	if !now.Valid || now.String == "" {
		return "", ErrTimeNotConvertible
	}
	return now.String, nil
}
