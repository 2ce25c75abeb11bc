package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/cesink/internal/events"
	"github.com/angelmondragon/cesink/pkg/config"
	"github.com/angelmondragon/cesink/pkg/db"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// Target names the destination table. Schema and table come from operator
// configuration and are interpolated into SQL as-is; event data never is.
type Target struct {
	Schema string
	Table  string
	Shape  events.Shape
}

// TargetFromConfig resolves the configured table and shape.
func TargetFromConfig(dbCfg config.DBConfig, sinkCfg config.SinkConfig) (Target, error) {
	shape, err := events.ShapeByName(sinkCfg.Shape)
	if err != nil {
		return Target{}, err
	}
	target := Target{Schema: dbCfg.Schema, Table: dbCfg.Table, Shape: shape}
	return target, target.validate()
}

// Qualified renders schema.table.
func (t Target) Qualified() string {
	return t.Schema + "." + t.Table
}

func (t Target) validate() error {
	if t.Schema == "" || t.Table == "" {
		return errors.New("schema and table are required")
	}
	if t.Shape == nil {
		return errors.New("table shape is required")
	}
	return nil
}

// CreateTableSQL renders the idempotent DDL for the target's shape.
func CreateTableSQL(target Target) string {
	cols := target.Shape.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = "    " + c.Definition()
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s\n(\n%s\n);", target.Qualified(), strings.Join(defs, ",\n"))
}

// Provisioner creates the destination table when it is missing.
type Provisioner struct {
	db     *db.Client
	target Target
	logg   *logger.Logger
}

func NewProvisioner(client *db.Client, target Target, logg *logger.Logger) (*Provisioner, error) {
	if client == nil {
		return nil, errors.New("database client required")
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	return &Provisioner{db: client, target: target, logg: logg}, nil
}

// Ensure issues CREATE TABLE IF NOT EXISTS. It is safe to call on every start.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"table": p.target.Qualified(),
			"shape": p.target.Shape.Name(),
		})
		p.logg.Info(logCtx, "guaranteeing table exists")
	}
	if err := p.db.Exec(ctx, CreateTableSQL(p.target)).Error; err != nil {
		return fmt.Errorf("creating table %s: %w", p.target.Qualified(), err)
	}
	return nil
}

// Exists reports whether the destination table can be queried.
func (p *Provisioner) Exists(ctx context.Context) (bool, error) {
	var probe []map[string]any
	err := p.db.Raw(ctx, fmt.Sprintf("SELECT 1 AS present FROM %s LIMIT 1", p.target.Qualified())).Scan(&probe).Error
	if err == nil {
		return true, nil
	}
	if db.IsUndefinedTable(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking table %s: %w", p.target.Qualified(), err)
}
