package sink

import (
	"context"
	"time"

	"github.com/angelmondragon/cesink/internal/events"
	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
	"github.com/angelmondragon/cesink/pkg/logger"
	"github.com/angelmondragon/cesink/pkg/metrics"
)

// Service turns received events into table rows.
type Service interface {
	Ingest(ctx context.Context, env events.Envelope) (*IngestResult, error)
	Target() Target
}

// IngestResult describes a committed insert.
type IngestResult struct {
	Table    string
	Degraded []string
}

// ServiceParams wires the sink service.
type ServiceParams struct {
	Repo    Repository
	Target  Target
	Logger  *logger.Logger
	Metrics *metrics.IngestMetrics
}

type service struct {
	repo    Repository
	target  Target
	logg    *logger.Logger
	metrics *metrics.IngestMetrics
}

// NewService validates dependencies and returns the ingest service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sink repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if err := params.Target.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid sink target")
	}
	return &service{
		repo:    params.Repo,
		target:  params.Target,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (s *service) Target() Target {
	return s.target
}

// Ingest normalizes env for the configured shape and inserts one row.
// Fields that cannot be coerced are logged and stored as NULL; only a
// failed insert is an error.
func (s *service) Ingest(ctx context.Context, env events.Envelope) (*IngestResult, error) {
	if env.ID == "" || env.Source == "" || env.Type == "" || env.SpecVersion == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cloudevent is missing required attributes")
	}

	ctx = s.logg.WithEventID(ctx, env.ID)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_source": env.Source,
		"event_type":   env.Type,
	})
	s.logg.Debug(ctx, "received cloudevent")

	row := events.Normalize(s.target.Shape, env)
	degraded := make([]string, 0, len(row.Warnings))
	for _, w := range row.Warnings {
		s.logg.Warn(s.logg.WithField(ctx, "column", w.Column), w.Err.Error())
		s.metrics.IncDegraded(w.Column)
		degraded = append(degraded, w.Column)
	}

	start := time.Now()
	err := s.repo.Insert(ctx, row)
	s.metrics.ObserveInsert(s.target.Shape.Name(), time.Since(start), err)
	if err != nil {
		s.logg.Error(ctx, "insert failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert row")
	}

	return &IngestResult{
		Table:    s.target.Qualified(),
		Degraded: degraded,
	}, nil
}
