package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/cesink/api/responses"
	"github.com/angelmondragon/cesink/internal/sink"
	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// TimeProber is the liveness dependency.
type TimeProber interface {
	Now(ctx context.Context) (string, error)
}

func HealthStarted() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func HealthReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}
}

// HealthLive answers with the database's current time.
func HealthLive(prober TimeProber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prober == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "liveness prober unavailable"))
			return
		}

		now, err := prober.Now(r.Context())
		if errors.Is(err, sink.ErrTimeNotConvertible) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "Could not convert time."))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "liveness query"))
			return
		}

		responses.WriteAccepted(w, now)
	}
}
