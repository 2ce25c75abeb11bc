package controllers

import (
	"fmt"
	"net/http"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"github.com/angelmondragon/cesink/api/responses"
	"github.com/angelmondragon/cesink/api/validators"
	"github.com/angelmondragon/cesink/internal/events"
	"github.com/angelmondragon/cesink/internal/sink"
	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// IngestEvent accepts one CloudEvent in binary or structured mode and
// stores it as a row.
func IngestEvent(svc sink.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sink service unavailable"))
			return
		}

		ce, err := cehttp.NewEventFromHTTPRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request is not a cloudevent"))
			return
		}

		env := events.FromCloudEvent(*ce)
		if err := validators.Envelope(env); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Ingest(r.Context(), env)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteAccepted(w, fmt.Sprintf("Inserted row in %s.", res.Table))
	}
}
