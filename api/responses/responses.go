package responses

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// WriteText writes a plain-text body with the given status.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		log.Printf(`{"level":"error","msg":"failed to write response","err":"%v"}`, err)
	}
}

// WriteAccepted is the success reply for every sink endpoint.
func WriteAccepted(w http.ResponseWriter, body string) {
	WriteText(w, http.StatusAccepted, body)
}

// WriteError logs err with its dump and replies with the status mapped from
// its code. Untyped errors are treated as internal.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(typed).Fields())
		logg.Error(ctx, "request.error", err)
	}

	WriteText(w, meta.HTTPStatus, typed.Body())
}
