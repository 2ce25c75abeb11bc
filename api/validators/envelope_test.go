package validators

import (
	"net/http"
	"testing"

	"github.com/angelmondragon/cesink/internal/events"
	pkgerrors "github.com/angelmondragon/cesink/pkg/errors"
)

func TestEnvelopeAcceptsRequiredAttributes(t *testing.T) {
	env := events.Envelope{ID: "1", Source: "src", Type: "t", SpecVersion: "1.0"}
	if err := Envelope(env); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}
}

func TestEnvelopeReportsMissingAttributes(t *testing.T) {
	err := Envelope(events.Envelope{ID: "1", SpecVersion: "1.0"})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	if status := pkgerrors.MetadataFor(typed.Code()).HTTPStatus; status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if want := "cloudevent is missing required attributes: source, type"; typed.Body() != want {
		t.Fatalf("expected %q, got %q", want, typed.Body())
	}

	details, ok := typed.Details().(map[string]string)
	if !ok || details["source"] != "is required" || details["type"] != "is required" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}
