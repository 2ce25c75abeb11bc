package events

import (
	"time"
)

// Envelope is a parsed CloudEvent as handed over by the transport layer.
// Optional string attributes use "" for absent.
type Envelope struct {
	ID              string `validate:"required"`
	Source          string `validate:"required"`
	Type            string `validate:"required"`
	SpecVersion     string `validate:"required"`
	DataContentType string
	DataSchema      string
	Subject         string
	Time            *time.Time

	Extensions map[string]ExtensionValue
	Data       Payload
}

// Extension returns the named extension and whether it was present.
func (e Envelope) Extension(name string) (ExtensionValue, bool) {
	if e.Extensions == nil {
		return ExtensionValue{}, false
	}
	v, ok := e.Extensions[name]
	return v, ok
}
