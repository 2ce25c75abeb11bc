package events

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"strings"
	"unicode/utf8"

	cloudevents "github.com/cloudevents/sdk-go/v2/event"
	"github.com/cloudevents/sdk-go/v2/types"
)

// FromCloudEvent copies a decoded CloudEvent into an Envelope. Extension
// values are reduced to the string/integer/boolean set the sink stores.
func FromCloudEvent(ce cloudevents.Event) Envelope {
	env := Envelope{
		ID:              ce.ID(),
		Source:          ce.Source(),
		Type:            ce.Type(),
		SpecVersion:     ce.SpecVersion(),
		DataContentType: ce.DataContentType(),
		DataSchema:      ce.DataSchema(),
		Subject:         ce.Subject(),
		Data:            payloadOf(ce),
	}
	if ts := ce.Time(); !ts.IsZero() {
		env.Time = &ts
	}
	if exts := ce.Extensions(); len(exts) > 0 {
		env.Extensions = make(map[string]ExtensionValue, len(exts))
		for name, raw := range exts {
			env.Extensions[name] = extensionOf(raw)
		}
	}
	return env
}

func extensionOf(raw any) ExtensionValue {
	switch v := raw.(type) {
	case bool:
		return BooleanValue(v)
	case int32:
		return IntegerValue(int64(v))
	case int64:
		return IntegerValue(v)
	case int:
		return IntegerValue(int64(v))
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return IntegerValue(int64(v))
		}
		return StringValue(fmt.Sprint(v))
	case string:
		return StringValue(v)
	}
	if s, err := types.Format(raw); err == nil {
		return StringValue(s)
	}
	return StringValue(fmt.Sprint(raw))
}

func payloadOf(ce cloudevents.Event) Payload {
	data := ce.Data()
	if len(data) == 0 {
		return Payload{}
	}
	if ce.DataBase64 {
		return BinaryPayload(data)
	}

	mediaType := strings.ToLower(strings.TrimSpace(ce.DataContentType()))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	switch {
	case mediaType == "":
		if json.Valid(data) {
			return JSONPayload(data)
		}
		return BinaryPayload(data)
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return JSONPayload(data)
	case strings.HasPrefix(mediaType, "text/") && utf8.Valid(data):
		return TextPayload(string(data))
	}
	return BinaryPayload(data)
}
