package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota
	PayloadJSON
	PayloadText
	PayloadBinary
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadJSON:
		return "json"
	case PayloadText:
		return "text"
	case PayloadBinary:
		return "binary"
	default:
		return "none"
	}
}

// Payload is the event data in the form the transport decoded it.
// The zero value is an absent payload.
type Payload struct {
	kind PayloadKind
	raw  []byte
	text string
}

func JSONPayload(raw []byte) Payload {
	return Payload{kind: PayloadJSON, raw: raw}
}

func TextPayload(s string) Payload {
	return Payload{kind: PayloadText, text: s}
}

func BinaryPayload(b []byte) Payload {
	return Payload{kind: PayloadBinary, raw: b}
}

func (p Payload) Kind() PayloadKind {
	return p.kind
}

var errInvalidUTF8 = errors.New("data is not valid UTF-8")

// Text renders the payload for the data column. ok is false when the payload
// is absent or could not be rendered; err explains the latter.
func (p Payload) Text() (text string, ok bool, err error) {
	switch p.kind {
	case PayloadJSON:
		s, err := canonicalJSON(p.raw)
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	case PayloadText:
		if !utf8.ValidString(p.text) {
			return "", false, errInvalidUTF8
		}
		return p.text, true, nil
	case PayloadBinary:
		if !utf8.Valid(p.raw) {
			return "", false, errInvalidUTF8
		}
		return string(p.raw), true, nil
	default:
		return "", false, nil
	}
}

// canonicalJSON re-encodes a JSON document compactly with object keys sorted.
// Numbers are kept as their original literals.
func canonicalJSON(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("could not parse json data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errors.New("could not parse json data: trailing content")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("could not encode json data: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
