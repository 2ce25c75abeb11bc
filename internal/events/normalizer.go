package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldWarning records a column that was degraded to NULL.
type FieldWarning struct {
	Column string
	Err    error
}

func (w FieldWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Column, w.Err)
}

// Row is a normalized event ready to be bound positionally.
// Columns and Values line up with the shape's table order, minus
// server-assigned columns. A nil value binds as NULL.
type Row struct {
	Columns  []string
	Values   []any
	Warnings []FieldWarning
}

// Normalize maps an envelope onto the shape's columns. It does no I/O and
// never fails: fields that cannot be coerced become NULL and are reported in
// Row.Warnings.
func Normalize(shape Shape, env Envelope) Row {
	rec := &recorder{values: make(map[string]any, len(shape.Columns()))}
	shape.extract(env, rec)

	cols := InsertColumns(shape)
	row := Row{
		Columns:  cols,
		Values:   make([]any, len(cols)),
		Warnings: rec.warnings,
	}
	for i, name := range cols {
		row.Values[i] = rec.values[name]
	}
	return row
}

type recorder struct {
	values   map[string]any
	warnings []FieldWarning
}

func (r *recorder) set(column string, value any) {
	r.values[column] = value
}

func (r *recorder) warn(column string, err error) {
	r.values[column] = nil
	r.warnings = append(r.warnings, FieldWarning{Column: column, Err: err})
}

func (r *recorder) optionalText(column, value string) {
	if value == "" {
		r.set(column, nil)
		return
	}
	r.set(column, value)
}

func (r *recorder) time(column string, t *time.Time) {
	if t == nil || t.IsZero() {
		r.set(column, nil)
		return
	}
	r.set(column, t.UTC())
}

func (r *recorder) integerExtension(column string, env Envelope) {
	v, ok := env.Extension(column)
	if !ok {
		r.set(column, nil)
		return
	}
	n, err := v.Integer()
	if err != nil {
		r.warn(column, fmt.Errorf("could not parse cloudevent attribute '%s' to integer: %w", column, err))
		return
	}
	r.set(column, n)
}

func (r *recorder) textExtension(column string, env Envelope) {
	v, ok := env.Extension(column)
	if !ok {
		r.set(column, nil)
		return
	}
	r.set(column, v.Text())
}

func (r *recorder) extensionBlob(column string, exts map[string]ExtensionValue) {
	if len(exts) == 0 {
		r.set(column, nil)
		return
	}
	blob, err := json.Marshal(exts)
	if err != nil {
		r.warn(column, fmt.Errorf("could not serialize cloudevent extensions: %w", err))
		return
	}
	r.set(column, string(blob))
}

func (r *recorder) payload(column string, p Payload) {
	text, ok, err := p.Text()
	if err != nil {
		r.warn(column, fmt.Errorf("could not parse cloudevent %s data to string: %w", p.Kind(), err))
		return
	}
	if !ok {
		r.set(column, nil)
		return
	}
	r.set(column, text)
}
