package events

import (
	"fmt"
	"strings"
)

type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnBigint    ColumnType = "bigint"
	ColumnTimestamp ColumnType = "timestamp with time zone"
	ColumnJSON      ColumnType = "json"
)

// Column is one column of a target table. Columns with a Default are filled
// by the database and never bound.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	Default string
}

func (c Column) ServerAssigned() bool {
	return c.Default != ""
}

// Definition renders the column for CREATE TABLE.
func (c Column) Definition() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(string(c.Type))
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

const (
	ShapeFull       = "full"
	ShapeDeadLetter = "deadletter"
)

// Knative dead-letter extensions promoted to columns by the dead-letter shape.
const (
	ExtKnativeErrorCode = "knativeerrorcode"
	ExtKnativeErrorData = "knativeerrordata"
	ExtKnativeErrorDest = "knativeerrordest"
)

// createdOn is assigned at insert time by the database. CURRENT_TIMESTAMP is
// understood by both Postgres and SQLite.
var createdOn = Column{Name: "created_on", Type: ColumnTimestamp, NotNull: true, Default: "CURRENT_TIMESTAMP"}

// Shape is a target table layout together with its mapping from envelopes.
// The set of shapes is closed; pick one with ShapeByName.
type Shape interface {
	Name() string
	Columns() []Column
	extract(env Envelope, rec *recorder)
}

// ShapeByName resolves the configured shape.
func ShapeByName(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ShapeFull, "":
		return FullEnvelope, nil
	case ShapeDeadLetter:
		return DeadLetter, nil
	default:
		return nil, fmt.Errorf("unknown table shape %q", name)
	}
}

// InsertColumns lists the bound columns of a shape in table order.
func InsertColumns(s Shape) []string {
	cols := s.Columns()
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if !c.ServerAssigned() {
			names = append(names, c.Name)
		}
	}
	return names
}

// FullEnvelope keeps every standard attribute and folds extensions into one
// json column.
var FullEnvelope Shape = fullEnvelopeShape{}

type fullEnvelopeShape struct{}

func (fullEnvelopeShape) Name() string { return ShapeFull }

func (fullEnvelopeShape) Columns() []Column {
	return []Column{
		{Name: "specversion", Type: ColumnText, NotNull: true},
		{Name: "id", Type: ColumnText, NotNull: true},
		{Name: "source", Type: ColumnText, NotNull: true},
		{Name: "type", Type: ColumnText, NotNull: true},
		{Name: "datacontenttype", Type: ColumnText},
		{Name: "dataschema", Type: ColumnText},
		{Name: "subject", Type: ColumnText},
		{Name: "time", Type: ColumnTimestamp},
		{Name: "extensions", Type: ColumnJSON},
		{Name: "data", Type: ColumnText},
		createdOn,
	}
}

func (fullEnvelopeShape) extract(env Envelope, rec *recorder) {
	rec.set("specversion", env.SpecVersion)
	rec.set("id", env.ID)
	rec.set("source", env.Source)
	rec.set("type", env.Type)
	rec.optionalText("datacontenttype", env.DataContentType)
	rec.optionalText("dataschema", env.DataSchema)
	rec.optionalText("subject", env.Subject)
	rec.time("time", env.Time)
	rec.extensionBlob("extensions", env.Extensions)
	rec.payload("data", env.Data)
}

// DeadLetter is the reduced layout for Knative dead-letter sinks: the three
// knativeerror* extensions become columns and the other attributes are dropped.
var DeadLetter Shape = deadLetterShape{}

type deadLetterShape struct{}

func (deadLetterShape) Name() string { return ShapeDeadLetter }

func (deadLetterShape) Columns() []Column {
	return []Column{
		{Name: "id", Type: ColumnText, NotNull: true},
		{Name: "source", Type: ColumnText, NotNull: true},
		{Name: "type", Type: ColumnText, NotNull: true},
		{Name: "time", Type: ColumnTimestamp},
		{Name: ExtKnativeErrorCode, Type: ColumnBigint},
		{Name: ExtKnativeErrorData, Type: ColumnText},
		{Name: ExtKnativeErrorDest, Type: ColumnText},
		{Name: "data", Type: ColumnText},
		createdOn,
	}
}

func (deadLetterShape) extract(env Envelope, rec *recorder) {
	rec.set("id", env.ID)
	rec.set("source", env.Source)
	rec.set("type", env.Type)
	rec.time("time", env.Time)
	rec.integerExtension(ExtKnativeErrorCode, env)
	rec.textExtension(ExtKnativeErrorData, env)
	rec.textExtension(ExtKnativeErrorDest, env)
	rec.payload("data", env.Data)
}
