package sink

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/cesink/internal/events"
	"github.com/angelmondragon/cesink/pkg/config"
	"github.com/angelmondragon/cesink/pkg/db"
	"github.com/angelmondragon/cesink/pkg/db/dbtest"
	"github.com/angelmondragon/cesink/pkg/logger"
	"github.com/angelmondragon/cesink/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "sink-test", Output: io.Discard})
}

func provisioned(t *testing.T, client *db.Client, shape events.Shape, table string) Target {
	t.Helper()
	target := Target{Schema: dbtest.Schema, Table: table, Shape: shape}
	prov, err := NewProvisioner(client, target, quietLogger())
	require.NoError(t, err)
	require.NoError(t, prov.Ensure(context.Background()))
	return target
}

func newTestService(t *testing.T, client *db.Client, target Target) Service {
	t.Helper()
	return newLoggedTestService(t, client, target, quietLogger())
}

func newLoggedTestService(t *testing.T, client *db.Client, target Target, logg *logger.Logger) Service {
	t.Helper()
	repo, err := NewRepository(client, target)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Target:  target,
		Logger:  logg,
		Metrics: metrics.NewIngestMetrics(nil),
	})
	require.NoError(t, err)
	return svc
}

func sampleEnvelope(id string) events.Envelope {
	ts := time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC)
	return events.Envelope{
		ID:              id,
		Source:          "com.acme.apps.ingress",
		Type:            "com.acme.events.something",
		SpecVersion:     "1.0",
		DataContentType: "application/json",
		Time:            &ts,
		Data:            events.JSONPayload([]byte(`{"volume": 10, "body": "hello world"}`)),
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL(Target{Schema: "public", Table: "dead_letters", Shape: events.DeadLetter})
	assert.True(t, strings.HasPrefix(got, "CREATE TABLE IF NOT EXISTS public.dead_letters\n(\n"))
	assert.True(t, strings.HasSuffix(got, "\n);"))
	assert.Contains(t, got, "    knativeerrorcode bigint")
	assert.Contains(t, got, "created_on timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP")
}

func TestProvisionerIsIdempotent(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := Target{Schema: dbtest.Schema, Table: "events", Shape: events.FullEnvelope}
	prov, err := NewProvisioner(client, target, quietLogger())
	require.NoError(t, err)

	exists, err := prov.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, prov.Ensure(context.Background()))
	require.NoError(t, prov.Ensure(context.Background()))

	exists, err = prov.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewProvisionerRejectsIncompleteTarget(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	_, err := NewProvisioner(client, Target{Schema: "main", Shape: events.FullEnvelope}, nil)
	assert.Error(t, err)
	_, err = NewProvisioner(client, Target{Schema: "main", Table: "t"}, nil)
	assert.Error(t, err)
	_, err = NewProvisioner(nil, Target{Schema: "main", Table: "t", Shape: events.FullEnvelope}, nil)
	assert.Error(t, err)
}

func TestIngestFullEnvelopeRoundTrip(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := provisioned(t, client, events.FullEnvelope, "events")
	svc := newTestService(t, client, target)

	env := sampleEnvelope("370058fc-0d71-11ee-be56-0242ac120002")
	env.Extensions = map[string]events.ExtensionValue{"traceparent": events.StringValue("00-abc-01")}

	res, err := svc.Ingest(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "main.events", res.Table)
	assert.Empty(t, res.Degraded)

	var (
		id, source, typ, version string
		contentType, subject     sql.NullString
		evTime, exts, data       sql.NullString
		createdOn                sql.NullString
	)
	err = client.Raw(context.Background(),
		"SELECT id, source, type, specversion, datacontenttype, subject, time, extensions, data, created_on FROM main.events").
		Row().Scan(&id, &source, &typ, &version, &contentType, &subject, &evTime, &exts, &data, &createdOn)
	require.NoError(t, err)

	assert.Equal(t, env.ID, id)
	assert.Equal(t, env.Source, source)
	assert.Equal(t, env.Type, typ)
	assert.Equal(t, "1.0", version)
	assert.Equal(t, "application/json", contentType.String)
	assert.False(t, subject.Valid)
	require.True(t, evTime.Valid)
	assert.Contains(t, evTime.String, "2023-07-02")
	assert.Equal(t, `{"traceparent":"00-abc-01"}`, exts.String)
	assert.Equal(t, `{"body":"hello world","volume":10}`, data.String)
	assert.True(t, createdOn.Valid)
}

func TestIngestDegradesUncoercibleFieldsToNull(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := provisioned(t, client, events.DeadLetter, "dead_letters")
	var logs bytes.Buffer
	svc := newLoggedTestService(t, client, target,
		logger.New(logger.Options{ServiceName: "sink-test", Output: &logs}))

	env := sampleEnvelope("dl-1")
	env.Data = events.BinaryPayload([]byte{0xff, 0xfe, 0x00})
	env.Extensions = map[string]events.ExtensionValue{
		events.ExtKnativeErrorCode: events.StringValue("not-a-number"),
		events.ExtKnativeErrorDest: events.StringValue("http://broker"),
	}

	res, err := svc.Ingest(context.Background(), env)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{events.ExtKnativeErrorCode, "data"}, res.Degraded)

	var (
		code sql.NullInt64
		dest sql.NullString
		data sql.NullString
	)
	err = client.Raw(context.Background(),
		"SELECT knativeerrorcode, knativeerrordest, data FROM main.dead_letters WHERE id = ?", "dl-1").
		Row().Scan(&code, &dest, &data)
	require.NoError(t, err)
	assert.False(t, code.Valid)
	assert.Equal(t, "http://broker", dest.String)
	assert.False(t, data.Valid)

	assert.ElementsMatch(t, []string{events.ExtKnativeErrorCode, "data"}, warnedColumns(t, &logs))
}

// warnedColumns returns the column field of every warn entry in a JSON log.
func warnedColumns(t *testing.T, logs *bytes.Buffer) []string {
	t.Helper()
	var cols []string
	scanner := bufio.NewScanner(logs)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if entry["level"] != "warn" {
			continue
		}
		col, ok := entry["column"].(string)
		require.True(t, ok, "warn entry without column: %s", scanner.Text())
		require.NotEmpty(t, entry["message"])
		cols = append(cols, col)
	}
	require.NoError(t, scanner.Err())
	return cols
}

func TestIngestDeadLetterStoresNumericCode(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := provisioned(t, client, events.DeadLetter, "dead_letters")
	svc := newTestService(t, client, target)

	env := sampleEnvelope("dl-2")
	env.Extensions = map[string]events.ExtensionValue{
		events.ExtKnativeErrorCode: events.StringValue("503"),
	}
	_, err := svc.Ingest(context.Background(), env)
	require.NoError(t, err)

	var code sql.NullInt64
	err = client.Raw(context.Background(), "SELECT knativeerrorcode FROM main.dead_letters").Row().Scan(&code)
	require.NoError(t, err)
	assert.True(t, code.Valid)
	assert.Equal(t, int64(503), code.Int64)
}

func TestIngestRejectsMissingRequiredAttributes(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := provisioned(t, client, events.FullEnvelope, "events")
	svc := newTestService(t, client, target)

	env := sampleEnvelope("")
	_, err := svc.Ingest(context.Background(), env)
	require.Error(t, err)
}

func TestIngestFailsWhenTableMissing(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := Target{Schema: dbtest.Schema, Table: "never_created", Shape: events.FullEnvelope}
	svc := newTestService(t, client, target)

	_, err := svc.Ingest(context.Background(), sampleEnvelope("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestConcurrentIngestKeepsEveryEvent(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	target := provisioned(t, client, events.FullEnvelope, "events")
	svc := newTestService(t, client, target)

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Ingest(context.Background(), sampleEnvelope(fmt.Sprintf("evt-%03d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ingest: %v", err)
	}

	var total, distinct int64
	err := client.Raw(context.Background(), "SELECT COUNT(*), COUNT(DISTINCT id) FROM main.events").Row().Scan(&total, &distinct)
	require.NoError(t, err)
	assert.Equal(t, int64(n), total)
	assert.Equal(t, int64(n), distinct)
}

func TestInsertSQLUsesPlaceholders(t *testing.T) {
	got := insertSQL(Target{Schema: "s", Table: "t"}, []string{"id", "source", "data"})
	assert.Equal(t, "INSERT INTO s.t (id, source, data) VALUES (?, ?, ?)", got)
}

func TestRepositoryRejectsMisalignedRow(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	repo, err := NewRepository(client, Target{Schema: dbtest.Schema, Table: "events", Shape: events.FullEnvelope})
	require.NoError(t, err)
	err = repo.Insert(context.Background(), events.Row{Columns: []string{"id"}, Values: nil})
	assert.Error(t, err)
}

func TestProberNow(t *testing.T) {
	client := dbtest.NewSQLite(t, 1)
	prober, err := NewProber(client)
	require.NoError(t, err)

	now, err := prober.Now(context.Background())
	require.NoError(t, err)
	_, err = time.Parse("2006-01-02T15:04:05", now)
	assert.NoError(t, err)

	require.NoError(t, client.Close())
	_, err = prober.Now(context.Background())
	assert.Error(t, err)
}

func TestTargetFromConfig(t *testing.T) {
	target, err := TargetFromConfig(
		config.DBConfig{Schema: "public", Table: "dead_letters"},
		config.SinkConfig{Shape: "deadletter"},
	)
	require.NoError(t, err)
	assert.Equal(t, "public.dead_letters", target.Qualified())
	assert.Equal(t, events.ShapeDeadLetter, target.Shape.Name())

	_, err = TargetFromConfig(config.DBConfig{Schema: "public", Table: "t"}, config.SinkConfig{Shape: "wide"})
	assert.Error(t, err)
}
