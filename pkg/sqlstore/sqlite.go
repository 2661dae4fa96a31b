package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// sqliteRecordedAtLayout is used to serialize recorded_at into the
// TEXT column sqlite's schema declares it as. It is RFC 3339 in UTC
// with a literal "Z" and full nanosecond precision; trailing zeros of
// the fraction are dropped, so the text does not sort chronologically
// (reads order by global_seq, not recorded_at).
const sqliteRecordedAtLayout = "2006-01-02T15:04:05.999999999Z"

type sqliteDialect struct{}

var _ dialect = sqliteDialect{}

func (sqliteDialect) name() string       { return "sqlite" }
func (sqliteDialect) driverName() string { return "sqlite3" }

func (sqliteDialect) schemaDDL() []string {
	return splitStatements(sqliteSchemaSource)
}

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) bindRecordedAt(t time.Time) any {
	return t.UTC().Format(sqliteRecordedAtLayout)
}

func (sqliteDialect) parseRecordedAt(raw any) (time.Time, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return time.Time{}, fmt.Errorf("sqlite: unexpected recorded_at scan type %T", raw)
	}
	t, err := time.Parse(sqliteRecordedAtLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parsing recorded_at %q: %w", s, err)
	}
	return t.UTC(), nil
}

// insertEvent execs the INSERT and reads the assigned global_seq back
// via the driver's LastInsertId, mirroring podman's sqlite_state.go
// transaction discipline (tx.Exec inside an already-open *sql.Tx, no
// RETURNING clause).
func (d sqliteDialect) insertEvent(ctx context.Context, tx *sql.Tx, row eventRow, recordedAt time.Time) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO event_store (%s) VALUES (%s)",
		insertColumns, placeholderList(d, 8),
	)
	res, err := tx.ExecContext(ctx, query,
		row.eventID, row.streamType, row.streamID, row.version, row.eventType,
		d.bindRecordedAt(recordedAt), row.payload, row.metadata,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading last insert id: %w", err)
	}
	return id, nil
}

func (sqliteDialect) classify(err error) errClass {
	sqliteErr, ok := err.(sqlite3.Error)
	if !ok {
		return classifyUnknown
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return classifyUnknown
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "uq_event_store_event_id") || strings.Contains(msg, "event_store.event_id"):
		return classifyDuplicateEventID
	case strings.Contains(msg, "uq_event_store_stream_id_version") ||
		strings.Contains(msg, "event_store.stream_type, event_store.stream_id, event_store.version"):
		return classifyDuplicateStreamVersion
	default:
		return classifyUnknown
	}
}

// placeholderList joins n dialect-correct placeholders with ", ".
func placeholderList(d dialect, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = d.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
