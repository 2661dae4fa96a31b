package sqlstore

import (
	"context"
	"database/sql"
	"time"
)

// dialect hides the handful of places Postgres and SQLite disagree:
// placeholder syntax, whether INSERT can RETURNING the row it just
// wrote, how recorded_at is represented at the wire level, and how
// each driver reports a unique-constraint violation. The schema itself
// lives in one file per dialect: both declare the same columns,
// constraints and index names, with dialect-specific column types,
// Postgres-only GIN indexes, and each engine's own trigger mechanism
// for append-only enforcement. The queries are shared.
type dialect interface {
	// name identifies the dialect for logging and error messages.
	name() string

	// driverName is the database/sql driver name passed to sql.Open.
	driverName() string

	// schemaDDL returns the statements that create the event_store
	// table, its indexes, and its append-only trigger. Every
	// statement is idempotent (CREATE ... IF NOT EXISTS, CREATE OR
	// REPLACE, or DROP ... IF EXISTS followed by CREATE), so running
	// them against an already-initialized database leaves it unchanged.
	schemaDDL() []string

	// placeholder returns the positional parameter marker for the
	// i-th (1-based) bind variable: "?" for SQLite, "$i" for Postgres.
	placeholder(i int) string

	// bindRecordedAt converts t into the value insertEvent binds for
	// the recorded_at column.
	bindRecordedAt(t time.Time) any

	// parseRecordedAt converts a scanned recorded_at column value
	// (whatever bindRecordedAt produced, round-tripped through the
	// driver) back into a time.Time.
	parseRecordedAt(raw any) (time.Time, error)

	// insertEvent inserts one row, stamped with recordedAt, and
	// returns the store-assigned global_seq. Postgres does this with
	// a single INSERT ... RETURNING global_seq; SQLite's driver has no
	// RETURNING support, so it execs the INSERT and reads back
	// global_seq via the driver's LastInsertId.
	insertEvent(ctx context.Context, tx *sql.Tx, row eventRow, recordedAt time.Time) (globalSeq int64, err error)

	// classify turns a raw driver error into one of this package's
	// sentinel classifications, or classifyUnknown if err doesn't
	// match any known constraint-violation shape.
	classify(err error) errClass
}

// eventRow is the storage-layer shape of one envelope, ready to bind
// into an INSERT.
type eventRow struct {
	eventID    string
	streamType string
	streamID   string
	version    int64
	eventType  string
	payload    string // JSON text
	metadata   string // JSON text
}

// errClass is what classify maps a raw driver error down to.
type errClass int

const (
	classifyUnknown errClass = iota
	classifyDuplicateEventID
	classifyDuplicateStreamVersion
)

const insertColumns = "event_id, stream_type, stream_id, version, event_type, recorded_at, payload, metadata"

const selectColumns = "global_seq, event_id, stream_type, stream_id, version, event_type, recorded_at, payload, metadata"
