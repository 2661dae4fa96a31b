package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type postgresDialect struct{}

var _ dialect = postgresDialect{}

func (postgresDialect) name() string       { return "postgres" }
func (postgresDialect) driverName() string { return "pgx" }

func (postgresDialect) schemaDDL() []string {
	return splitStatements(postgresSchemaSource)
}

func (postgresDialect) placeholder(i int) string { return "$" + strconv.Itoa(i) }

func (postgresDialect) bindRecordedAt(t time.Time) any {
	return t.UTC()
}

func (postgresDialect) parseRecordedAt(raw any) (time.Time, error) {
	t, ok := raw.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("postgres: unexpected recorded_at scan type %T", raw)
	}
	return t.UTC(), nil
}

// insertEvent uses a single INSERT ... RETURNING, Postgres's native
// way to get a generated column back without a second round trip.
func (d postgresDialect) insertEvent(ctx context.Context, tx *sql.Tx, row eventRow, recordedAt time.Time) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO event_store (%s) VALUES (%s) RETURNING global_seq",
		insertColumns, placeholderList(d, 8),
	)
	var globalSeq int64
	err := tx.QueryRowContext(ctx, query,
		row.eventID, row.streamType, row.streamID, row.version, row.eventType,
		d.bindRecordedAt(recordedAt), row.payload, row.metadata,
	).Scan(&globalSeq)
	if err != nil {
		return 0, err
	}
	return globalSeq, nil
}

func (postgresDialect) classify(err error) errClass {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return classifyUnknown
	}
	const uniqueViolation = "23505"
	if pgErr.Code != uniqueViolation {
		return classifyUnknown
	}
	switch pgErr.ConstraintName {
	case "uq_event_store_event_id":
		return classifyDuplicateEventID
	case "uq_event_store_stream_id_version":
		return classifyDuplicateStreamVersion
	default:
		return classifyUnknown
	}
}
