// Package sqlstore is the relational eventstore.Store backend
// (spec.md §4/§5): one shared schema, expressed twice (schema_sqlite.sql,
// schema_postgres.sql) behind a small dialect seam, so the append and
// read algorithms are written once against database/sql and run
// unmodified over either engine.
//
// Grounded on the teacher's vendored libpod/sqlite_state.go: the same
// tx.Begin/tip-check-via-QueryRow/tx.Exec/tx.Commit discipline, the
// same defer-rollback-on-error shape, and the same
// CREATE-TABLE-IF-NOT-EXISTS idempotent schema setup run inside a
// transaction at Open time.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" database/sql driver

	"github.com/mhallum/calista/pkg/clock"
	"github.com/mhallum/calista/pkg/envelope"
	"github.com/mhallum/calista/pkg/eventstore"
)

// Dialect names accepted by Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Store is a relational eventstore.Store. Construct with Open.
type Store struct {
	db      *sql.DB
	dialect dialect
	clock   clock.Clock
	timeout time.Duration
}

var _ eventstore.Store = (*Store)(nil)

// Options configures Open.
type Options struct {
	// DSN is passed to database/sql.Open verbatim.
	DSN string
	// StatementTimeout bounds every individual Store method call, via
	// context.WithTimeout, when positive. Zero means "no additional
	// timeout beyond whatever the caller's context already carries".
	StatementTimeout time.Duration
	// PoolSize caps database/sql.DB's open connections. Zero leaves
	// database/sql's default (unbounded) in place.
	PoolSize int
	// Clock stamps recorded_at on every appended event. Defaults to
	// clock.System{}.
	Clock clock.Clock
}

// Open connects to dialectName ("sqlite" or "postgres"), idempotently
// applies the schema, and returns a ready Store.
func Open(ctx context.Context, dialectName string, opts Options) (*Store, error) {
	var d dialect
	switch dialectName {
	case DialectSQLite:
		d = sqliteDialect{}
	case DialectPostgres:
		d = postgresDialect{}
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", dialectName)
	}

	db, err := sql.Open(d.driverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s connection: %w", d.name(), err)
	}
	if opts.PoolSize > 0 {
		db.SetMaxOpenConns(opts.PoolSize)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eventstore.NewStoreUnavailableError("sqlstore: connecting to "+d.name(), err)
	}

	if err := applySchema(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}

	c := opts.Clock
	if c == nil {
		c = clock.System{}
	}

	return &Store{db: db, dialect: d, clock: c, timeout: opts.StatementTimeout}, nil
}

// applySchema runs every DDL statement inside one transaction,
// mirroring podman's initSQLiteDB: begin, run statements, commit, roll
// back on any failure.
func applySchema(ctx context.Context, db *sql.DB, d dialect) (defErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning schema transaction: %w", err)
	}
	defer func() {
		if defErr != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range d.schemaDDL() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: applying schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing schema transaction: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Append implements eventstore.Store. It opens one transaction,
// re-checks the stream's tip under that transaction (closing the
// classic check-then-act race a caller-side tip read would leave
// open), inserts every envelope in batch, and commits — or rolls back
// and returns a typed error.
func (s *Store) Append(ctx context.Context, batch envelope.Batch) (_ []envelope.Envelope, defErr error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eventstore.NewStoreUnavailableError("sqlstore: beginning append transaction", err)
	}
	defer func() {
		if defErr != nil {
			tx.Rollback()
		}
	}()

	key := batch.Key()
	tip, err := s.streamTip(ctx, tx, key.StreamType, key.StreamID)
	if err != nil {
		return nil, eventstore.NewStoreUnavailableError("sqlstore: reading stream tip", err)
	}
	if batch.FirstVersion() != tip+1 {
		return nil, eventstore.NewVersionConflictError(
			key.StreamType, key.StreamID,
			fmt.Sprintf("batch starts at version %d, stream tip is %d", batch.FirstVersion(), tip),
		)
	}

	envs := batch.Envelopes()
	now := s.clock.Now()
	persisted := make([]envelope.Envelope, len(envs))
	for i, e := range envs {
		row, err := toEventRow(e)
		if err != nil {
			return nil, eventstore.NewInvalidEnvelopeError(eventstore.ReasonNonJSON, err.Error())
		}

		globalSeq, err := s.dialect.insertEvent(ctx, tx, row, now)
		if err != nil {
			switch s.dialect.classify(err) {
			case classifyDuplicateEventID:
				return nil, eventstore.NewDuplicateEventIdError(e.EventID, "event_id already exists")
			case classifyDuplicateStreamVersion:
				return nil, eventstore.NewVersionConflictError(key.StreamType, key.StreamID, "stream version already exists")
			default:
				return nil, eventstore.NewStoreUnavailableError("sqlstore: inserting event", err)
			}
		}
		persisted[i] = e.WithPersisted(globalSeq, now)
	}

	if err := tx.Commit(); err != nil {
		return nil, eventstore.NewStoreUnavailableError("sqlstore: committing append transaction", err)
	}

	return persisted, nil
}

// streamTip returns the highest version currently stored for
// (streamType, streamID), or 0 if the stream has no events yet.
func (s *Store) streamTip(ctx context.Context, tx *sql.Tx, streamType, streamID string) (int64, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(MAX(version), 0) FROM event_store WHERE stream_type = %s AND stream_id = %s",
		s.dialect.placeholder(1), s.dialect.placeholder(2),
	)
	var tip int64
	if err := tx.QueryRowContext(ctx, query, streamType, streamID).Scan(&tip); err != nil {
		return 0, err
	}
	return tip, nil
}

func (s *Store) ReadStream(ctx context.Context, streamType, streamID string, fromVersion int64, opts ...eventstore.ReadStreamOption) (eventstore.Iterator, error) {
	o := eventstore.ResolveReadStreamOptions(opts...)
	if fromVersion < 1 {
		return nil, fmt.Errorf("sqlstore: fromVersion must be >= 1, got %d", fromVersion)
	}
	if o.ToVersion != 0 && o.ToVersion < fromVersion {
		return nil, fmt.Errorf("sqlstore: toVersion %d must be >= fromVersion %d", o.ToVersion, fromVersion)
	}

	args := []any{streamType, streamID, fromVersion}
	query := fmt.Sprintf(
		"SELECT %s FROM event_store WHERE stream_type = %s AND stream_id = %s AND version >= %s",
		selectColumns, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
	)
	if o.ToVersion != 0 {
		args = append(args, o.ToVersion)
		query += fmt.Sprintf(" AND version <= %s", s.dialect.placeholder(len(args)))
	}
	query += " ORDER BY version ASC"
	if o.Limit > 0 {
		args = append(args, o.Limit)
		query += fmt.Sprintf(" LIMIT %s", s.dialect.placeholder(len(args)))
	}

	ctx, cancel := s.withTimeout(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, eventstore.NewStoreUnavailableError("sqlstore: reading stream", err)
	}
	return &rowIterator{rows: rows, dialect: s.dialect, cancel: cancel}, nil
}

func (s *Store) ReadSince(ctx context.Context, afterSeq int64, opts ...eventstore.ReadSinceOption) (eventstore.Iterator, error) {
	o := eventstore.ResolveReadSinceOptions(opts...)

	args := []any{afterSeq}
	query := fmt.Sprintf(
		"SELECT %s FROM event_store WHERE global_seq > %s",
		selectColumns, s.dialect.placeholder(1),
	)
	if o.StreamType != "" {
		args = append(args, o.StreamType)
		query += fmt.Sprintf(" AND stream_type = %s", s.dialect.placeholder(len(args)))
	}
	if o.EventType != "" {
		args = append(args, o.EventType)
		query += fmt.Sprintf(" AND event_type = %s", s.dialect.placeholder(len(args)))
	}
	query += " ORDER BY global_seq ASC"
	if o.Limit > 0 {
		args = append(args, o.Limit)
		query += fmt.Sprintf(" LIMIT %s", s.dialect.placeholder(len(args)))
	}

	ctx, cancel := s.withTimeout(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, eventstore.NewStoreUnavailableError("sqlstore: reading log", err)
	}
	return &rowIterator{rows: rows, dialect: s.dialect, cancel: cancel}, nil
}

func toEventRow(e envelope.Envelope) (eventRow, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("marshaling payload: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return eventRow{}, fmt.Errorf("marshaling metadata: %w", err)
	}
	return eventRow{
		eventID:    e.EventID,
		streamType: e.StreamType,
		streamID:   e.StreamID,
		version:    e.Version,
		eventType:  e.EventType,
		payload:    string(payload),
		metadata:   string(metadata),
	}, nil
}
