package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mhallum/calista/pkg/envelope"
)

// rowIterator adapts *sql.Rows to eventstore.Iterator, fetching one
// row at a time via Rows.Next rather than materializing the whole
// result set — the shape database/sql itself uses, applied one layer
// up.
type rowIterator struct {
	rows    *sql.Rows
	dialect dialect
	cancel  context.CancelFunc

	current envelope.Envelope
	err     error
	closed  bool
}

func (it *rowIterator) Next() bool {
	if it.err != nil || it.closed {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	var (
		globalSeq    int64
		eventID      string
		streamType   string
		streamID     string
		version      int64
		eventType    string
		recordedAtRaw any
		payloadJSON  string
		metadataJSON string
	)
	if err := it.rows.Scan(
		&globalSeq, &eventID, &streamType, &streamID, &version, &eventType,
		&recordedAtRaw, &payloadJSON, &metadataJSON,
	); err != nil {
		it.err = fmt.Errorf("sqlstore: scanning row: %w", err)
		return false
	}

	recordedAt, err := it.dialect.parseRecordedAt(recordedAtRaw)
	if err != nil {
		it.err = err
		return false
	}

	var payload, metadata envelope.JSON
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		it.err = fmt.Errorf("sqlstore: unmarshaling payload: %w", err)
		return false
	}
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		it.err = fmt.Errorf("sqlstore: unmarshaling metadata: %w", err)
		return false
	}

	e, err := envelope.New(streamType, streamID, version, eventID, eventType, payload, metadata)
	if err != nil {
		it.err = fmt.Errorf("sqlstore: reconstructing envelope: %w", err)
		return false
	}
	it.current = e.WithPersisted(globalSeq, recordedAt)
	return true
}

func (it *rowIterator) Envelope() envelope.Envelope { return it.current }
func (it *rowIterator) Err() error                  { return it.err }

func (it *rowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	err := it.rows.Close()
	if it.cancel != nil {
		it.cancel()
	}
	return err
}
