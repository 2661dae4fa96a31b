// Package eventstore defines the append-only event log contract
// (spec.md §4): a single global, strictly increasing sequence shared
// by all streams, with optimistic concurrency enforced per stream.
//
// Store implementations (pkg/sqlstore, pkg/eventstore/memstore) never
// mutate or delete a persisted event. Callers that need to "undo" a
// mistake append a corrective event instead.
package eventstore

import (
	"context"

	"github.com/mhallum/calista/pkg/envelope"
)

// Store is the append-only event log. Every method is safe for
// concurrent use by multiple goroutines.
type Store interface {
	// Append persists batch atomically: either every envelope in it
	// is committed with a fresh GlobalSeq and RecordedAt, or none is.
	// It returns the persisted envelopes in the same order as batch.
	//
	// Append fails with:
	//   - *VersionConflictError if batch's first version does not
	//     equal the stream's current tip + 1.
	//   - *DuplicateEventIdError if any envelope's EventID already
	//     exists in the store.
	//   - *StoreUnavailableError on connectivity/timeout/transaction
	//     failures unrelated to the batch's content.
	Append(ctx context.Context, batch envelope.Batch) ([]envelope.Envelope, error)

	// ReadStream returns an iterator over one stream's events, in
	// version order, starting at fromVersion (1-based, inclusive).
	// ReadStreamOptions narrow the range further (ToVersion) or cap
	// the result count (Limit). An out-of-range fromVersion/ToVersion
	// pair (fromVersion < 1, or ToVersion < fromVersion) is a caller
	// error returned directly, not wrapped in one of this package's
	// typed errors — the store never even opens a query for it.
	ReadStream(ctx context.Context, streamType, streamID string, fromVersion int64, opts ...ReadStreamOption) (Iterator, error)

	// ReadSince returns an iterator over every event in the store
	// with GlobalSeq > afterSeq, in global order. Pass 0 to read from
	// the beginning. ReadSinceOptions add coarse StreamType/EventType
	// filters and a result-count Limit.
	ReadSince(ctx context.Context, afterSeq int64, opts ...ReadSinceOption) (Iterator, error)
}

// ReadStreamOptions narrows a ReadStream call. Built via
// WithToVersion / WithStreamLimit, never by struct literal.
type ReadStreamOptions struct {
	// ToVersion, if non-zero, bounds the read to versions <=
	// ToVersion (inclusive). Zero means "no upper bound".
	ToVersion int64
	// Limit, if non-zero, caps the number of envelopes returned.
	Limit int
}

// ReadStreamOption configures a ReadStream call.
type ReadStreamOption func(*ReadStreamOptions)

// WithToVersion bounds a ReadStream read to versions <= v.
func WithToVersion(v int64) ReadStreamOption {
	return func(o *ReadStreamOptions) { o.ToVersion = v }
}

// WithStreamLimit caps the number of envelopes a ReadStream call
// returns.
func WithStreamLimit(n int) ReadStreamOption {
	return func(o *ReadStreamOptions) { o.Limit = n }
}

// ResolveReadStreamOptions applies opts in order over the zero value.
// Backend implementations call this once at the top of ReadStream.
func ResolveReadStreamOptions(opts ...ReadStreamOption) ReadStreamOptions {
	var o ReadStreamOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadSinceOptions narrows a ReadSince call. Built via
// WithStreamTypeFilter / WithEventTypeFilter / WithSinceLimit, never
// by struct literal.
type ReadSinceOptions struct {
	// StreamType, if non-empty, restricts results to that stream
	// type.
	StreamType string
	// EventType, if non-empty, restricts results to that event type.
	EventType string
	// Limit, if non-zero, caps the number of envelopes returned.
	Limit int
}

// ReadSinceOption configures a ReadSince call.
type ReadSinceOption func(*ReadSinceOptions)

// WithStreamTypeFilter restricts ReadSince to events of the given
// stream type.
func WithStreamTypeFilter(streamType string) ReadSinceOption {
	return func(o *ReadSinceOptions) { o.StreamType = streamType }
}

// WithEventTypeFilter restricts ReadSince to events of the given
// event type.
func WithEventTypeFilter(eventType string) ReadSinceOption {
	return func(o *ReadSinceOptions) { o.EventType = eventType }
}

// WithSinceLimit caps the number of envelopes a ReadSince call
// returns.
func WithSinceLimit(n int) ReadSinceOption {
	return func(o *ReadSinceOptions) { o.Limit = n }
}

// ResolveReadSinceOptions applies opts in order over the zero value.
// Backend implementations call this once at the top of ReadSince.
func ResolveReadSinceOptions(opts ...ReadSinceOption) ReadSinceOptions {
	var o ReadSinceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Iterator walks a sequence of persisted envelopes lazily: each Next
// call fetches (or returns already-buffered) the next row, so callers
// can stop early without paying for an unread tail. Modeled on
// database/sql.Rows.
//
// Usage:
//
//	it, err := store.ReadSince(ctx, 0)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//	    e := it.Envelope()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances the iterator. It returns false when the sequence
	// is exhausted or an error occurred; callers must check Err after
	// a false return to distinguish the two.
	Next() bool
	// Envelope returns the envelope most recently advanced to. It is
	// only valid after a Next call that returned true.
	Envelope() envelope.Envelope
	// Err returns the first error encountered during iteration, if
	// any.
	Err() error
	// Close releases resources held by the iterator. Safe to call
	// more than once.
	Close() error
}
