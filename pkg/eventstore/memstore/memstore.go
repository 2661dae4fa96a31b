// Package memstore is an in-memory eventstore.Store, useful for unit
// tests where standing up a SQL server or SQLite file isn't worth the
// ceremony.
//
// There is no third-party in-memory database in the retrieved example
// pack that fits this role (pkg/sqlstore already grounds the real SQL
// dialects); a mutex-guarded slice plus two lookup maps is the
// idiomatic Go shape for this kind of single-process bookkeeping. The
// only third-party import is sasha-s/go-deadlock for that mutex.
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/mhallum/calista/pkg/clock"
	"github.com/mhallum/calista/pkg/envelope"
	"github.com/mhallum/calista/pkg/eventstore"
)

// Store is an in-memory eventstore.Store. Construct with New.
type Store struct {
	clock clock.Clock

	mu      deadlock.Mutex
	global  []envelope.Envelope // append-only, ordered by GlobalSeq
	tips    map[envelope.StreamKey]int64
	eventID map[string]struct{}
}

// New constructs an empty Store that stamps persisted events with c's
// clock (clock.System{} for production use, a clock.Fixed in tests).
func New(c clock.Clock) *Store {
	return &Store{
		clock:   c,
		tips:    make(map[envelope.StreamKey]int64),
		eventID: make(map[string]struct{}),
	}
}

var _ eventstore.Store = (*Store)(nil)

func (s *Store) Append(ctx context.Context, batch envelope.Batch) ([]envelope.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventstore.NewStoreUnavailableError("context canceled before append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := batch.Key()
	tip := s.tips[key]
	if batch.FirstVersion() != tip+1 {
		return nil, eventstore.NewVersionConflictError(
			key.StreamType, key.StreamID,
			"batch does not start at stream tip + 1",
		)
	}

	envs := batch.Envelopes()
	for _, e := range envs {
		if _, dup := s.eventID[e.EventID]; dup {
			return nil, eventstore.NewDuplicateEventIdError(e.EventID, "event_id already exists")
		}
	}

	now := s.clock.Now()
	persisted := make([]envelope.Envelope, len(envs))
	for i, e := range envs {
		seq := int64(len(s.global)) + 1
		p := e.WithPersisted(seq, now)
		s.global = append(s.global, p)
		s.eventID[p.EventID] = struct{}{}
		persisted[i] = p
	}
	s.tips[key] = envs[len(envs)-1].Version

	return persisted, nil
}

func (s *Store) ReadStream(ctx context.Context, streamType, streamID string, fromVersion int64, opts ...eventstore.ReadStreamOption) (eventstore.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventstore.NewStoreUnavailableError("context canceled before read", err)
	}
	o := eventstore.ResolveReadStreamOptions(opts...)
	if fromVersion < 1 {
		return nil, fmt.Errorf("memstore: fromVersion must be >= 1, got %d", fromVersion)
	}
	if o.ToVersion != 0 && o.ToVersion < fromVersion {
		return nil, fmt.Errorf("memstore: toVersion %d must be >= fromVersion %d", o.ToVersion, fromVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := envelope.StreamKey{StreamType: streamType, StreamID: streamID}
	var out []envelope.Envelope
	for _, e := range s.global {
		if e.Key() == key && e.Version >= fromVersion && (o.ToVersion == 0 || e.Version <= o.ToVersion) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return &sliceIterator{items: out}, nil
}

func (s *Store) ReadSince(ctx context.Context, afterSeq int64, opts ...eventstore.ReadSinceOption) (eventstore.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventstore.NewStoreUnavailableError("context canceled before read", err)
	}
	o := eventstore.ResolveReadSinceOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []envelope.Envelope
	for _, e := range s.global {
		if e.GlobalSeq <= afterSeq {
			continue
		}
		if o.StreamType != "" && e.StreamType != o.StreamType {
			continue
		}
		if o.EventType != "" && e.EventType != o.EventType {
			continue
		}
		out = append(out, e)
		if o.Limit > 0 && len(out) >= o.Limit {
			break
		}
	}
	return &sliceIterator{items: out}, nil
}

// sliceIterator adapts a pre-materialized slice to eventstore.Iterator.
// memstore's whole log is already resident in memory, so there is no
// lazy-fetch cost to defer; the interface stays lazy-shaped for parity
// with pkg/sqlstore's sql.Rows-backed iterator.
type sliceIterator struct {
	items []envelope.Envelope
	pos   int
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Envelope() envelope.Envelope {
	return it.items[it.pos-1]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
