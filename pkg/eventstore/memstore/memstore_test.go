package memstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhallum/calista/pkg/clock"
	"github.com/mhallum/calista/pkg/envelope"
	"github.com/mhallum/calista/pkg/eventstore"
	"github.com/mhallum/calista/pkg/eventstore/memstore"
)

// nextULID numbers the event IDs mustBatch hands out, so every envelope
// a test builds carries a distinct event_id.
var nextULID int

func mustBatch(t *testing.T, streamID string, versions ...int64) envelope.Batch {
	t.Helper()
	var envs []envelope.Envelope
	for _, v := range versions {
		e, err := envelope.New("Session", streamID, v, sampleULID(nextULID), "SessionStarted", envelope.JSON{}, envelope.JSON{})
		nextULID++
		require.NoError(t, err)
		envs = append(envs, e)
	}
	b, err := envelope.NewBatch(envs)
	require.NoError(t, err)
	return b
}

func sampleULID(i int) string {
	return fmt.Sprintf("01J%023d", i)
}

func TestAppendAssignsSequenceAndTimestamp(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := memstore.New(fixed)
	ctx := context.Background()

	persisted, err := store.Append(ctx, mustBatch(t, "S1", 1, 2))

	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, int64(1), persisted[0].GlobalSeq)
	assert.Equal(t, int64(2), persisted[1].GlobalSeq)
	assert.True(t, persisted[0].RecordedAt.Equal(fixed.Now()))
}

func TestAppendRejectsVersionConflict(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.Append(ctx, mustBatch(t, "S1", 1))
	require.NoError(t, err)

	_, err = store.Append(ctx, mustBatch(t, "S1", 1))

	var conflict *eventstore.VersionConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAppendRejectsDuplicateEventID(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	b := mustBatch(t, "S1", 1)
	_, err := store.Append(ctx, b)
	require.NoError(t, err)

	dupEventID := b.Envelopes()[0].EventID
	reused, err := envelope.New("Session", "S2", 1, dupEventID, "SessionStarted", envelope.JSON{}, envelope.JSON{})
	require.NoError(t, err)
	reusedBatch, err := envelope.NewBatch([]envelope.Envelope{reused})
	require.NoError(t, err)

	_, err = store.Append(ctx, reusedBatch)

	var dupErr *eventstore.DuplicateEventIdError
	assert.ErrorAs(t, err, &dupErr)
}

func TestReadStreamReturnsOnlyMatchingStreamInVersionOrder(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.Append(ctx, mustBatch(t, "S1", 1, 2, 3))
	require.NoError(t, err)
	_, err = store.Append(ctx, mustBatch(t, "S2", 1))
	require.NoError(t, err)

	it, err := store.ReadStream(ctx, "Session", "S1", 2)
	require.NoError(t, err)
	defer it.Close()

	var versions []int64
	for it.Next() {
		versions = append(versions, it.Envelope().Version)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{2, 3}, versions)
}

func TestReadStreamHonorsToVersionAndLimit(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.Append(ctx, mustBatch(t, "S1", 1, 2, 3, 4))
	require.NoError(t, err)

	it, err := store.ReadStream(ctx, "Session", "S1", 1, eventstore.WithToVersion(3))
	require.NoError(t, err)
	var versions []int64
	for it.Next() {
		versions = append(versions, it.Envelope().Version)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{1, 2, 3}, versions)

	it, err = store.ReadStream(ctx, "Session", "S1", 1, eventstore.WithStreamLimit(2))
	require.NoError(t, err)
	versions = nil
	for it.Next() {
		versions = append(versions, it.Envelope().Version)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{1, 2}, versions)
}

func TestReadStreamRejectsInvalidRange(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.ReadStream(ctx, "Session", "S1", 0)
	assert.Error(t, err)

	_, err = store.ReadStream(ctx, "Session", "S1", 3, eventstore.WithToVersion(2))
	assert.Error(t, err)
}

func TestReadSinceHonorsFiltersAndLimit(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.Append(ctx, mustBatch(t, "S1", 1, 2))
	require.NoError(t, err)
	_, err = store.Append(ctx, mustBatch(t, "S2", 1))
	require.NoError(t, err)

	it, err := store.ReadSince(ctx, 0, eventstore.WithStreamTypeFilter("Session"), eventstore.WithEventTypeFilter("SessionStarted"))
	require.NoError(t, err)
	var seqs []int64
	for it.Next() {
		seqs = append(seqs, it.Envelope().GlobalSeq)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{1, 2, 3}, seqs)

	it, err = store.ReadSince(ctx, 0, eventstore.WithSinceLimit(1))
	require.NoError(t, err)
	seqs = nil
	for it.Next() {
		seqs = append(seqs, it.Envelope().GlobalSeq)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{1}, seqs)
}

func TestReadSinceReturnsEverythingAfterCursor(t *testing.T) {
	store := memstore.New(clock.System{})
	ctx := context.Background()

	_, err := store.Append(ctx, mustBatch(t, "S1", 1, 2))
	require.NoError(t, err)

	it, err := store.ReadSince(ctx, 1)
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	assert.Equal(t, int64(2), it.Envelope().GlobalSeq)
	assert.False(t, it.Next())
}
