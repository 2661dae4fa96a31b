package envelope_test

import (
	"testing"

	"github.com/mhallum/calista/pkg/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInvalidEnvelopeError(t *testing.T, err error, reason envelope.ReasonCode) {
	t.Helper()
	var invalid *envelope.InvalidEnvelopeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, reason, invalid.Reason)
}

func mustEnvelope(t *testing.T, streamID string, version int64, eventID string) envelope.Envelope {
	t.Helper()
	e, err := envelope.New("Session", streamID, version, eventID, "SessionStarted", envelope.JSON{}, envelope.JSON{})
	require.NoError(t, err)
	return e
}

func TestNewBatchRejectsEmpty(t *testing.T) {
	_, err := envelope.NewBatch(nil)
	requireInvalidEnvelopeError(t, err, envelope.ReasonEmptyBatch)
}

func TestNewBatchRejectsMixedStreams(t *testing.T) {
	e1 := mustEnvelope(t, "S1", 1, "01J0000000000000000000000A")
	e2 := mustEnvelope(t, "S2", 1, "01J0000000000000000000000B")

	_, err := envelope.NewBatch([]envelope.Envelope{e1, e2})

	requireInvalidEnvelopeError(t, err, envelope.ReasonMixedStreams)
}

func TestNewBatchRejectsNonContiguousVersions(t *testing.T) {
	e1 := mustEnvelope(t, "S1", 1, "01J0000000000000000000000A")
	e2 := mustEnvelope(t, "S1", 3, "01J0000000000000000000000B")

	_, err := envelope.NewBatch([]envelope.Envelope{e1, e2})

	requireInvalidEnvelopeError(t, err, envelope.ReasonNonContiguous)
}

func TestNewBatchAcceptsContiguousSingleStream(t *testing.T) {
	e1 := mustEnvelope(t, "S1", 1, "01J0000000000000000000000A")
	e2 := mustEnvelope(t, "S1", 2, "01J0000000000000000000000B")

	batch, err := envelope.NewBatch([]envelope.Envelope{e1, e2})

	require.NoError(t, err)
	assert.Equal(t, int64(1), batch.FirstVersion())
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, envelope.StreamKey{StreamType: "Session", StreamID: "S1"}, batch.Key())
}
