package envelope_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mhallum/calista/pkg/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleULID = "01J0000000000000000000000A"

func TestNewValidatesCallerFields(t *testing.T) {
	scenarios := []struct {
		name       string
		streamType string
		streamID   string
		version    int64
		eventID    string
		eventType  string
		wantReason envelope.ReasonCode
	}{
		{"valid", "Session", "S1", 1, sampleULID, "SessionStarted", ""},
		{"bad ulid length", "Session", "S1", 1, "too-short", "SessionStarted", envelope.ReasonBadULID},
		{"empty stream type", "", "S1", 1, sampleULID, "SessionStarted", envelope.ReasonFieldTooLong},
		{"empty stream id", "Session", "", 1, sampleULID, "SessionStarted", envelope.ReasonFieldTooLong},
		{"zero version", "Session", "S1", 0, sampleULID, "SessionStarted", envelope.ReasonBadVersion},
		{"empty event type", "Session", "S1", 1, sampleULID, "", envelope.ReasonFieldTooLong},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			_, err := envelope.New(s.streamType, s.streamID, s.version, s.eventID, s.eventType, envelope.JSON{"k": "v"}, envelope.JSON{})
			if s.wantReason != "" {
				var invalid *envelope.InvalidEnvelopeError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, s.wantReason, invalid.Reason)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRejectsNonUTCTimestamp(t *testing.T) {
	e, err := envelope.New("Session", "S1", 1, sampleULID, "SessionStarted", envelope.JSON{}, envelope.JSON{})
	require.NoError(t, err)

	local := time.FixedZone("UTC-5", -5*60*60)
	e.RecordedAt = time.Now().In(local)

	var invalid *envelope.InvalidEnvelopeError
	require.ErrorAs(t, e.Validate(), &invalid)
	assert.Equal(t, envelope.ReasonNaiveTimestamp, invalid.Reason)
}

func TestWithPersistedDoesNotMutateReceiver(t *testing.T) {
	e, err := envelope.New("Session", "S1", 1, sampleULID, "SessionStarted", envelope.JSON{}, envelope.JSON{})
	require.NoError(t, err)

	persisted := e.WithPersisted(1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, int64(0), e.GlobalSeq)
	assert.True(t, e.RecordedAt.IsZero())
	assert.Equal(t, int64(1), persisted.GlobalSeq)
	assert.False(t, persisted.RecordedAt.IsZero())
}

func TestJSONRoundTripIsFixedPoint(t *testing.T) {
	e, err := envelope.New("Session", "S1", 1, sampleULID, "SessionStarted", envelope.JSON{"name": "n1"}, envelope.JSON{"correlation_id": "c1"})
	require.NoError(t, err)
	e = e.WithPersisted(1, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	encoded, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded envelope.Envelope
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	reEncoded, err := json.Marshal(decoded)
	require.NoError(t, err)

	assert.JSONEq(t, string(encoded), string(reEncoded))
	assert.Contains(t, string(encoded), `"recorded_at":"2026-01-01T12:00:00Z"`)
}
