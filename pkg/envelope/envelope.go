// Package envelope defines the canonical persisted shape of a domain
// event (spec.md §3.1) and the batch grouping used by Append.
//
// Envelope values are immutable once constructed. A caller-built
// envelope becomes "persisted" only once an event store hands back a
// fresh instance carrying an authoritative GlobalSeq and RecordedAt;
// this package never mutates an Envelope in place.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MaxShortIdentifierLength bounds stream_type and event_type.
	MaxShortIdentifierLength = 128
	// MaxStreamIDLength bounds stream_id.
	MaxStreamIDLength = 256
	// ulidLength is the fixed length of a Crockford-Base32 ULID.
	ulidLength = 26
)

// JSON is a structured, JSON-serializable key/value tree. nil means
// "no data", not "null data" — callers that want an explicit empty
// object should pass JSON{}.
type JSON map[string]any

// Envelope is one persisted (or about-to-be-persisted) domain event.
type Envelope struct {
	// GlobalSeq is assigned by the store on commit. Zero on a
	// caller-built, not-yet-persisted envelope.
	GlobalSeq int64
	// EventID is a 26-character ULID, globally unique.
	EventID string
	// StreamType names the aggregate kind, e.g. "Session".
	StreamType string
	// StreamID names the aggregate instance.
	StreamID string
	// Version is this event's 1-based position within its stream.
	Version int64
	// EventType is the domain-specific event name.
	EventType string
	// RecordedAt is assigned by the store on commit. Always
	// timezone-aware UTC once persisted.
	RecordedAt time.Time
	// Payload is the domain data. May reference blob digests.
	Payload JSON
	// Metadata carries optional reserved keys: correlation_id,
	// causation_id, actor.
	Metadata JSON
}

// New builds a caller-side envelope, validating every field that can
// be checked without consulting the store. GlobalSeq and RecordedAt on
// the returned value are left zero; the store assigns them on append
// and silently ignores whatever a caller supplies here.
func New(streamType, streamID string, version int64, eventID, eventType string, payload, metadata JSON) (Envelope, error) {
	e := Envelope{
		EventID:    eventID,
		StreamType: streamType,
		StreamID:   streamID,
		Version:    version,
		EventType:  eventType,
		Payload:    payload,
		Metadata:   metadata,
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Validate re-checks every caller-supplied field's invariants. Callers
// that build an Envelope via struct literal (e.g. adapters decoding a
// batch from the wire) should call Validate before treating it as
// well-formed.
func (e Envelope) Validate() error {
	if len(e.EventID) != ulidLength {
		return NewInvalidEnvelopeError(ReasonBadULID,
			fmt.Sprintf("event_id must be a %d-character ULID, got %q", ulidLength, e.EventID))
	}
	if e.StreamType == "" {
		return NewInvalidEnvelopeError(ReasonFieldTooLong, "stream_type must not be empty")
	}
	if len(e.StreamType) > MaxShortIdentifierLength {
		return NewInvalidEnvelopeError(ReasonFieldTooLong,
			fmt.Sprintf("stream_type exceeds %d characters", MaxShortIdentifierLength))
	}
	if e.StreamID == "" {
		return NewInvalidEnvelopeError(ReasonFieldTooLong, "stream_id must not be empty")
	}
	if len(e.StreamID) > MaxStreamIDLength {
		return NewInvalidEnvelopeError(ReasonFieldTooLong,
			fmt.Sprintf("stream_id exceeds %d characters", MaxStreamIDLength))
	}
	if e.Version < 1 {
		return NewInvalidEnvelopeError(ReasonBadVersion, fmt.Sprintf("version must be >= 1, got %d", e.Version))
	}
	if e.EventType == "" {
		return NewInvalidEnvelopeError(ReasonFieldTooLong, "event_type must not be empty")
	}
	if len(e.EventType) > MaxShortIdentifierLength {
		return NewInvalidEnvelopeError(ReasonFieldTooLong,
			fmt.Sprintf("event_type exceeds %d characters", MaxShortIdentifierLength))
	}
	if !e.RecordedAt.IsZero() {
		if e.RecordedAt.Location() != time.UTC {
			return NewInvalidEnvelopeError(ReasonNaiveTimestamp, "recorded_at must be tz-aware UTC if supplied")
		}
	}
	if err := requireJSONSerializable("payload", e.Payload); err != nil {
		return err
	}
	if err := requireJSONSerializable("metadata", e.Metadata); err != nil {
		return err
	}
	return nil
}

func requireJSONSerializable(field string, v JSON) error {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return NewInvalidEnvelopeError(ReasonNonJSON, fmt.Sprintf("%s is not JSON-serializable: %v", field, err))
	}
	return nil
}

// Equal reports whether e and other carry the same values. Payload
// and Metadata are compared by their JSON encoding, since map key
// order is not significant.
func (e Envelope) Equal(other Envelope) bool {
	if e.GlobalSeq != other.GlobalSeq ||
		e.EventID != other.EventID ||
		e.StreamType != other.StreamType ||
		e.StreamID != other.StreamID ||
		e.Version != other.Version ||
		e.EventType != other.EventType ||
		!e.RecordedAt.Equal(other.RecordedAt) {
		return false
	}
	return jsonEqual(e.Payload, other.Payload) && jsonEqual(e.Metadata, other.Metadata)
}

func jsonEqual(a, b JSON) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// WithPersisted returns a copy of e with the store-assigned fields
// set. It never mutates e.
func (e Envelope) WithPersisted(globalSeq int64, recordedAt time.Time) Envelope {
	out := e
	out.GlobalSeq = globalSeq
	out.RecordedAt = recordedAt.UTC()
	return out
}

// StreamKey identifies the stream an envelope belongs to.
type StreamKey struct {
	StreamType string
	StreamID   string
}

// Key returns e's stream key.
func (e Envelope) Key() StreamKey {
	return StreamKey{StreamType: e.StreamType, StreamID: e.StreamID}
}
