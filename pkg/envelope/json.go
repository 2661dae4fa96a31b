package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireFormat is the on-the-wire JSON shape (spec.md §6): field names
// match the envelope fields exactly, and recorded_at is RFC 3339 with
// a literal "Z" suffix.
type wireFormat struct {
	GlobalSeq  int64     `json:"global_seq"`
	EventID    string    `json:"event_id"`
	StreamType string    `json:"stream_type"`
	StreamID   string    `json:"stream_id"`
	Version    int64     `json:"version"`
	EventType  string    `json:"event_type"`
	RecordedAt string    `json:"recorded_at"`
	Payload    JSON      `json:"payload"`
	Metadata   JSON      `json:"metadata"`
}

const rfc3339Z = "2006-01-02T15:04:05.999999999Z"

// MarshalJSON implements json.Marshaler, emitting the wire format.
func (e Envelope) MarshalJSON() ([]byte, error) {
	payload := e.Payload
	if payload == nil {
		payload = JSON{}
	}
	metadata := e.Metadata
	if metadata == nil {
		metadata = JSON{}
	}
	w := wireFormat{
		GlobalSeq:  e.GlobalSeq,
		EventID:    e.EventID,
		StreamType: e.StreamType,
		StreamID:   e.StreamID,
		Version:    e.Version,
		EventType:  e.EventType,
		RecordedAt: e.RecordedAt.UTC().Format(rfc3339Z),
		Payload:    payload,
		Metadata:   metadata,
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var recordedAt time.Time
	if w.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.RecordedAt)
		if err != nil {
			return fmt.Errorf("recorded_at: %w", err)
		}
		recordedAt = t.UTC()
	}
	*e = Envelope{
		GlobalSeq:  w.GlobalSeq,
		EventID:    w.EventID,
		StreamType: w.StreamType,
		StreamID:   w.StreamID,
		Version:    w.Version,
		EventType:  w.EventType,
		RecordedAt: recordedAt,
		Payload:    w.Payload,
		Metadata:   w.Metadata,
	}
	return nil
}
