package envelope

import "fmt"

// Batch is an ordered, non-empty sequence of envelopes that share one
// stream and whose versions are contiguous (spec.md §3.2). Construct
// one with NewBatch; the zero value is not valid.
type Batch struct {
	envelopes []Envelope
}

// NewBatch validates envelopes and wraps them in a Batch: all must
// share one (stream_type, stream_id), and Version must increase by
// exactly 1 from one envelope to the next. NewBatch does not know the
// stream's current tip — that check belongs to the store, which
// returns VersionConflictError if the batch's first version does not
// follow it.
func NewBatch(envelopes []Envelope) (Batch, error) {
	if len(envelopes) == 0 {
		return Batch{}, NewInvalidEnvelopeError(ReasonEmptyBatch, "batch must not be empty")
	}
	first := envelopes[0]
	key := first.Key()
	for i, e := range envelopes {
		if e.Key() != key {
			return Batch{}, NewInvalidEnvelopeError(ReasonMixedStreams, fmt.Sprintf(
				"batch must reference a single stream: envelope %d is (%s, %s), expected (%s, %s)",
				i, e.StreamType, e.StreamID, key.StreamType, key.StreamID,
			))
		}
		if i > 0 && e.Version != envelopes[i-1].Version+1 {
			return Batch{}, NewInvalidEnvelopeError(ReasonNonContiguous, fmt.Sprintf(
				"batch versions must be contiguous: envelope %d has version %d, expected %d",
				i, e.Version, envelopes[i-1].Version+1,
			))
		}
	}
	out := make([]Envelope, len(envelopes))
	copy(out, envelopes)
	return Batch{envelopes: out}, nil
}

// Envelopes returns the batch's envelopes in order. The returned slice
// is a copy; mutating it does not affect the batch.
func (b Batch) Envelopes() []Envelope {
	out := make([]Envelope, len(b.envelopes))
	copy(out, b.envelopes)
	return out
}

// Key returns the stream the batch targets.
func (b Batch) Key() StreamKey {
	if len(b.envelopes) == 0 {
		return StreamKey{}
	}
	return b.envelopes[0].Key()
}

// FirstVersion returns the version of the batch's first envelope.
func (b Batch) FirstVersion() int64 {
	if len(b.envelopes) == 0 {
		return 0
	}
	return b.envelopes[0].Version
}

// Len returns the number of envelopes in the batch.
func (b Batch) Len() int {
	return len(b.envelopes)
}
