package envelope

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ReasonCode is a machine-readable cause for an InvalidEnvelopeError.
type ReasonCode string

const (
	ReasonMixedStreams   ReasonCode = "mixed_streams"
	ReasonNonContiguous  ReasonCode = "non_contiguous"
	ReasonNaiveTimestamp ReasonCode = "naive_timestamp"
	ReasonBadULID        ReasonCode = "bad_ulid"
	ReasonNonJSON        ReasonCode = "non_json"
	ReasonFieldTooLong   ReasonCode = "field_too_long"
	ReasonEmptyBatch     ReasonCode = "empty_batch"
	ReasonBadVersion     ReasonCode = "bad_version"
)

// InvalidEnvelopeError is a pre-DB validation failure (spec.md §4.4,
// §7): mixed streams in a batch, a non-contiguous version sequence, a
// naive or non-UTC timestamp, a non-JSON payload/metadata, a
// field-length violation, or a malformed ULID. New and NewBatch are
// spec.md §4.5's "preflight validation (pure, no I/O)" step, so they
// raise this directly rather than a bare error; pkg/eventstore
// re-exports the same type under its own name for callers that only
// import the store package.
type InvalidEnvelopeError struct {
	message string
	frame   xerrors.Frame
	Reason  ReasonCode
}

// NewInvalidEnvelopeError constructs an InvalidEnvelopeError with the
// given reason code and message.
func NewInvalidEnvelopeError(reason ReasonCode, message string) *InvalidEnvelopeError {
	return &InvalidEnvelopeError{message: message, frame: xerrors.Caller(1), Reason: reason}
}

func (e *InvalidEnvelopeError) FormatError(p xerrors.Printer) error {
	p.Print(e.message)
	e.frame.Format(p)
	return nil
}

func (e *InvalidEnvelopeError) Format(f fmt.State, c rune) { xerrors.FormatError(e, f, c) }
func (e *InvalidEnvelopeError) Error() string              { return fmt.Sprint(e) }
