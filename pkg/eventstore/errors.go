package eventstore

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/mhallum/calista/pkg/envelope"
)

// ReasonCode is a machine-readable cause for an InvalidEnvelopeError.
// Re-exported from pkg/envelope, where envelope.New and
// envelope.NewBatch construct InvalidEnvelopeError values directly as
// spec.md §4.5's pure, pre-DB preflight step.
type ReasonCode = envelope.ReasonCode

const (
	ReasonMixedStreams   = envelope.ReasonMixedStreams
	ReasonNonContiguous  = envelope.ReasonNonContiguous
	ReasonNaiveTimestamp = envelope.ReasonNaiveTimestamp
	ReasonBadULID        = envelope.ReasonBadULID
	ReasonNonJSON        = envelope.ReasonNonJSON
	ReasonFieldTooLong   = envelope.ReasonFieldTooLong
	ReasonEmptyBatch     = envelope.ReasonEmptyBatch
	ReasonBadVersion     = envelope.ReasonBadVersion
)

// InvalidEnvelopeError is a pre-DB validation failure: mixed streams
// in a batch, a non-contiguous version sequence, a naive or non-UTC
// timestamp, a non-JSON payload/metadata, a field-length violation,
// or a malformed ULID. It is defined in pkg/envelope (see that
// package's errors.go) so envelope.New/envelope.NewBatch can raise it
// without this package importing back into envelope; this alias lets
// callers of the store reach it without a second import.
type InvalidEnvelopeError = envelope.InvalidEnvelopeError

// NewInvalidEnvelopeError constructs an InvalidEnvelopeError with the
// given reason code and message.
var NewInvalidEnvelopeError = envelope.NewInvalidEnvelopeError

// Error is the base of every store-committed error this package
// raises directly (VersionConflictError, DuplicateEventIdError,
// StoreUnavailableError). InvalidEnvelopeError is raised by
// pkg/envelope instead, so it is not part of this marker set; callers
// branch on the concrete type (via errors.As), not on message text.
type Error interface {
	error
	storeError()
}

// baseError carries the xerrors.Frame that gave the teacher's own
// ComplexError its stack-capture behavior (pkg/commands/errors.go),
// adapted to a reason-coded taxonomy instead of an int code.
type baseError struct {
	message string
	frame   xerrors.Frame
}

func newBaseError(message string) baseError {
	return baseError{message: message, frame: xerrors.Caller(2)}
}

func (e baseError) FormatError(p xerrors.Printer) error {
	p.Print(e.message)
	e.frame.Format(p)
	return nil
}

func (e baseError) Format(f fmt.State, c rune) { xerrors.FormatError(e, f, c) }
func (e baseError) Error() string              { return fmt.Sprint(e) }
func (baseError) storeError()                  {}

// VersionConflictError signals that a stream's (stream_id, version)
// already exists, or the batch's starting version does not equal
// tip + 1.
type VersionConflictError struct {
	baseError
	StreamType string
	StreamID   string
}

// NewVersionConflictError constructs a VersionConflictError.
func NewVersionConflictError(streamType, streamID, message string) *VersionConflictError {
	return &VersionConflictError{baseError: newBaseError(message), StreamType: streamType, StreamID: streamID}
}

// DuplicateEventIdError signals that an event_id already exists
// globally.
type DuplicateEventIdError struct {
	baseError
	EventID string
}

// NewDuplicateEventIdError constructs a DuplicateEventIdError.
func NewDuplicateEventIdError(eventID, message string) *DuplicateEventIdError {
	return &DuplicateEventIdError{baseError: newBaseError(message), EventID: eventID}
}

// StoreUnavailableError signals a connectivity, timeout, or
// transaction-abort failure not attributable to caller preconditions.
// The store never retries internally; callers decide whether to.
type StoreUnavailableError struct {
	baseError
	Cause error
}

// NewStoreUnavailableError wraps cause as a StoreUnavailableError.
func NewStoreUnavailableError(message string, cause error) *StoreUnavailableError {
	return &StoreUnavailableError{baseError: newBaseError(message), Cause: cause}
}

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

var (
	_ Error = (*VersionConflictError)(nil)
	_ Error = (*DuplicateEventIdError)(nil)
	_ Error = (*StoreUnavailableError)(nil)
)
