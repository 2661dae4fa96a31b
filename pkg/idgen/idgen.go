// Package idgen generates the 26-character Crockford-Base32 ULIDs used
// as event_id values (spec.md §4.7, C7).
//
// Two ULIDs minted within the same millisecond must still compare
// strictly in generation order, so the random component has to
// increase monotonically within a millisecond. oklog/ulid/v2's
// Monotonic entropy source gives us exactly that, but its reader is
// not safe for concurrent use on its own — we guard it the same way
// the teacher guards its own shared, mutable state, with a
// deadlock-detecting mutex instead of a bare sync.Mutex.
package idgen

import (
	"crypto/rand"

	"github.com/sasha-s/go-deadlock"

	"github.com/oklog/ulid/v2"

	"github.com/mhallum/calista/pkg/clock"
)

// Generator mints globally unique, monotonically sortable event IDs.
type Generator interface {
	New() (string, error)
}

// Monotonic is a Generator backed by oklog/ulid/v2's monotonic entropy
// source. The zero value is not usable; construct with NewMonotonic.
type Monotonic struct {
	clock clock.Clock

	mu      deadlock.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ Generator = (*Monotonic)(nil)

// NewMonotonic returns a Generator that stamps new IDs using c for the
// millisecond timestamp and crypto/rand for entropy.
func NewMonotonic(c clock.Clock) *Monotonic {
	return &Monotonic{
		clock:   c,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns a fresh 26-character ULID string. Called concurrently,
// successive IDs still sort in call order as long as the clock does
// not move backwards between calls.
func (m *Monotonic) New() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(m.clock.Now()), m.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
