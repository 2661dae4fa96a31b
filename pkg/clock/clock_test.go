package clock_test

import (
	"testing"
	"time"

	"github.com/mhallum/calista/pkg/clock"
	"github.com/stretchr/testify/assert"
)

func TestSystemNowIsUTC(t *testing.T) {
	now := (clock.System{}).Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestFixedNowReturnsPinnedInstant(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	c := clock.NewFixed(at)

	got := c.Now()

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, at.Equal(got))
}
