package digest_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mhallum/calista/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	scenarios := []struct {
		name  string
		input string
		valid bool
	}{
		{"valid lowercase", strings.Repeat("a", 64), true},
		{"uppercase rejected", strings.Repeat("A", 64), false},
		{"too short", strings.Repeat("a", 63), false},
		{"too long", strings.Repeat("a", 65), false},
		{"non-hex char", "g" + strings.Repeat("a", 63), false},
		{"empty", "", false},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			assert.Equal(t, s.valid, digest.IsValid(s.input))
		})
	}
}

func TestHashStreamKnownVector(t *testing.T) {
	d, size, err := digest.HashStream(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", d)
	assert.True(t, digest.IsValid(d))
}

func TestHashStreamEmpty(t *testing.T) {
	d, size, err := digest.HashStream(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d)
}

type errReader struct{ err error }

func (e errReader) Read(_ []byte) (int, error) { return 0, e.err }

func TestHashStreamPropagatesReadError(t *testing.T) {
	boom := assert.AnError
	_, _, err := digest.HashStream(errReader{err: boom})
	require.ErrorIs(t, err, boom)
}
