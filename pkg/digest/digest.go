// Package digest implements the content-identity primitives shared by
// the blob store: validating a 64-hex SHA-256 string and hashing a
// stream of bytes without buffering the whole payload.
//
// The algorithm is fixed at SHA-256 and is never encoded in the digest
// string itself (spec.md §6); a digest is simply its 64 lowercase hex
// characters.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
)

// hexPattern matches exactly 64 lowercase hex characters. Uppercase is
// rejected on purpose: stored digests are always lowercase, and this
// package never normalizes case for a caller.
var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// streamChunkSize bounds how much of the reader is buffered at once by
// HashStream. It never buffers the whole payload.
const streamChunkSize = 64 * 1024

// IsValid reports whether d is a well-formed 64-character lowercase
// hex SHA-256 digest.
func IsValid(d string) bool {
	return hexPattern.MatchString(d)
}

// HashStream reads r to EOF in bounded chunks, returning the lowercase
// hex SHA-256 digest of everything read and the total byte count.
func HashStream(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, streamChunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			// hash.Hash.Write never returns an error.
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), total, nil
}
