// Package blobstore is the content-addressed blob side-channel
// (spec.md §6): large or binary payloads live here keyed by their
// SHA-256 digest, and event envelopes reference them by digest string
// instead of embedding the bytes.
package blobstore

import (
	"context"
	"io"
)

// Stat describes a stored blob.
type Stat struct {
	Digest string
	Size   int64
}

// Store is a content-addressed blob store. Every method is safe for
// concurrent use by multiple goroutines; two callers storing the same
// bytes concurrently both succeed and the blob is written once.
type Store interface {
	// Store reads r to completion, computes its SHA-256 digest, and
	// installs it durably under that digest. If a blob with the same
	// digest already exists, Store discards the new read without
	// rewriting it. Store never returns a partially-written blob: a
	// reader can never observe content that doesn't hash to its
	// digest.
	Store(ctx context.Context, r io.Reader) (Stat, error)

	// OpenRead opens the blob named by digest for reading. The caller
	// must Close the returned reader. OpenRead fails with
	// *NotFoundError if no blob exists for digest, or
	// *InvalidDigestError if digest is not well-formed.
	OpenRead(ctx context.Context, digest string) (io.ReadCloser, error)

	// Exists reports whether a blob for digest is already stored.
	Exists(ctx context.Context, digest string) (bool, error)
}
