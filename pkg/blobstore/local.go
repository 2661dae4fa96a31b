package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mhallum/calista/pkg/digest"
)

// LocalStore is a Store backed by a local (or network-mounted)
// filesystem directory. Blobs are staged under <root>/tmp and,
// once fully written and hashed, installed atomically via rename
// into <root>/objects/<digest[:2]>/<digest[2:4]>/<digest> — the
// two-level sharding keeps any single directory from accumulating
// an unbounded number of entries.
//
// The staging-then-rename sequence is grounded on the OCI image
// layout's blob installer: write to a temp file in the same
// filesystem, fsync before closing, then rename into place so a
// reader never observes a partially-written blob.
type LocalStore struct {
	root string
	// fsync controls whether Store fsyncs the staged file (and its
	// parent directory, after the rename) before returning. Disabling
	// it trades durability-on-crash for throughput; see
	// config.BlobStoreConfig.
	fsync bool
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore constructs a LocalStore rooted at root, creating the
// root, its tmp staging directory, and its objects directory if they
// don't already exist.
func NewLocalStore(root string, fsync bool) (*LocalStore, error) {
	for _, dir := range []string{root, filepath.Join(root, "tmp"), filepath.Join(root, "objects")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IOError{Op: "mkdir " + dir, Cause: err}
		}
	}
	return &LocalStore{root: root, fsync: fsync}, nil
}

func (s *LocalStore) Store(ctx context.Context, r io.Reader) (Stat, error) {
	if err := ctx.Err(); err != nil {
		return Stat{}, &IOError{Op: "store", Cause: err}
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "blob-*")
	if err != nil {
		return Stat{}, &IOError{Op: "stage blob", Cause: err}
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return Stat{}, &IOError{Op: "write staged blob", Cause: err}
	}

	if s.fsync {
		if err := tmp.Sync(); err != nil {
			return Stat{}, &IOError{Op: "fsync staged blob", Cause: err}
		}
	}
	if err := tmp.Close(); err != nil {
		return Stat{}, &IOError{Op: "close staged blob", Cause: err}
	}

	d := hex.EncodeToString(h.Sum(nil))
	target := s.blobPath(d)

	if _, err := os.Stat(target); err == nil {
		// Already installed by an earlier or concurrent Store call;
		// discard the redundant copy rather than rewriting it.
		os.Remove(tmpPath)
		succeeded = true
		return Stat{Digest: d, Size: size}, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Stat{}, &IOError{Op: "create shard directory", Cause: err}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		if runtime.GOOS == "windows" {
			// Windows forbids renaming onto an existing file; a
			// concurrent Store call may have won the race.
			if _, statErr := os.Stat(target); statErr == nil {
				os.Remove(tmpPath)
				succeeded = true
				return Stat{Digest: d, Size: size}, nil
			}
		}
		return Stat{}, &IOError{Op: "install blob", Cause: err}
	}
	succeeded = true

	if s.fsync {
		if err := fsyncDir(filepath.Dir(target)); err != nil {
			return Stat{}, &IOError{Op: "fsync shard directory", Cause: err}
		}
	}

	return Stat{Digest: d, Size: size}, nil
}

func (s *LocalStore) OpenRead(ctx context.Context, d string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IOError{Op: "open blob", Cause: err}
	}
	if !digest.IsValid(d) {
		return nil, &InvalidDigestError{Digest: d}
	}
	f, err := os.Open(s.blobPath(d))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Digest: d}
		}
		return nil, &IOError{Op: "open blob", Cause: err}
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, d string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &IOError{Op: "stat blob", Cause: err}
	}
	if !digest.IsValid(d) {
		return false, &InvalidDigestError{Digest: d}
	}
	_, err := os.Stat(s.blobPath(d))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, &IOError{Op: "stat blob", Cause: err}
}

// blobPath returns the sharded on-disk path for digest d, e.g.
// <root>/objects/ab/cd/abcd... (the full 64 hex chars).
func (s *LocalStore) blobPath(d string) string {
	return filepath.Join(s.root, "objects", d[:2], d[2:4], d)
}

func fsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
