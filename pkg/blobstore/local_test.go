package blobstore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhallum/calista/pkg/blobstore"
)

func newStore(t *testing.T) *blobstore.LocalStore {
	t.Helper()
	store, err := blobstore.NewLocalStore(t.TempDir(), true)
	require.NoError(t, err)
	return store
}

func TestStoreThenOpenReadRoundTrips(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stat, err := store.Store(ctx, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), stat.Size)
	assert.Len(t, stat.Digest, 64)

	rc, err := store.OpenRead(ctx, stat.Digest)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestStoreIsIdempotentOnDisk(t *testing.T) {
	root := t.TempDir()
	store, err := blobstore.NewLocalStore(root, true)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Store(ctx, strings.NewReader("duplicate content"))
	require.NoError(t, err)
	second, err := store.Store(ctx, strings.NewReader("duplicate content"))
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)

	shardDir := filepath.Join(root, "objects", first.Digest[:2], first.Digest[2:4])
	entries, err := os.ReadDir(shardDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExistsReflectsStoredState(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stat, err := store.Store(ctx, strings.NewReader("payload"))
	require.NoError(t, err)

	ok, err := store.Exists(ctx, stat.Digest)
	require.NoError(t, err)
	assert.True(t, ok)

	missingDigest := strings.Repeat("0", 64)
	ok, err = store.Exists(ctx, missingDigest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenReadRejectsInvalidDigest(t *testing.T) {
	store := newStore(t)

	_, err := store.OpenRead(context.Background(), "not-a-digest")

	var invalid *blobstore.InvalidDigestError
	assert.ErrorAs(t, err, &invalid)
}

func TestOpenReadReturnsNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.OpenRead(context.Background(), strings.Repeat("a", 64))

	var notFound *blobstore.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStoreLeavesNoTempFilesOnSuccess(t *testing.T) {
	root := t.TempDir()
	store, err := blobstore.NewLocalStore(root, true)
	require.NoError(t, err)

	_, err = store.Store(context.Background(), strings.NewReader("clean up after yourself"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentStoreOfSameContentProducesOneBlob(t *testing.T) {
	root := t.TempDir()
	store, err := blobstore.NewLocalStore(root, true)
	require.NoError(t, err)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	digests := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stat, err := store.Store(ctx, strings.NewReader("concurrent payload"))
			digests[i] = stat.Digest
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, digests[0], digests[i])
	}

	shardDir := filepath.Join(root, "objects", digests[0][:2], digests[0][2:4])
	entries, err := os.ReadDir(shardDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
