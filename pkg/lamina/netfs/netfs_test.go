package netfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoNoRetryInNoneMode(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Mode: ModeNone}, "op", func() error {
		calls++
		return errors.New("being used by another process")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoCIFSRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	policy := Policy{Mode: ModeCIFS, RetryCount: 3, RetryDelayMs: 1}

	err := Do(context.Background(), policy, "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("the process cannot access the file because it is being used by another process")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoCIFSExhaustsAfterMaxAttempts(t *testing.T) {
	calls := 0
	policy := Policy{Mode: ModeCIFS, RetryCount: 3, RetryDelayMs: 1}

	err := Do(context.Background(), policy, "op", func() error {
		calls++
		return errors.New("sharing violation")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls) // 1 + retryCount
}

func TestDoNFSPermissionNotRetried(t *testing.T) {
	calls := 0
	policy := Policy{Mode: ModeNFS, RetryCount: 5, RetryDelayMs: 1}

	err := Do(context.Background(), policy, "op", func() error {
		calls++
		return os.ErrPermission
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoNFSStaleHandleRetried(t *testing.T) {
	calls := 0
	policy := Policy{Mode: ModeNFS, RetryCount: 2, RetryDelayMs: 1}

	err := Do(context.Background(), policy, "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("stale NFS file handle")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoNonRetryableErrorReturnsImmediately(t *testing.T) {
	calls := 0
	policy := Policy{Mode: ModeCIFS, RetryCount: 5, RetryDelayMs: 1}

	err := Do(context.Background(), policy, "op", func() error {
		calls++
		return errors.New("disk full")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{Mode: ModeCIFS, RetryCount: 10, RetryDelayMs: 50}

	calls := 0
	err := Do(ctx, policy, "op", func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errors.New("sharing violation")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAtomicMoveNoNetworkModeSimpleRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	err := AtomicMove(context.Background(), Policy{Mode: ModeNone}, src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicMoveCIFSOverwritesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	err := AtomicMove(context.Background(), Policy{Mode: ModeCIFS}, src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // no leftover backup file
}

func TestAtomicMoveCIFSNoExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	err := AtomicMove(context.Background(), Policy{Mode: ModeCIFS}, src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestEnsureDirectoryExistsCreatesNested(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")

	err := EnsureDirectoryExists(context.Background(), Policy{Mode: ModeNone}, target)
	require.NoError(t, err)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDirectoryExistsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a")
	require.NoError(t, os.Mkdir(target, 0o755))

	err := EnsureDirectoryExists(context.Background(), Policy{Mode: ModeNone}, target)
	require.NoError(t, err)
}

func TestEnsureDirectoryExistsFailsOnRegularFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	err := EnsureDirectoryExists(context.Background(), Policy{Mode: ModeNone}, target)
	require.Error(t, err)
}

func TestDeleteDirectoryIfEmptyWalksUpward(t *testing.T) {
	boundary := t.TempDir()
	leaf := filepath.Join(boundary, "a", "b", "c")
	require.NoError(t, os.MkdirAll(leaf, 0o755))

	err := DeleteDirectoryIfEmpty(context.Background(), Policy{Mode: ModeNone}, leaf, boundary)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(boundary, "a"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(boundary)
	assert.NoError(t, err)
}

func TestDeleteDirectoryIfEmptyStopsAtNonEmptySibling(t *testing.T) {
	boundary := t.TempDir()
	leaf := filepath.Join(boundary, "a", "b")
	sibling := filepath.Join(boundary, "a", "other")
	require.NoError(t, os.MkdirAll(leaf, 0o755))
	require.NoError(t, os.MkdirAll(sibling, 0o755))

	err := DeleteDirectoryIfEmpty(context.Background(), Policy{Mode: ModeNone}, leaf, boundary)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(boundary, "a"))
	assert.NoError(t, err) // "a" survives because "other" is still inside it
	_, err = os.Stat(sibling)
	assert.NoError(t, err)
}

func TestDeleteDirectoryIfEmptyAlreadyGoneIsSuccess(t *testing.T) {
	boundary := t.TempDir()
	missing := filepath.Join(boundary, "already-gone")

	err := DeleteDirectoryIfEmpty(context.Background(), Policy{Mode: ModeNone}, missing, boundary)
	require.NoError(t, err)
}
