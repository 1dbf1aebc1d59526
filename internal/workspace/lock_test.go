package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileLockExcludesSecondHolder(t *testing.T) {
	root := t.TempDir()

	first, err := AcquireFileLock(root)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, LockName))

	_, err = AcquireFileLock(root)
	require.ErrorIs(t, err, ErrSubmissionInProgress)

	require.NoError(t, first.Release())
	require.NoFileExists(t, filepath.Join(root, LockName))

	second, err := AcquireFileLock(root)
	require.NoError(t, err)
	require.NoError(t, second.Release())
	require.NoError(t, second.Release())
}

func TestFileLockTakesOverStaleLock(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, LockName)
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":1}`), 0o600))
	old := time.Now().Add(-2 * StaleLockAge)
	require.NoError(t, os.Chtimes(path, old, old))

	l, err := AcquireFileLock(root)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestFileLockMissingWorkspace(t *testing.T) {
	_, err := AcquireFileLock(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubmissionInProgress)
}

func TestFileLockReleaseKeepsTakenOverLock(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, LockName)

	l, err := AcquireFileLock(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":2,"token":"other"}`), 0o600))

	require.NoError(t, l.Release())
	require.FileExists(t, path)
}

func TestFileLockRefreshKeepsLockFresh(t *testing.T) {
	prev := lockRefreshInterval
	lockRefreshInterval = 20 * time.Millisecond
	t.Cleanup(func() { lockRefreshInterval = prev })

	root := t.TempDir()
	path := filepath.Join(root, LockName)
	l, err := AcquireFileLock(root)
	require.NoError(t, err)
	defer func() { _ = l.Release() }()

	old := time.Now().Add(-2 * StaleLockAge)
	require.NoError(t, os.Chtimes(path, old, old))
	require.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && time.Since(info.ModTime()) < StaleLockAge
	}, 2*time.Second, 10*time.Millisecond)

	_, err = AcquireFileLock(root)
	require.ErrorIs(t, err, ErrSubmissionInProgress)
}

func TestBreakStaleLockLeavesNoLeftovers(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, LockName)
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":1}`), 0o600))
	old := time.Now().Add(-2 * StaleLockAge)
	require.NoError(t, os.Chtimes(path, old, old))

	require.True(t, breakStaleLock(path))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, os.WriteFile(path, []byte(`{"pid":3}`), 0o600))
	require.False(t, breakStaleLock(path), "a fresh lock is never broken")
	require.FileExists(t, path)
}
