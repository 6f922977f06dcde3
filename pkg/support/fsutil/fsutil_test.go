// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	exists, err := FileExists(filePath)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(filePath, []byte("a"), 0644))
	exists, err = FileExists(filePath)
	require.NoError(t, err)
	assert.True(t, exists)

	all, err := AllFilesExist(filePath, dir)
	require.NoError(t, err)
	assert.True(t, all)
	all, err = AllFilesExist(filePath, filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.False(t, all)

	isDir, err := IsDir(dir)
	require.NoError(t, err)
	assert.True(t, isDir)
	isDir, err = IsDir(filePath)
	require.NoError(t, err)
	assert.False(t, isDir)
}

func TestReplaceTildeInDir(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)

	got, err := ReplaceTildeInDir("~/data/flowers")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "data/flowers"), got)

	got, err = ReplaceTildeInDir("~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(usr.HomeDir), got)

	got, err = ReplaceTildeInDir("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	_, err = ReplaceTildeInDir("~no_such_user_for_sure_123/x")
	assert.Error(t, err)
}

func TestWriteFileAtomically(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.bin")
	require.NoError(t, WriteFileAtomically(target, func(w io.Writer) error {
		_, err := w.Write([]byte("contents"))
		return err
	}))
	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(contents))
	if runtime.GOOS != "windows" {
		// The temporary file is created 0600, the final file gets the documented mode.
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, AtomicFileMode, info.Mode().Perm())
	}

	// A failing writer leaves neither target nor temporary files behind.
	failed := filepath.Join(dir, "failed.bin")
	err = WriteFileAtomically(failed, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)
	exists, err := FileExists(failed)
	require.NoError(t, err)
	assert.False(t, exists)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.bin", entries[0].Name())
}

func TestLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".lock")
	lock, err := AcquireLock(lockPath)
	require.NoError(t, err)
	assert.Equal(t, lockPath, lock.Path())

	_, err = AcquireLock(lockPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release()) // Second release is a no-op.

	lock2, err := AcquireLock(lockPath)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())

	var nilLock *Lock
	assert.NoError(t, nilLock.Release())
}
