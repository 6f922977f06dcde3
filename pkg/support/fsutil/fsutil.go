// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrLocked is returned by AcquireLock if the lock file is already held.
var ErrLocked = errors.New("directory is locked by another process")

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// AllFilesExist returns whether every one of paths exists. It stops at the first missing one.
func AllFilesExist(paths ...string) (bool, error) {
	for _, p := range paths {
		exists, err := FileExists(p)
		if err != nil || !exists {
			return false, err
		}
	}
	return true, nil
}

// IsDir returns whether path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to stat %q", path)
	}
	return info.IsDir(), nil
}

// ReplaceTildeInDir by the user's home directory. Returns dir if it doesn't start with "~".
//
// It returns an error if `dir` has an unknown user (e.g: `~unknown/...`)
func ReplaceTildeInDir(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	userName, rest, _ := strings.Cut(dir[1:], "/")
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}

// AtomicFileMode is the permission of files created by WriteFileAtomically.
// It is set explicitly on the file, so the process umask is not applied.
const AtomicFileMode os.FileMode = 0644

// WriteFileAtomically creates filePath with the contents written by writeFn, with permissions AtomicFileMode.
//
// The contents are first written to a temporary file in the same directory, which is renamed to filePath
// only if writeFn succeeds, so filePath never exists half-written. The temporary file is removed on failure.
func WriteFileAtomically(filePath string, writeFn func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(filePath)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %q", filePath)
	}
	tmpPath := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	if err = writeFn(f); err != nil {
		return errors.WithMessagef(err, "while writing %q", filePath)
	}
	if err = f.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %q", tmpPath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", tmpPath)
	}
	if err = os.Chmod(tmpPath, AtomicFileMode); err != nil {
		return errors.Wrapf(err, "failed to set permissions of %q", tmpPath)
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		return errors.Wrapf(err, "failed to rename %q to %q", tmpPath, filePath)
	}
	return nil
}

// Lock is an exclusive marker file held by one process at a time.
type Lock struct {
	path string
}

// AcquireLock creates the lock file at path, failing with ErrLocked if it already exists.
// The file contains the process id of the holder, to help diagnose stale locks.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			holder, _ := os.ReadFile(path)
			return nil, errors.Wrapf(ErrLocked, "lock file %q exists (holder %q); remove it if no other process is running",
				path, strings.TrimSpace(string(holder)))
		}
		return nil, errors.Wrapf(err, "failed to create lock file %q", path)
	}
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrapf(err, "failed to write lock file %q", path)
	}
	return &Lock{path: path}, nil
}

// Path of the lock file.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file. It is a no-op on a nil or already released Lock.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "failed to remove lock file %q", path)
	}
	return nil
}
