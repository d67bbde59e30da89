package statestore

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrLockTimeout is returned when the state lock cannot be acquired
// within the configured bound. Callers may retry or skip the cycle.
var ErrLockTimeout = errors.New("timed out acquiring state lock")

// lockRetryInterval is how long to sleep between non-blocking lock attempts.
const lockRetryInterval = 50 * time.Millisecond

// FileLock provides cross-process mutual exclusion using flock(2) with a
// bounded acquisition time. The lock file is separate from the data file
// so the data file itself is only ever touched through atomic renames.
type FileLock struct {
	path    string
	timeout time.Duration
	file    *os.File
}

// NewFileLock creates a FileLock at the given path with the given
// acquisition timeout.
func NewFileLock(path string, timeout time.Duration) *FileLock {
	return &FileLock{path: path, timeout: timeout}
}

// Lock acquires the exclusive lock, retrying until the timeout elapses.
// Returns ErrLockTimeout if another process holds the lock for the whole
// window. The lock file is created if it does not exist.
func (fl *FileLock) Lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(fl.timeout)
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			fl.file = f
			return nil
		}
		if err != syscall.EWOULDBLOCK {
			_ = f.Close()
			return fmt.Errorf("flock: %w", err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return fmt.Errorf("%w: %s held for over %s", ErrLockTimeout, fl.path, fl.timeout)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Unlock releases the lock and closes the lock file. Calling Unlock on an
// unheld lock is a no-op.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
