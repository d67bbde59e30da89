package statestore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	fl := NewFileLock(path, time.Second)
	if err := fl.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
}

func TestFileLockUnlockWithoutLock(t *testing.T) {
	fl := NewFileLock(filepath.Join(t.TempDir(), "test.lock"), time.Second)
	if err := fl.Unlock(); err != nil {
		t.Errorf("Unlock() on unheld lock error = %v, want nil", err)
	}
}

func TestFileLockReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first := NewFileLock(path, time.Second)
	if err := first.Lock(); err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	second := NewFileLock(path, time.Second)
	if err := second.Lock(); err != nil {
		t.Fatalf("second Lock() error = %v", err)
	}
	_ = second.Unlock()
}

func TestFileLockTimeout(t *testing.T) {
	// flock locks are per-open-file-description, so a second descriptor in
	// the same process contends exactly like another process would.
	path := filepath.Join(t.TempDir(), "test.lock")

	holder := NewFileLock(path, time.Second)
	if err := holder.Lock(); err != nil {
		t.Fatalf("holder Lock() error = %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	waiter := NewFileLock(path, 150*time.Millisecond)
	start := time.Now()
	err := waiter.Lock()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Lock() error = %v, want ErrLockTimeout", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Lock() returned after %v, want it to wait out the timeout", elapsed)
	}
}
