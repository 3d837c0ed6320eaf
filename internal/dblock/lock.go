// Package dblock implements the file-based cross-process locks described
// in C14 (Index & Lock Manager): the per-DB write lock and the
// materializer build lock. Both use the "presence means in-progress"
// O_EXCL semantics the original ad-hoc lock files relied on.
package dblock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrTimeout is returned by Acquire when the lock is still held after the
// configured wait.
var ErrTimeout = errors.New("dblock: timed out waiting for lock")

// FileLock is an O_EXCL advisory lock backed by a lock file's presence.
type FileLock struct {
	path string
	held bool
}

// New returns a lock bound to path; the lock file is not created until
// Acquire succeeds.
func New(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire attempts an atomic create of the lock file, retrying with the
// given poll interval until it succeeds, the context is done, or timeout
// elapses. timeout <= 0 means wait forever (bounded only by ctx).
func (l *FileLock) Acquire(ctx context.Context, timeout time.Duration, poll time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("dblock: create lock %s: %w", l.path, err)
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// TryAcquire makes a single non-blocking attempt.
func (l *FileLock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()
		l.held = true
		return true, nil
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("dblock: create lock %s: %w", l.path, err)
}

// Held reports whether the lock file is currently present, regardless of
// which process (if any) holds it.
func (l *FileLock) Held() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Release removes the lock file. Safe to call even if Acquire was never
// called; it is a no-op in that case.
func (l *FileLock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("dblock: release lock %s: %w", l.path, err)
	}
	return nil
}
