// Package filelock serializes writers of one output file across processes
// and replaces the file atomically.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often a waiting writer polls the lock.
const retryDelay = 25 * time.Millisecond

// Lock is an advisory lock on "<target>.lock".
type Lock struct {
	fl     *flock.Flock
	target string
}

// New returns the lock guarding target. Nothing is acquired yet.
func New(target string) *Lock {
	return &Lock{
		fl:     flock.New(target + ".lock"),
		target: target,
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.target), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", l.target, err)
	}

	ok, err := l.fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.Path(), err)
	}

	if !ok {
		return fmt.Errorf("lock %s: %w", l.Path(), ctx.Err())
	}

	return nil
}

// TryAcquire takes the lock without waiting. It reports false when another
// holder has it.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.target), 0o750); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", l.target, err)
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", l.Path(), err)
	}

	return ok, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.Path(), err)
	}

	return nil
}

// ReplaceFile writes data to a temp file next to path, syncs it, and renames
// it over path. Readers see either the old or the new content, never a mix.
func ReplaceFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false

	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	committed = true

	return nil
}

// WriteLocked holds the lock for path while replacing its content.
func WriteLocked(ctx context.Context, path string, data []byte) (err error) {
	lock := New(path)
	if err := lock.Acquire(ctx); err != nil {
		return err
	}

	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return ReplaceFile(path, data, 0o644)
}
