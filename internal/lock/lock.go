// Package lock provides the per-namespace advisory file lock that wraps an
// entire Create or Delete flow.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryInterval = 50 * time.Millisecond

// Lock is a persistent, per-namespace advisory file lock. It is created on
// first touch of a namespace and never removed.
type Lock struct {
	flock *flock.Flock
	path  string
}

// New returns the lock for namespace, rooted at baseDir. baseDir is created
// if it does not yet exist.
func New(baseDir, namespace string) (*Lock, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: creating lock dir: %w", err)
	}

	path := filepath.Join(baseDir, namespace+".lock")

	return &Lock{flock: flock.New(path), path: path}, nil
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.flock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("lock: acquiring %s: %w", l.path, err)
	}

	if !ok {
		return fmt.Errorf("lock: could not acquire %s", l.path)
	}

	return nil
}

// Release unlocks the lock file. The file itself is never removed -
// persisting the lock across deployments is intentional.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
