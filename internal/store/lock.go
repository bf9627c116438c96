package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLockFile is the lock taken for the duration of a reconcile or enrich
// run.
const RunLockFile = ".reconcile.lock"

// ErrRunInProgress reports that another process holds the run lock.
var ErrRunInProgress = errors.New("another closetpicks run holds the data directory lock")

// RunLock excludes concurrent runs against one data directory.
type RunLock struct {
	path string
	lock *flock.Flock
}

// AcquireRunLock takes the run lock without waiting.
func AcquireRunLock(dir string) (*RunLock, error) {
	path := filepath.Join(dir, RunLockFile)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrRunInProgress, path)
	}
	return &RunLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string { return l.path }

// Release drops the lock.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
