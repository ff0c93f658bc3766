// Package lockfile prevents two supervisors from managing the same project
// directory at once.
package lockfile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = ".devserve.lock"

// ErrHeld is returned when another supervisor already holds the lock.
var ErrHeld = errors.New("lock already held by another process")

// Lock is an acquired per-directory advisory lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the directory lock without blocking. It returns ErrHeld when
// another process holds it.
func Acquire(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, lockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", fl.Path(), ErrHeld)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. The lock file itself is left behind; flock
// semantics make a stale file harmless.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
