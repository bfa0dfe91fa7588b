// Package runlock keeps two runs from writing the same report at once.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("another run holds the lock")

type Lock struct {
	fl *flock.Flock
}

// PathFor is the lock file guarding a report.
func PathFor(output string) string { return output + ".lock" }

// Acquire takes the lock for output without blocking.
func Acquire(output string) (*Lock, error) {
	path := PathFor(output)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
