package store

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("another correction run holds the lock")

// RunLock is a cross-process lock so two CLI correction runs cannot apply
// updates to the same database at once.
type RunLock struct {
	lock *flock.Flock
}

func NewRunLock(path string) *RunLock {
	return &RunLock{lock: flock.New(path)}
}

// Acquire takes the lock without waiting.
func (l *RunLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, l.lock.Path())
	}
	return nil
}

func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
