package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrAlreadyRunning = errors.New("host: another instance is already running")

const defaultLockName = "manga-exporter.lock"

// InstanceLock keeps a second copy from fighting over the fixed port.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

func NewInstanceLock(path string) *InstanceLock {
	if path == "" {
		path = filepath.Join(os.TempDir(), defaultLockName)
	}
	return &InstanceLock{path: path, lock: flock.New(path)}
}

func (l *InstanceLock) Path() string { return l.path }

func (l *InstanceLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

func (l *InstanceLock) Release() error {
	return l.lock.Unlock()
}
