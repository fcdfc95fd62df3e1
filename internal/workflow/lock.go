package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrPartitionBusy reports that another process on this host already runs the
// same partition.
var ErrPartitionBusy = errors.New("partition already running on this host")

type partitionLock struct {
	path string
	lock *flock.Flock
}

func acquirePartitionLock(path string) (*partitionLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire partition lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock file %s)", ErrPartitionBusy, path)
	}
	return &partitionLock{path: path, lock: lock}, nil
}

func (l *partitionLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
