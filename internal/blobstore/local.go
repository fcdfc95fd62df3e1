package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"docbatch/internal/fileutil"
)

// Local serves blobs from the local filesystem.
type Local struct {
	mode os.FileMode
}

// NewLocal constructs a local filesystem store writing files with mode 0644.
func NewLocal() *Local {
	return &Local{mode: 0o644}
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := fileutil.Exists(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return ok, nil
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (l *Local) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(path, data, l.mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
