package fsutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LockFileName is the lock file created by Lock.
const LockFileName = ".mend.lock"

// lockRetry is the delay between two acquisition attempts.
const lockRetry = 10 * time.Millisecond

// Lock acquires a file-based lock in dir, shared between processes.
// It blocks until the lock is acquired or ctx is done, and returns the
// release function.
func Lock(ctx context.Context, dir string) (func(), error) {
	path := filepath.Join(dir, LockFileName)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(path)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", path, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}
