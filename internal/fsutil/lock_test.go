package fsutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	dir := t.TempDir()

	release, err := Lock(context.Background(), dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, LockFileName))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = Lock(ctx, dir)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release, err = Lock(context.Background(), dir)
	require.NoError(t, err)
	release()
	assert.NoFileExists(t, filepath.Join(dir, LockFileName))
}
