package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/mend/pkg/core"
)

func TestStore_Watch(t *testing.T) {
	s := newTestStore(t, Config{})
	require.NoError(t, os.MkdirAll(filepath.Join(s.Path, "pages"), 0755))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := s.Watch(ctx, "pages/**")
	require.NoError(t, err)

	// Naive wait for the watcher to register.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, s.Path, "other.json", `{"_id":"other"}`)
	writeFile(t, s.Path, "pages/home.json", `{"_id":"pages/home"}`)

	select {
	case e := <-events:
		assert.Equal(t, "pages/home", e.ID)
		assert.Contains(t, []core.EventType{core.EventCreate, core.EventModify}, e.Type)
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch event")
	}

	cancel()
	for range events {
		// drain until the watcher closes the channel
	}
	assert.False(t, s.State().(StoreState).WatcherActive)
}

func TestStore_Watch_InvalidPattern(t *testing.T) {
	s := newTestStore(t, Config{})
	_, err := s.Watch(context.Background(), "pages/[")
	assert.Error(t, err)
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	got := make(chan core.Event, 10)

	for i := 0; i < 5; i++ {
		d.add(core.Event{Type: core.EventModify, ID: "a", Timestamp: int64(i)}, func(e core.Event) { got <- e })
	}
	time.Sleep(100 * time.Millisecond)
	d.stopAndWait(time.Second)

	require.Len(t, got, 1)
	assert.Equal(t, int64(4), (<-got).Timestamp)
}
