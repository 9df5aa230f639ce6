package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/mend/internal/fsutil"
	"github.com/aretw0/mend/pkg/core"
)

const debounceDelay = 50 * time.Millisecond

// Watch reports changes to documents whose id (path without extension)
// matches pattern. An empty pattern or "*" matches everything. The
// channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" || pattern == core.QueryAll {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := s.addDirs(watcher, s.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	events := make(chan core.Event, 100)
	s.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer s.setWatcherActive(false)
		defer watcher.Close()

		d := newDebouncer(debounceDelay)
		err := s.watchLoop(ctx, watcher, pattern, d, events)
		d.stopAndWait(5 * time.Second)
		return err
	}, lifecycle.WithErrorHandler(s.handleWatchError))

	return events, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, d *debouncer, events chan<- core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			e, ok := s.mapEvent(watcher, event, pattern)
			if !ok {
				continue
			}
			d.add(e, func(e core.Event) {
				select {
				case events <- e:
				case <-ctx.Done():
				}
			})

		case werr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			s.handleWatchError(werr)
		}
	}
}

// mapEvent turns a filesystem event into a store event.
func (s *Store) mapEvent(watcher *fsnotify.Watcher, event fsnotify.Event, pattern string) (core.Event, bool) {
	s.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addDirs(watcher, event.Name); err != nil {
				s.handleWatchError(err)
			}
			return core.Event{}, false
		}
	}

	if fsutil.IsTemp(event.Name) {
		return core.Event{}, false
	}
	rel, err := filepath.Rel(s.Path, event.Name)
	if err != nil {
		return core.Event{}, false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, s.config.SystemDir+"/") || strings.HasPrefix(rel, ".git/") {
		return core.Event{}, false
	}
	if _, err := s.serializer(rel); err != nil {
		return core.Event{}, false
	}

	var t core.EventType
	switch {
	case event.Has(fsnotify.Create):
		t = core.EventCreate
	case event.Has(fsnotify.Write):
		t = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		t = core.EventDelete
	default:
		return core.Event{}, false
	}

	id := idFromPath(rel)
	if ok, err := doublestar.Match(pattern, id); err != nil || !ok {
		return core.Event{}, false
	}
	return core.Event{Type: t, ID: id, Timestamp: time.Now().Unix()}, true
}

// addDirs adds root and its subdirectories to the watcher.
func (s *Store) addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.Path && (d.Name() == ".git" || d.Name() == s.config.SystemDir) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (s *Store) handleWatchError(err error) {
	s.config.Logger.Error("watcher error", "error", err)
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

// debouncer coalesces bursts of events for the same id.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// add schedules fn(e), replacing any pending event for the same id.
func (d *debouncer) add(e core.Event, fn func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.timers[e.ID]; ok && prev.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[e.ID] == t {
			delete(d.timers, e.ID)
		}
		d.mu.Unlock()
		fn(e)
	})
	d.timers[e.ID] = t
}

// stopAndWait cancels pending events and waits for running callbacks.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
