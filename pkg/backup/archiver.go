// Package backup writes whole-dataset snapshots to a directory and keeps
// only the most recent ones.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/mend/internal/fsutil"
	"github.com/aretw0/mend/pkg/core"
)

const (
	// DefaultKeep is the number of snapshots retained by Rotate.
	DefaultKeep = 5
	// FilePrefix starts every snapshot file name.
	FilePrefix = "backup-"

	timeLayout = "20060102T150405.000Z"
)

// Snapshot is the on-disk form of a backup.
type Snapshot struct {
	Timestamp     time.Time      `json:"timestamp"`
	Dataset       string         `json:"dataset"`
	DocumentCount int            `json:"documentCount"`
	Documents     []core.Mapping `json:"documents"`
}

// Archiver creates, lists, rotates and restores snapshots.
type Archiver struct {
	svc     *core.Service
	dir     string
	dataset string
	keep    int
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.RWMutex
	created int
	removed int
	last    string
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithDataset names the dataset recorded in snapshots and file names.
func WithDataset(name string) Option {
	return func(a *Archiver) { a.dataset = name }
}

// WithKeep sets how many snapshots Rotate retains. Values below 1 keep the default.
func WithKeep(n int) Option {
	return func(a *Archiver) {
		if n > 0 {
			a.keep = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// WithLogger sets the logger for the archiver.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) { a.logger = logger }
}

// New creates an Archiver writing into dir.
func New(store core.Store, dir string, opts ...Option) *Archiver {
	a := &Archiver{
		svc:     core.NewService(store),
		dir:     dir,
		dataset: "default",
		keep:    DefaultKeep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Dir returns the snapshot directory.
func (a *Archiver) Dir() string { return a.dir }

// Create fetches the documents matched by query, writes them as a new
// snapshot and rotates old ones. It returns the snapshot path.
func (a *Archiver) Create(ctx context.Context, query string) (string, error) {
	docs, err := a.svc.Fetch(ctx, query)
	if err != nil {
		return "", err
	}
	if docs == nil {
		docs = []core.Mapping{}
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	release, err := fsutil.Lock(ctx, a.dir)
	if err != nil {
		return "", err
	}
	defer release()

	ts, err := a.freeTimestamp(a.now().UTC())
	if err != nil {
		return "", err
	}
	snap := Snapshot{
		Timestamp:     ts,
		Dataset:       a.dataset,
		DocumentCount: len(docs),
		Documents:     docs,
	}
	path := filepath.Join(a.dir, a.fileName(ts))
	if err := fsutil.WriteJSONAtomic(path, snap, 0644); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.created++
	a.last = path
	a.mu.Unlock()
	a.logger.Info("snapshot written", "path", path, "documents", len(docs))

	if _, err := a.Rotate(); err != nil {
		return path, err
	}
	return path, nil
}

func (a *Archiver) fileName(ts time.Time) string {
	return a.prefix() + ts.Format(timeLayout) + ".json"
}

func (a *Archiver) prefix() string {
	return FilePrefix + a.dataset + "-"
}

// freeTimestamp returns ts, moved forward one millisecond at a time while
// a snapshot with that name already exists. Callers hold the directory lock.
func (a *Archiver) freeTimestamp(ts time.Time) (time.Time, error) {
	ts = ts.Truncate(time.Millisecond)
	for i := 0; i < 1000; i++ {
		_, err := os.Stat(filepath.Join(a.dir, a.fileName(ts)))
		if os.IsNotExist(err) {
			return ts, nil
		}
		if err != nil {
			return ts, fmt.Errorf("failed to check snapshot name: %w", err)
		}
		ts = ts.Add(time.Millisecond)
	}
	return ts, fmt.Errorf("no free snapshot name near %s", ts.Format(timeLayout))
}

// owns reports whether name is a snapshot of this dataset: the prefix
// followed by exactly one timestamp. "backup-prod-eu-<ts>.json" does not
// belong to dataset "prod".
func (a *Archiver) owns(name string) bool {
	rest, ok := strings.CutPrefix(name, a.prefix())
	if !ok {
		return false
	}
	stamp, ok := strings.CutSuffix(rest, ".json")
	if !ok {
		return false
	}
	_, err := time.Parse(timeLayout, stamp)
	return err == nil
}

// List returns the snapshot paths of this dataset, oldest first.
func (a *Archiver) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !a.owns(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(a.dir, n)
	}
	return paths, nil
}

// Rotate deletes all but the most recent snapshots, ordered by file name.
// It returns the removed paths.
func (a *Archiver) Rotate() ([]string, error) {
	paths, err := a.List()
	if err != nil {
		return nil, err
	}
	if len(paths) <= a.keep {
		return nil, nil
	}

	stale := paths[:len(paths)-a.keep]
	var removed []string
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove old snapshot: %w", err)
		}
		removed = append(removed, p)
		a.logger.Debug("old snapshot removed", "path", p)
	}

	a.mu.Lock()
	a.removed += len(removed)
	a.mu.Unlock()
	return removed, nil
}

// Load reads a snapshot file.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

// Restore writes every document of the snapshot at path back to the
// store. Documents that fail are logged and skipped; the number restored
// is returned.
func (a *Archiver) Restore(ctx context.Context, path string) (int, error) {
	snap, err := Load(path)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, doc := range snap.Documents {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		if err := a.svc.Replace(ctx, doc); err != nil {
			a.logger.Error("restore failed", "id", doc.ID(), "error", err)
			continue
		}
		restored++
	}
	a.logger.Info("snapshot restored", "path", path, "documents", restored, "total", len(snap.Documents))
	return restored, nil
}
