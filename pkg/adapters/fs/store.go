// Package fs implements core.Store over a directory of JSON and YAML
// documents, such as a dataset export checked into a repository.
package fs

import (
	"context"
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

// DefaultSystemDir holds the store's own files (the index cache).
const DefaultSystemDir = ".mend"

// Config holds the configuration for the directory store.
type Config struct {
	Path         string
	SystemDir    string // defaults to ".mend"
	DefaultExt   string // extension for new documents, defaults to ".json"
	ReadOnly     bool
	MustExist    bool
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher errors
}

// Store implements core.Store. A document lives in one file named after
// its _id; files whose body carries a different _id are found through
// the index cache.
type Store struct {
	Path        string
	config      Config
	serializers map[string]Serializer
	cache       *cache

	mu            sync.RWMutex
	watcherActive bool
	lastScan      *time.Time
}

// NewStore creates a new directory-backed store.
func NewStore(config Config) *Store {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.DefaultExt == "" {
		config.DefaultExt = ".json"
	}
	if !strings.HasPrefix(config.DefaultExt, ".") {
		config.DefaultExt = "." + config.DefaultExt
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		Path:        config.Path,
		config:      config,
		serializers: DefaultSerializers(),
		cache:       newCache(config.Path, config.SystemDir),
	}
}

// SetSerializer registers a serializer for ext (".json", ".yaml", ...).
func (s *Store) SetSerializer(ext string, ser Serializer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serializers[ext] = ser
}

// Initialize prepares the directory and loads the index cache.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return s.cache.Load()
}

// Fetch returns the documents matched by a local selector
// (see core.ParseSelector), sorted by _id.
func (s *Store) Fetch(ctx context.Context, query string) ([]core.Mapping, error) {
	sel, err := core.ParseSelector(query)
	if err != nil {
		return nil, err
	}

	var docs []core.Mapping
	err = s.scan(ctx, func(rel string, entry *indexEntry, doc core.Mapping) error {
		if doc == nil {
			if sel.Type != "" && entry.Type != sel.Type {
				return nil
			}
			var err error
			if doc, err = s.read(rel); err != nil {
				s.config.Logger.Warn("skipping unreadable document", "path", rel, "error", err)
				return nil
			}
		}
		if sel.Match(doc) {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	return docs, nil
}

// Get retrieves a document by _id. The file named after the id is tried
// first, then the index.
func (s *Store) Get(ctx context.Context, id string) (core.Mapping, bool, error) {
	rel, ok, err := s.locate(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	doc, err := s.read(rel)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return doc, true, nil
}

// PutReplace writes doc over its existing file, keeping that file's
// format, or creates <_id><DefaultExt>.
func (s *Store) PutReplace(ctx context.Context, doc core.Mapping) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("%w: document has no _id", core.ErrInvalidDocument)
	}

	rel, ok, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		rel = filepath.ToSlash(filepath.Clean(id)) + s.config.DefaultExt
		if strings.HasPrefix(rel, "../") {
			return fmt.Errorf("%w: _id escapes the store: %s", core.ErrInvalidDocument, id)
		}
	}

	ser, err := s.serializer(rel)
	if err != nil {
		return err
	}
	data, err := ser.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", id, err)
	}

	full := filepath.Join(s.Path, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(full, data, 0644); err != nil {
		return err
	}

	if info, err := os.Stat(full); err == nil {
		s.cache.Set(rel, &indexEntry{ID: id, Type: doc.Type(), LastModified: info.ModTime()})
		if err := s.cache.Save(); err != nil {
			s.config.Logger.Debug("failed to save index", "error", err)
		}
	}
	s.config.Logger.Debug("document written", "id", id, "path", rel)
	return nil
}

// TypeQuery implements core.TypeQuerier.
func (s *Store) TypeQuery(docType string) string {
	return core.SelectorTypePrefix + docType
}

func (s *Store) locate(ctx context.Context, id string) (string, bool, error) {
	if id == "" {
		return "", false, nil
	}
	base := filepath.ToSlash(filepath.Clean(id))
	if !strings.HasPrefix(base, "../") {
		for _, ext := range s.extensions() {
			rel := base + ext
			if _, err := os.Stat(filepath.Join(s.Path, filepath.FromSlash(rel))); err == nil {
				return rel, true, nil
			}
		}
	}

	// The id is not a file name: refresh the index and look it up.
	if err := s.scan(ctx, func(string, *indexEntry, core.Mapping) error { return nil }); err != nil {
		return "", false, err
	}
	rel, ok := s.cache.Lookup(id)
	return rel, ok, nil
}

// scan walks the directory, refreshes the index for every supported file
// and calls fn with the fresh entry. doc is nil when the entry came from
// the index without parsing the file.
func (s *Store) scan(ctx context.Context, fn func(rel string, entry *indexEntry, doc core.Mapping) error) error {
	seen := make(map[string]bool)
	supported := make(map[string]bool)
	for _, ext := range s.extensions() {
		supported[ext] = true
	}

	err := filepath.WalkDir(s.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Path && (d.Name() == ".git" || d.Name() == s.config.SystemDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if fsutil.IsTemp(path) || !supported[filepath.Ext(path)] {
			return nil
		}

		rel, err := filepath.Rel(s.Path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if entry, hit := s.cache.Get(rel, info.ModTime()); hit {
			return fn(rel, entry, nil)
		}

		doc, err := s.read(rel)
		if err != nil {
			s.config.Logger.Debug("unparseable file", "path", rel, "error", err)
			return nil
		}
		entry := &indexEntry{ID: doc.ID(), Type: doc.Type(), LastModified: info.ModTime()}
		s.cache.Set(rel, entry)
		return fn(rel, entry, doc)
	})
	if err != nil {
		return err
	}

	s.cache.Prune(seen)
	if !s.config.ReadOnly {
		if err := s.cache.Save(); err != nil {
			s.config.Logger.Debug("failed to save index", "error", err)
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastScan = &now
	s.mu.Unlock()
	return nil
}

// read parses the file at rel. A missing _id defaults to the path
// without its extension.
func (s *Store) read(rel string) (core.Mapping, error) {
	ser, err := s.serializer(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Path, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ser.Parse(f)
	if err != nil {
		return nil, err
	}
	if doc.ID() == "" {
		doc["_id"] = core.String(idFromPath(rel))
	}
	return doc, nil
}

func (s *Store) serializer(rel string) (Serializer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ser, ok := s.serializers[filepath.Ext(rel)]
	if !ok {
		return nil, fmt.Errorf("no serializer for %s", rel)
	}
	return ser, nil
}

// extensions lists the registered extensions, ".json" first.
func (s *Store) extensions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exts := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if (exts[i] == ".json") != (exts[j] == ".json") {
			return exts[i] == ".json"
		}
		return exts[i] < exts[j]
	})
	return exts
}

func idFromPath(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}
