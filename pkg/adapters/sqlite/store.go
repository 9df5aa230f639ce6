// Package sqlite implements core.Store on a single SQLite file. It is
// used as a local mirror of a dataset, e.g. to rehearse a repair offline.
//
// Usage:
//
//	s, err := sqlite.Open("mirror.db")
//	defer s.Close()
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/mend/pkg/core"
)

//go:embed schema.sql
var schemaSQL string

type config struct {
	busyTimeout int
	readOnly    bool
	mkdirAll    bool
	logger      *slog.Logger
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithReadOnly rejects writes with core.ErrReadOnly.
func WithReadOnly(ro bool) Option { return func(c *config) { c.readOnly = ro } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Store implements core.Store.
type Store struct {
	db     *sql.DB
	path   string
	cfg    config
	writes atomic.Int64
}

// Open opens (and migrates) the database at path. Use ":memory:" in tests.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 10_000}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path, cfg: cfg}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fetch returns the documents matched by a local selector, ordered by id.
// Globs are evaluated by SQLite's GLOB operator, which treats "**" like "*".
func (s *Store) Fetch(ctx context.Context, query string) ([]core.Mapping, error) {
	sel, err := core.ParseSelector(query)
	if err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		q    = "SELECT body FROM documents"
	)
	switch {
	case sel.All:
		rows, err = s.db.QueryContext(ctx, q+" ORDER BY id")
	case sel.Type != "":
		rows, err = s.db.QueryContext(ctx, q+" WHERE type = ? ORDER BY id", sel.Type)
	default:
		rows, err = s.db.QueryContext(ctx, q+" WHERE id GLOB ? ORDER BY id", strings.ReplaceAll(sel.Glob, "**", "*"))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: query documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Mapping
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		doc, err := core.DecodeMapping(strings.NewReader(body))
		if err != nil {
			s.cfg.logger.Warn("skipping corrupt row", "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, id string) (core.Mapping, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	doc, err := core.DecodeMapping(strings.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: decode %s: %w", id, err)
	}
	return doc, true, nil
}

// PutReplace upserts doc.
func (s *Store) PutReplace(ctx context.Context, doc core.Mapping) error {
	if s.cfg.readOnly {
		return core.ErrReadOnly
	}
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("%w: document has no _id", core.ErrInvalidDocument)
	}
	body, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, type, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET type = excluded.type, body = excluded.body, updated_at = excluded.updated_at`,
		id, doc.Type(), string(body), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", id, err)
	}
	s.writes.Add(1)
	return nil
}

// TypeQuery implements core.TypeQuerier.
func (s *Store) TypeQuery(docType string) string {
	return core.SelectorTypePrefix + docType
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}
