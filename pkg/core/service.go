package core

import (
	"context"
	"fmt"
	"sync"
)

// Service fronts a Store with document validation and bookkeeping.
type Service struct {
	store Store

	mu       sync.RWMutex
	fetched  int
	replaced int
}

// NewService creates a new Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying store.
func (s *Service) Store() Store { return s.store }

// Fetch runs query against the store.
func (s *Service) Fetch(ctx context.Context, query string) ([]Mapping, error) {
	docs, err := s.store.Fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", query, err)
	}
	s.mu.Lock()
	s.fetched += len(docs)
	s.mu.Unlock()
	return docs, nil
}

// Get retrieves a document by id.
func (s *Service) Get(ctx context.Context, id string) (Mapping, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("%w: document ID cannot be empty", ErrInvalidDocument)
	}
	doc, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", id, err)
	}
	if ok {
		s.mu.Lock()
		s.fetched++
		s.mu.Unlock()
	}
	return doc, ok, nil
}

// Replace writes doc back. Documents without an _id are rejected.
func (s *Service) Replace(ctx context.Context, doc Mapping) error {
	if doc.ID() == "" {
		return fmt.Errorf("%w: document has no _id", ErrInvalidDocument)
	}
	if err := s.store.PutReplace(ctx, doc); err != nil {
		return fmt.Errorf("replace %s: %w", doc.ID(), err)
	}
	s.mu.Lock()
	s.replaced++
	s.mu.Unlock()
	return nil
}

// TypeQuery builds the native query selecting documents of docType.
func (s *Service) TypeQuery(docType string) string {
	return TypeQuery(s.store, docType)
}

// Watch observes changes in the store if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.store.(Watchable)
	if !ok {
		return nil, fmt.Errorf("store does not support watching")
	}
	return w.Watch(ctx, pattern)
}
