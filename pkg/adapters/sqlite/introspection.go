package sqlite

import (
	"context"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path      string `json:"path"`
	Documents int    `json:"documents"`
	Writes    int64  `json:"writes"`
	ReadOnly  bool   `json:"read_only"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	n, _ := s.Count(context.Background())
	return StoreState{
		Path:      s.path,
		Documents: n,
		Writes:    s.writes.Load(),
		ReadOnly:  s.cfg.readOnly,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sqlite"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
