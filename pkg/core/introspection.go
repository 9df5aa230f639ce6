package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	StoreType string `json:"store_type"`
	Fetched   int    `json:"fetched"`
	Replaced  int    `json:"replaced"`
	Store     any    `json:"store,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ServiceState{
		StoreType: "unknown",
		Fetched:   s.fetched,
		Replaced:  s.replaced,
	}
	if s.store != nil {
		st.StoreType = "store"
		if comp, ok := s.store.(introspection.Component); ok {
			st.StoreType = comp.ComponentType()
		}
		if intro, ok := s.store.(introspection.Introspectable); ok {
			st.Store = intro.State()
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
