package backup

import (
	"github.com/aretw0/introspection"
)

// ArchiverState exposes internal state for observability.
type ArchiverState struct {
	Dir     string `json:"dir"`
	Dataset string `json:"dataset"`
	Keep    int    `json:"keep"`
	Created int    `json:"created"`
	Removed int    `json:"removed"`
	Last    string `json:"last,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Archiver) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return ArchiverState{
		Dir:     a.dir,
		Dataset: a.dataset,
		Keep:    a.keep,
		Created: a.created,
		Removed: a.removed,
		Last:    a.last,
	}
}

// ComponentType implements introspection.Component.
func (a *Archiver) ComponentType() string {
	return "archiver"
}

var _ introspection.Introspectable = (*Archiver)(nil)
var _ introspection.Component = (*Archiver)(nil)
