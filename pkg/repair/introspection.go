package repair

import (
	"time"

	"github.com/aretw0/introspection"
)

// WorkflowState exposes internal state for observability.
type WorkflowState struct {
	Fixers  []string   `json:"fixers"`
	DryRun  bool       `json:"dry_run"`
	Runs    int        `json:"runs"`
	Totals  Report     `json:"totals"`
	LastRun *time.Time `json:"last_run,omitempty"`
	Service any        `json:"service"`
}

// State implements introspection.Introspectable.
func (w *Workflow) State() any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.fixers))
	for _, f := range w.fixers {
		names = append(names, f.Name())
	}

	return WorkflowState{
		Fixers:  names,
		DryRun:  w.dryRun,
		Runs:    w.runs,
		Totals:  w.total,
		LastRun: w.lastRun,
		Service: w.svc.State(),
	}
}

// ComponentType implements introspection.Component.
func (w *Workflow) ComponentType() string {
	return "workflow"
}

var _ introspection.Introspectable = (*Workflow)(nil)
var _ introspection.Component = (*Workflow)(nil)
