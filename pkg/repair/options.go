package repair

import (
	"log/slog"
	"time"
)

// Option configures a Workflow.
type Option func(*Workflow)

// WithFixers sets the fixers applied to every document, in order.
// The default is a single Keys fixer.
func WithFixers(fixers ...Fixer) Option {
	return func(w *Workflow) {
		w.fixers = fixers
	}
}

// WithDryRun reports changes without writing them back.
func WithDryRun(dry bool) Option {
	return func(w *Workflow) {
		w.dryRun = dry
	}
}

// WithLogger sets the logger for the workflow.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithProgress registers a callback invoked once per processed document.
func WithProgress(fn func(Outcome)) Option {
	return func(w *Workflow) {
		w.progress = fn
	}
}

// WithClock overrides time.Now for run bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}
