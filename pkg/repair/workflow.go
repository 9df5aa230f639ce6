package repair

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/mend/pkg/core"
)

// Status is what happened to one document.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusWritten   Status = "written"
	StatusChanged   Status = "changed" // changed but not written (dry run)
	StatusMissing   Status = "missing"
	StatusFailed    Status = "failed"
)

// Outcome describes the processing of one document.
type Outcome struct {
	ID     string
	Status Status
	Err    error
}

// Failure records a document that could not be repaired.
type Failure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// Report summarizes a run.
type Report struct {
	Scanned   int       `json:"scanned"`
	Changed   int       `json:"changed"`
	Written   int       `json:"written"`
	Unchanged int       `json:"unchanged"`
	Missing   int       `json:"missing"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Failed returns the number of documents that could not be repaired.
func (r Report) Failed() int { return len(r.Failures) }

// Workflow reads documents, applies fixers and writes back the ones that
// changed. Documents are processed one at a time; a failure on one
// document is logged and the run moves on to the next.
type Workflow struct {
	svc      *core.Service
	fixers   []Fixer
	dryRun   bool
	logger   *slog.Logger
	progress func(Outcome)
	now      func() time.Time

	mu      sync.RWMutex
	runs    int
	total   Report
	lastRun *time.Time
}

// New creates a Workflow over store.
func New(store core.Store, opts ...Option) *Workflow {
	w := &Workflow{
		svc:    core.NewService(store),
		fixers: []Fixer{Keys()},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Service returns the store service the workflow writes through.
func (w *Workflow) Service() *core.Service { return w.svc }

// Run repairs every document matched by query. Only a failing fetch
// aborts the run.
func (w *Workflow) Run(ctx context.Context, query string) (Report, error) {
	var report Report

	docs, err := w.svc.Fetch(ctx, query)
	if err != nil {
		return report, err
	}
	w.logger.Debug("fetched documents", "query", query, "count", len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			w.record(report)
			return report, err
		}
		w.process(ctx, doc, &report)
	}

	w.record(report)
	return report, nil
}

// RunIDs repairs the documents with the given ids. Unknown ids are
// counted as missing.
func (w *Workflow) RunIDs(ctx context.Context, ids ...string) (Report, error) {
	var report Report

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			w.record(report)
			return report, err
		}

		doc, ok, err := w.svc.Get(ctx, id)
		if err != nil {
			w.fail(&report, id, err)
			continue
		}
		if !ok {
			report.Missing++
			w.logger.Warn("document not found", "id", id)
			w.emit(Outcome{ID: id, Status: StatusMissing})
			continue
		}
		w.process(ctx, doc, &report)
	}

	w.record(report)
	return report, nil
}

// Check applies the fixers to doc and reports whether anything changed.
// Nothing is written.
func (w *Workflow) Check(doc core.Mapping) (core.Mapping, bool) {
	fixed := Apply(doc, w.fixers...)
	return fixed, !core.Equal(doc, fixed)
}

func (w *Workflow) process(ctx context.Context, doc core.Mapping, report *Report) {
	report.Scanned++
	id := doc.ID()

	fixed, changed := w.Check(doc)
	if !changed {
		report.Unchanged++
		w.emit(Outcome{ID: id, Status: StatusUnchanged})
		return
	}
	report.Changed++

	if w.dryRun {
		w.logger.Info("document needs repair", "id", id)
		w.emit(Outcome{ID: id, Status: StatusChanged})
		return
	}

	if err := w.svc.Replace(ctx, fixed); err != nil {
		w.fail(report, id, err)
		return
	}
	report.Written++
	w.logger.Info("document repaired", "id", id)
	w.emit(Outcome{ID: id, Status: StatusWritten})
}

func (w *Workflow) fail(report *Report, id string, err error) {
	report.Failures = append(report.Failures, Failure{ID: id, Err: err.Error()})
	w.logger.Error("document repair failed", "id", id, "error", err)
	w.emit(Outcome{ID: id, Status: StatusFailed, Err: err})
}

func (w *Workflow) emit(o Outcome) {
	if w.progress != nil {
		w.progress(o)
	}
}

func (w *Workflow) record(r Report) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.runs++
	w.lastRun = &now
	w.total.Scanned += r.Scanned
	w.total.Changed += r.Changed
	w.total.Written += r.Written
	w.total.Unchanged += r.Unchanged
	w.total.Missing += r.Missing
	w.total.Failures = append(w.total.Failures, r.Failures...)
}
