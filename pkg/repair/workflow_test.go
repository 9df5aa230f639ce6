package repair_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

// recordingStore is an in-memory core.Store that counts writes.
type recordingStore struct {
	docs     map[string]core.Mapping
	puts     int
	failIDs  map[string]bool
	fetchErr error
}

func newRecordingStore(docs ...string) *recordingStore {
	s := &recordingStore{docs: make(map[string]core.Mapping), failIDs: make(map[string]bool)}
	for _, d := range docs {
		m, err := core.DecodeMapping(strings.NewReader(d))
		if err != nil {
			panic(err)
		}
		s.docs[m.ID()] = m
	}
	return s
}

func (s *recordingStore) Fetch(ctx context.Context, query string) ([]core.Mapping, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	sel, err := core.ParseSelector(query)
	if err != nil {
		return nil, err
	}
	var out []core.Mapping
	for _, d := range s.docs {
		if sel.Match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (s *recordingStore) Get(ctx context.Context, id string) (core.Mapping, bool, error) {
	d, ok := s.docs[id]
	return d, ok, nil
}

func (s *recordingStore) PutReplace(ctx context.Context, doc core.Mapping) error {
	s.puts++
	if s.failIDs[doc.ID()] {
		return errors.New("validation rejected")
	}
	s.docs[doc.ID()] = doc
	return nil
}

func fixedKeys() repair.Fixer {
	return repair.Keys(core.WithKeySource(core.TimestampKeys(func() time.Time { return time.UnixMilli(1) })))
}

func TestWorkflow_CleanDocumentIsNotWritten(t *testing.T) {
	store := newRecordingStore(`{"_id":"a","items":[{"_key":"k1","text":"b"}],"tags":["x","y"]}`)
	w := repair.New(store, repair.WithFixers(fixedKeys()))

	report, err := w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)

	assert.Equal(t, 0, store.puts, "clean document must not be written back")
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, report.Changed)
}

func TestWorkflow_WritesRepairedDocuments(t *testing.T) {
	store := newRecordingStore(
		`{"_id":"a","items":[{"text":"a"},{"_key":"k1","text":"b"}]}`,
		`{"_id":"b","title":"clean"}`,
	)
	w := repair.New(store, repair.WithFixers(fixedKeys()))

	report, err := w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)

	assert.Equal(t, 1, store.puts)
	assert.Equal(t, repair.Report{Scanned: 2, Changed: 1, Written: 1, Unchanged: 1}, report)

	items := store.docs["a"]["items"].(core.Sequence)
	assert.Equal(t, "key-0-1", items[0].(core.Mapping).Str("_key"))
	assert.Equal(t, "k1", items[1].(core.Mapping).Str("_key"))

	// A second run finds nothing to do.
	report, err = w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, 2, report.Unchanged)
}

func TestWorkflow_ContinuesAfterFailure(t *testing.T) {
	store := newRecordingStore(
		`{"_id":"a","items":[{"x":1}]}`,
		`{"_id":"b","items":[{"x":2}]}`,
	)
	store.failIDs["a"] = true

	var outcomes []repair.Outcome
	w := repair.New(store, repair.WithProgress(func(o repair.Outcome) { outcomes = append(outcomes, o) }))

	report, err := w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)

	assert.Equal(t, 2, store.puts)
	assert.Equal(t, 1, report.Written)
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, "a", report.Failures[0].ID)
	assert.Contains(t, report.Failures[0].Err, "validation rejected")

	require.Len(t, outcomes, 2)
	assert.Equal(t, repair.StatusFailed, outcomes[0].Status)
	assert.Equal(t, repair.StatusWritten, outcomes[1].Status)
}

func TestWorkflow_DocumentWithoutIDFails(t *testing.T) {
	store := newRecordingStore()
	store.docs[""] = core.Mapping{"items": core.Sequence{core.Mapping{}}}
	w := repair.New(store)

	report, err := w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)
	assert.Equal(t, 0, store.puts)
	assert.Equal(t, 1, report.Failed())
}

func TestWorkflow_FetchErrorAborts(t *testing.T) {
	store := newRecordingStore()
	store.fetchErr = errors.New("network down")

	_, err := repair.New(store).Run(context.Background(), core.QueryAll)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestWorkflow_DryRun(t *testing.T) {
	store := newRecordingStore(`{"_id":"a","items":[{"x":1}]}`)
	w := repair.New(store, repair.WithDryRun(true))

	report, err := w.Run(context.Background(), core.QueryAll)
	require.NoError(t, err)
	assert.Equal(t, 0, store.puts)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 0, report.Written)
}

func TestWorkflow_RunIDs(t *testing.T) {
	store := newRecordingStore(`{"_id":"a","items":[{"x":1}]}`)
	w := repair.New(store)

	report, err := w.RunIDs(context.Background(), "a", "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.Missing)

	st := w.State().(repair.WorkflowState)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, []string{"keys"}, st.Fixers)
}

func TestWorkflow_CancelledContextStops(t *testing.T) {
	store := newRecordingStore(`{"_id":"a","items":[{"x":1}]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repair.New(store).Run(ctx, core.QueryAll)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.puts)
}
