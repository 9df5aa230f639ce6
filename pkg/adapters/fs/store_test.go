package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = t.TempDir()
	}
	s := NewStore(cfg)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestStore_FetchSelectors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pages/home.json", `{"_id":"pages/home","_type":"page"}`)
	writeFile(t, dir, "faq.yaml", "_id: faq\n_type: faqPage\nfaqs:\n  - question: Why?\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, ".mend/other.json", `{"_id":"hidden"}`)
	s := newTestStore(t, Config{Path: dir})
	ctx := context.Background()

	all, err := s.Fetch(ctx, core.QueryAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "faq", all[0].ID())
	assert.Equal(t, "pages/home", all[1].ID())

	byType, err := s.Fetch(ctx, s.TypeQuery("faqPage"))
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "faq", byType[0].ID())

	// Second by-type fetch is served from the index.
	byType, err = s.Fetch(ctx, "type:page")
	require.NoError(t, err)
	require.Len(t, byType, 1)

	glob, err := s.Fetch(ctx, "pages/*")
	require.NoError(t, err)
	require.Len(t, glob, 1)
	assert.Equal(t, "pages/home", glob[0].ID())
}

func TestStore_GetAndPutReplace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export/drafts.home.yml", "_id: drafts.home\ntitle: Home\ncount: 3\n")
	writeFile(t, dir, "untitled.json", `{"title":"no id"}`)
	s := newTestStore(t, Config{Path: dir})
	ctx := context.Background()

	// The id differs from the file name: found through the index.
	doc, ok, err := s.Get(ctx, "drafts.home")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Number("3"), doc["count"])

	// Files without _id take their path.
	doc2, ok, err := s.Get(ctx, "untitled")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "untitled", doc2.ID())

	_, ok, err = s.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	// Writes keep the YAML format of the existing file.
	doc["title"] = core.String("Start")
	require.NoError(t, s.PutReplace(ctx, doc))
	data, err := os.ReadFile(filepath.Join(dir, "export", "drafts.home.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Start")
	assert.Contains(t, string(data), "count: 3")

	// New documents become <id>.json.
	require.NoError(t, s.PutReplace(ctx, core.Mapping{"_id": core.String("posts/new"), "n": core.Number("9007199254740993")}))
	data, err = os.ReadFile(filepath.Join(dir, "posts", "new.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "9007199254740993")

	assert.ErrorIs(t, s.PutReplace(ctx, core.Mapping{"_id": core.String("../escape")}), core.ErrInvalidDocument)
	assert.ErrorIs(t, s.PutReplace(ctx, core.Mapping{}), core.ErrInvalidDocument)
}

func TestStore_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"_id":"a"}`)
	s := newTestStore(t, Config{Path: dir, ReadOnly: true})

	err := s.PutReplace(context.Background(), core.Mapping{"_id": core.String("a")})
	assert.ErrorIs(t, err, core.ErrReadOnly)

	_, err = os.Stat(filepath.Join(dir, DefaultSystemDir))
	assert.True(t, os.IsNotExist(err), "read-only store must not write its index")
}

func TestStore_MustExist(t *testing.T) {
	s := NewStore(Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
	assert.Error(t, s.Initialize(context.Background()))
}

func TestStore_RepairWorkflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page.json", `{"_id":"page","body":[{"_type":"block","text":"a"}]}`)
	writeFile(t, dir, "clean.json", `{"_id":"clean","body":[{"_key":"k","_type":"block"}]}`)
	s := newTestStore(t, Config{Path: dir})

	before, err := os.Stat(filepath.Join(dir, "clean.json"))
	require.NoError(t, err)

	report, err := repair.New(s).Run(context.Background(), core.QueryAll)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.Unchanged)

	doc, _, err := s.Get(context.Background(), "page")
	require.NoError(t, err)
	body := doc["body"].(core.Sequence)
	assert.NotEmpty(t, body[0].(core.Mapping).Str("_key"))

	after, err := os.Stat(filepath.Join(dir, "clean.json"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	st := s.State().(StoreState)
	assert.Equal(t, 2, st.IndexSize)
}
