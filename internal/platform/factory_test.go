package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/mend/pkg/adapters/fs"
	"github.com/aretw0/mend/pkg/adapters/sanity"
	"github.com/aretw0/mend/pkg/adapters/sqlite"
	"github.com/aretw0/mend/pkg/core"
)

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOpen_MissingCredential(t *testing.T) {
	srv, hits := countingServer(t)

	cfg := Config{Adapter: AdapterSanity, ProjectID: "p", Dataset: "production"}
	_, err := Open(cfg, WithPrompter(nil), WithBaseURL(srv.URL))
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	failing := PrompterFunc(func(string) (string, error) { return "", ErrNotTerminal })
	_, err = Open(cfg, WithPrompter(failing), WithBaseURL(srv.URL))
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	assert.Equal(t, int64(0), hits.Load(), "no request may be sent without a credential")
}

func TestOpen_MissingIdentity(t *testing.T) {
	prompted := false
	p := PrompterFunc(func(string) (string, error) { prompted = true; return "t", nil })

	_, err := Open(Config{Adapter: AdapterSanity, Dataset: "production"}, WithPrompter(p))
	assert.ErrorIs(t, err, core.ErrMissingIdentity)
	assert.False(t, prompted, "identity is checked before prompting")
}

func TestOpen_PromptedToken(t *testing.T) {
	srv, hits := countingServer(t)
	p := PrompterFunc(func(label string) (string, error) { return "typed", nil })

	store, err := Open(Config{ProjectID: "p", Dataset: "production"}, WithPrompter(p), WithBaseURL(srv.URL))
	require.NoError(t, err)
	require.IsType(t, &sanity.Client{}, store)

	_, err = store.Fetch(context.Background(), core.QueryAll)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestOpen_LocalAdapters(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Config{Adapter: AdapterFS, Path: filepath.Join(dir, "docs")})
	require.NoError(t, err)
	assert.IsType(t, &fs.Store{}, store)

	store, err = Open(Config{Adapter: AdapterSQLite, Path: filepath.Join(dir, "db", "mirror.db")})
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, store)
	t.Cleanup(func() { store.(*sqlite.Store).Close() })

	_, err = Open(Config{Adapter: AdapterFS, Path: filepath.Join(dir, "absent"), ReadOnly: true})
	assert.Error(t, err)
}

func TestNew_InjectedStore(t *testing.T) {
	injected := &fs.Store{}
	svc, err := New(Config{Adapter: "whatever"}, WithStore(injected))
	require.NoError(t, err)
	assert.Same(t, injected, svc.Store())
}

func TestTerminalPrompter_NotATerminal(t *testing.T) {
	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer f.Close()

	_, err = TerminalPrompter{In: f}.Prompt("token")
	assert.True(t, errors.Is(err, ErrNotTerminal))
}
