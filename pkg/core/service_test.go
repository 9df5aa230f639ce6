package core_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/aretw0/mend/pkg/core"
)

// MockStore implements core.Store in memory.
// It deliberately does NOT implement core.TypeQuerier or core.Watchable.
type MockStore struct {
	docs map[string]core.Mapping
}

func NewMockStore() *MockStore {
	return &MockStore{
		docs: make(map[string]core.Mapping),
	}
}

func (m *MockStore) Fetch(ctx context.Context, query string) ([]core.Mapping, error) {
	sel, err := core.ParseSelector(query)
	if err != nil {
		return nil, err
	}
	var docs []core.Mapping
	for _, doc := range m.docs {
		if sel.Match(doc) {
			docs = append(docs, doc)
		}
	}
	// Sort for deterministic tests
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID() < docs[j].ID()
	})
	return docs, nil
}

func (m *MockStore) Get(ctx context.Context, id string) (core.Mapping, bool, error) {
	doc, ok := m.docs[id]
	return doc, ok, nil
}

func (m *MockStore) PutReplace(ctx context.Context, doc core.Mapping) error {
	if doc.Type() == "locked" {
		return errors.New("rejected")
	}
	m.docs[doc.ID()] = doc
	return nil
}

func TestService_RoundTrip(t *testing.T) {
	store := NewMockStore()
	service := core.NewService(store)
	ctx := context.TODO()

	// 1. Replace
	err := service.Replace(ctx, core.Mapping{"_id": core.String("doc1"), "_type": core.String("page")})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// 2. Get
	doc, ok, err := service.Get(ctx, "doc1")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if doc.Type() != "page" {
		t.Errorf("expected type 'page', got '%s'", doc.Type())
	}

	// 3. Fetch
	_ = service.Replace(ctx, core.Mapping{"_id": core.String("doc2"), "_type": core.String("faq")})
	docs, err := service.Fetch(ctx, "type:faq")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "doc2" {
		t.Errorf("expected [doc2], got %v", docs)
	}

	// 4. Absent
	_, ok, err = service.Get(ctx, "missing")
	if err != nil || ok {
		t.Errorf("expected absent document, got ok=%v err=%v", ok, err)
	}

	st := service.State().(core.ServiceState)
	if st.Replaced != 2 || st.Fetched != 2 {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestService_Validation(t *testing.T) {
	service := core.NewService(NewMockStore())
	ctx := context.TODO()

	if err := service.Replace(ctx, core.Mapping{"title": core.String("x")}); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
	if _, _, err := service.Get(ctx, ""); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
	err := service.Replace(ctx, core.Mapping{"_id": core.String("x"), "_type": core.String("locked")})
	if err == nil || err.Error() != "replace x: rejected" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockStore())

	_, err := service.Watch(context.TODO(), "**/*")
	if err == nil {
		t.Fatal("expected error for non-watchable store")
	}
	if err.Error() != "store does not support watching" {
		t.Errorf("unexpected error msg: %v", err)
	}
	if q := service.TypeQuery("faq"); q != "type:faq" {
		t.Errorf("unexpected type query %q", q)
	}
}
