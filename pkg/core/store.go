package core

import "context"

// QueryAll selects every document, whatever the adapter.
const QueryAll = "*"

// Store is the content store port. Adapters (remote CMS API, directory,
// sqlite) implement it; the query language is adapter specific.
type Store interface {
	// Fetch returns the documents matched by query.
	Fetch(ctx context.Context, query string) ([]Mapping, error)

	// Get retrieves a document by its _id. The boolean is false when the
	// document does not exist.
	Get(ctx context.Context, id string) (Mapping, bool, error)

	// PutReplace persists doc, replacing any document with the same _id.
	PutReplace(ctx context.Context, doc Mapping) error
}

// TypeQuerier is implemented by stores that can build a native query
// selecting every document of one _type.
type TypeQuerier interface {
	TypeQuery(docType string) string
}

// Watchable is implemented by stores that can report changes.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// TypeQuery builds the query selecting documents of docType on s.
// Stores without TypeQuerier get the local selector syntax.
func TypeQuery(s Store, docType string) string {
	if tq, ok := s.(TypeQuerier); ok {
		return tq.TypeQuery(docType)
	}
	return SelectorTypePrefix + docType
}

// EventType represents the type of change in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in a store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}
