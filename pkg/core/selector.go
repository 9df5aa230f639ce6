package core

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SelectorTypePrefix introduces a by-type selector ("type:faqPage").
const SelectorTypePrefix = "type:"

// Selector is the query language of the local adapters:
//
//	*  or ""        every document
//	type:<name>     documents whose _type is name
//	<glob>          documents whose _id matches the doublestar pattern
type Selector struct {
	All  bool
	Type string
	Glob string
}

// ParseSelector parses a local query.
func ParseSelector(query string) (Selector, error) {
	q := strings.TrimSpace(query)
	switch {
	case q == "" || q == QueryAll || q == "**":
		return Selector{All: true}, nil
	case strings.HasPrefix(q, SelectorTypePrefix):
		t := strings.TrimSpace(strings.TrimPrefix(q, SelectorTypePrefix))
		if t == "" {
			return Selector{}, fmt.Errorf("empty type in selector %q", query)
		}
		return Selector{Type: t}, nil
	default:
		if !doublestar.ValidatePattern(q) {
			return Selector{}, fmt.Errorf("invalid glob in selector %q", query)
		}
		return Selector{Glob: q}, nil
	}
}

// Match reports whether doc is selected.
func (s Selector) Match(doc Mapping) bool {
	switch {
	case s.All:
		return true
	case s.Type != "":
		return doc.Type() == s.Type
	default:
		ok, err := doublestar.Match(s.Glob, doc.ID())
		return err == nil && ok
	}
}
