package repair

import (
	"fmt"

	"github.com/aretw0/mend/pkg/core"
)

// Default FAQ layout.
const (
	DefaultFAQField    = "faqs"
	DefaultFAQItemType = "faqItem"
)

// FAQ repairs FAQ lists that were entered by hand or imported from older
// schemas: bare strings, missing _type, "q"/"a" shorthands and non-string
// questions or answers. Keys are left to the Keys fixer.
type FAQ struct {
	Field    string
	ItemType string
}

// Name implements Fixer.
func (f FAQ) Name() string { return "faq" }

// Fix implements Fixer.
func (f FAQ) Fix(doc core.Mapping) core.Mapping {
	field := f.Field
	if field == "" {
		field = DefaultFAQField
	}
	items, ok := doc[field].(core.Sequence)
	if !ok {
		return doc
	}

	fixed := make(core.Sequence, 0, len(items))
	for _, item := range items {
		if entry, keep := f.entry(item); keep {
			fixed = append(fixed, entry)
		}
	}

	out := make(core.Mapping, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out[field] = fixed
	return out
}

func (f FAQ) entry(item core.Value) (core.Value, bool) {
	itemType := f.ItemType
	if itemType == "" {
		itemType = DefaultFAQItemType
	}

	switch v := item.(type) {
	case nil, core.Null:
		return nil, false
	case core.String:
		return core.Mapping{
			"_type":    core.String(itemType),
			"question": v,
			"answer":   core.String(""),
		}, true
	case core.Mapping:
		out := make(core.Mapping, len(v))
		for k, e := range v {
			out[k] = e
		}
		if out.Type() == "" {
			out["_type"] = core.String(itemType)
		}
		rename(out, "q", "question")
		rename(out, "a", "answer")
		stringify(out, "question")
		stringify(out, "answer")
		return out, true
	default:
		return item, true
	}
}

// rename moves from to to when to is missing.
func rename(m core.Mapping, from, to string) {
	v, ok := m[from]
	if !ok {
		return
	}
	if _, exists := m[to]; exists {
		return
	}
	m[to] = v
	delete(m, from)
}

// stringify turns scalar numbers and booleans into strings.
// Rich text (sequences) and mappings are left as they are.
func stringify(m core.Mapping, field string) {
	switch v := m[field].(type) {
	case core.Number:
		m[field] = core.String(string(v))
	case core.Bool:
		m[field] = core.String(fmt.Sprint(bool(v)))
	}
}
