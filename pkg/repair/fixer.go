// Package repair runs document fixers against a content store and writes
// back only the documents they actually changed.
package repair

import (
	"github.com/aretw0/mend/pkg/core"
)

// Fixer transforms a document. Implementations must not modify their
// input and must return the input unchanged in meaning when there is
// nothing to fix.
type Fixer interface {
	Name() string
	Fix(doc core.Mapping) core.Mapping
}

// FixerFunc adapts a function to the Fixer interface.
type FixerFunc struct {
	Label string
	Fn    func(core.Mapping) core.Mapping
}

func (f FixerFunc) Name() string                      { return f.Label }
func (f FixerFunc) Fix(doc core.Mapping) core.Mapping { return f.Fn(doc) }

type keysFixer struct {
	n *core.Normalizer
}

// Keys returns the fixer that adds missing array keys.
func Keys(opts ...core.NormalizerOption) Fixer {
	return keysFixer{n: core.NewNormalizer(opts...)}
}

func (k keysFixer) Name() string { return "keys" }

func (k keysFixer) Fix(doc core.Mapping) core.Mapping {
	return k.n.Normalize(doc).(core.Mapping)
}

// Apply runs fixers in order.
func Apply(doc core.Mapping, fixers ...Fixer) core.Mapping {
	out := doc
	for _, f := range fixers {
		out = f.Fix(out)
	}
	return out
}
