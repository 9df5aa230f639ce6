package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultKeyField is the field that identifies an element among its siblings.
const DefaultKeyField = "_key"

// KeyFunc proposes an identifier for the sequence element at index.
// Proposals may collide; the Normalizer resolves collisions.
type KeyFunc func(index int) string

// KeySource starts a normalization pass and returns the KeyFunc used for it.
type KeySource func() KeyFunc

// TimestampKeys proposes "key-<index>-<millis>" where millis is read from
// now once per pass.
func TimestampKeys(now func() time.Time) KeySource {
	if now == nil {
		now = time.Now
	}
	return func() KeyFunc {
		ts := strconv.FormatInt(now().UnixMilli(), 10)
		return func(index int) string {
			return "key-" + strconv.Itoa(index) + "-" + ts
		}
	}
}

// RandomKeys proposes random lowercase hex tokens of the given length,
// the shape the CMS editor uses for its own keys.
func RandomKeys(length int) KeySource {
	if length <= 0 || length > 32 {
		length = 12
	}
	return func() KeyFunc {
		return func(int) string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
		}
	}
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithKeyField changes the identifier field (default "_key").
func WithKeyField(field string) NormalizerOption {
	return func(n *Normalizer) {
		if field != "" {
			n.keyField = field
		}
	}
}

// WithKeySource changes how fresh identifiers are proposed.
func WithKeySource(src KeySource) NormalizerOption {
	return func(n *Normalizer) {
		if src != nil {
			n.keys = src
		}
	}
}

// Normalizer gives every mapping found directly inside a sequence a
// non-empty identifier that is unique among its siblings.
type Normalizer struct {
	keyField string
	keys     KeySource
}

// NewNormalizer creates a Normalizer. Without options it writes "_key"
// fields with TimestampKeys(time.Now).
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		keyField: DefaultKeyField,
		keys:     TimestampKeys(time.Now),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// KeyField returns the identifier field name.
func (n *Normalizer) KeyField() string { return n.keyField }

// Normalize returns a new tree in which every keyed element carries an
// identifier. The input is never modified. Existing non-empty string
// identifiers are kept, so the operation is idempotent.
func (n *Normalizer) Normalize(v Value) Value {
	return n.walk(v, n.keys())
}

func (n *Normalizer) walk(v Value, next KeyFunc) Value {
	switch t := v.(type) {
	case Sequence:
		return n.sequence(t, next)
	case Mapping:
		out := make(Mapping, len(t))
		for k, e := range t {
			out[k] = n.walk(e, next)
		}
		return out
	default:
		return v
	}
}

func (n *Normalizer) sequence(seq Sequence, next KeyFunc) Sequence {
	taken := make(map[string]bool, len(seq))
	for _, e := range seq {
		if m, ok := e.(Mapping); ok {
			if k := m.Str(n.keyField); k != "" {
				taken[k] = true
			}
		}
	}

	out := make(Sequence, len(seq))
	for i, e := range seq {
		m, ok := e.(Mapping)
		if !ok {
			out[i] = n.walk(e, next)
			continue
		}
		nm := n.walk(m, next).(Mapping)
		if nm.Str(n.keyField) == "" {
			key := unique(next(i), taken)
			taken[key] = true
			nm[n.keyField] = String(key)
		}
		out[i] = nm
	}
	return out
}

// unique appends a counter suffix to candidate until it is not taken.
func unique(candidate string, taken map[string]bool) string {
	if candidate != "" && !taken[candidate] {
		return candidate
	}
	if candidate == "" {
		candidate = "key"
	}
	for i := 1; ; i++ {
		k := candidate + "-" + strconv.Itoa(i)
		if !taken[k] {
			return k
		}
	}
}

var defaultNormalizer = NewNormalizer()

// Normalize applies the default Normalizer to v.
func Normalize(v Value) Value {
	return defaultNormalizer.Normalize(v)
}
