// Package core holds the document model and the repair primitives of mend.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}

// Value is a node of a document tree.
// The set of implementations is closed: Null, Bool, Number, String,
// Sequence, Mapping and Opaque.
type Value interface {
	Kind() Kind
	value()
}

// Null is the null or absent value.
type Null struct{}

// Bool is a boolean scalar.
type Bool bool

// Number is a numeric scalar kept in its textual form so that large
// integers survive a read/write cycle without precision loss.
type Number string

// String is a string scalar.
type String string

// Sequence is an ordered list of values.
type Sequence []Value

// Mapping maps field names to values.
type Mapping map[string]Value

// Opaque carries a scalar mend does not understand. It is passed through untouched.
type Opaque struct {
	V any
}

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Sequence) Kind() Kind { return KindSequence }
func (Mapping) Kind() Kind  { return KindMapping }
func (Opaque) Kind() Kind   { return KindOpaque }

func (Null) value()     {}
func (Bool) value()     {}
func (Number) value()   {}
func (String) value()   {}
func (Sequence) value() {}
func (Mapping) value()  {}
func (Opaque) value()   {}

// Native converts the number to int64 when it is written as an integer,
// float64 otherwise. Unparseable numbers are returned as their text.
func (n Number) Native() any {
	if !n.IsFloat() {
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i
		}
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return f
	}
	return string(n)
}

// Str returns the string stored under field, or "" when the field is
// missing or not a string.
func (m Mapping) Str(field string) string {
	if s, ok := m[field].(String); ok {
		return string(s)
	}
	return ""
}

// ID returns the document identity (_id).
func (m Mapping) ID() string { return m.Str("_id") }

// Type returns the document schema type (_type).
func (m Mapping) Type() string { return m.Str("_type") }

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	return clone(m).(Mapping)
}

func clone(v Value) Value {
	switch t := v.(type) {
	case Sequence:
		out := make(Sequence, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	case Mapping:
		out := make(Mapping, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	default:
		return v
	}
}

// FromAny converts a decoded JSON or YAML tree into a Value.
// Types it does not recognize become Opaque.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		return Number(t)
	case float64:
		return Number(formatFloat(t, 64))
	case float32:
		return Number(formatFloat(float64(t), 32))
	case int:
		return Number(strconv.FormatInt(int64(t), 10))
	case int32:
		return Number(strconv.FormatInt(int64(t), 10))
	case int64:
		return Number(strconv.FormatInt(t, 10))
	case uint64:
		return Number(strconv.FormatUint(t, 10))
	case []any:
		out := make(Sequence, len(t))
		for i, e := range t {
			out[i] = FromAny(e)
		}
		return out
	case map[string]any:
		out := make(Mapping, len(t))
		for k, e := range t {
			out[k] = FromAny(e)
		}
		return out
	case map[any]any:
		// yaml.v2 style maps; keys are stringified.
		out := make(Mapping, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = FromAny(e)
		}
		return out
	default:
		return Opaque{V: v}
	}
}

// formatFloat renders f so that it still reads as a float: integral
// values keep a ".0" suffix.
func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'g'
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// IsFloat reports whether the number is written as a float ("1.0", "2e3").
func (n Number) IsFloat() bool {
	return strings.ContainsAny(string(n), ".eE")
}

// ToAny converts a Value back into plain Go values, numbers as json.Number.
func ToAny(v Value) any {
	return toPlain(v, func(n Number) any { return json.Number(n) })
}

// ToNative is like ToAny but converts numbers to int64 or float64.
// Encoders that do not know json.Number (YAML) need it.
func ToNative(v Value) any {
	return toPlain(v, Number.Native)
}

func toPlain(v Value, num func(Number) any) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		return num(t)
	case String:
		return string(t)
	case Sequence:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toPlain(e, num)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toPlain(e, num)
		}
		return out
	case Opaque:
		return t.V
	}
	return nil
}

// Decode reads a single JSON value from r. Numbers are kept textual.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return FromAny(raw), nil
}

// DecodeMapping reads a single JSON object from r.
func DecodeMapping(r io.Reader) (Mapping, error) {
	v, err := Decode(r)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Mapping)
	if !ok {
		return nil, fmt.Errorf("expected a json object, got %s", v.Kind())
	}
	return m, nil
}

// MarshalJSON implements json.Marshaler.
func (m Mapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(m))
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	out, err := DecodeMapping(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	v, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	seq, ok := v.(Sequence)
	if !ok {
		return fmt.Errorf("expected a json array, got %s", v.Kind())
	}
	*s = seq
	return nil
}

// Equal reports whether a and b are structurally identical.
// A nil Value equals Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Number:
		return x == b.(Number)
	case String:
		return x == b.(String)
	case Sequence:
		y := b.(Sequence)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Mapping:
		y := b.(Mapping)
		if len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case Opaque:
		return reflect.DeepEqual(x.V, b.(Opaque).V)
	}
	return false
}
