package content

import (
	"bytes"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindStructure
)

// String returns the lower-case kind name.
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
	case KindArray:
		return "array"
	case KindStructure:
		return "structure"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is a named property used to build a Structure in declaration order.
type Member struct {
	Name  string
	Value Value
}

// Value is an immutable JSON-shaped value that may have been cut short by
// the end of a streamed response. The zero Value is Null.
type Value struct {
	kind  Kind
	b     bool
	n     float64
	s     string
	elems []Value
	props *orderedmap.OrderedMap[string, Value]

	// truncated is set by the partial parser on containers (and top-level
	// scalars) whose text ended before the value was closed.
	truncated bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, n: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array holding a copy of elems.
func Array(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindArray, elems: cp}
}

// Structure returns a structure with members in the given order. A repeated
// name keeps its first position and its last value.
func Structure(members ...Member) Value {
	props := orderedmap.New[string, Value]()
	for _, m := range members {
		props.Set(m.Name, m.Value)
	}
	return Value{kind: KindStructure, props: props}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsComplete reports whether v corresponds to fully delivered data. It is
// recomputed on every call.
func (v Value) IsComplete() bool {
	if v.truncated {
		return false
	}
	switch v.kind {
	case KindArray:
		for _, e := range v.elems {
			if !e.IsComplete() {
				return false
			}
		}
	case KindStructure:
		for p := v.props.Oldest(); p != nil; p = p.Next() {
			if !p.Value.IsComplete() {
				return false
			}
		}
	}
	return true
}

// Properties returns a copy of the ordered members of a Structure. Every other
// kind yields an empty map.
func (v Value) Properties() *orderedmap.OrderedMap[string, Value] {
	if v.kind != KindStructure {
		return orderedmap.New[string, Value]()
	}
	out := orderedmap.New[string, Value]()
	for p := v.props.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// Elements returns a copy of the elements of an Array. Every other kind
// yields an empty slice.
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return []Value{}
	}
	out := make([]Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Property looks up a member of a Structure by name.
func (v Value) Property(name string) (Value, bool) {
	if v.kind != KindStructure {
		return Value{}, false
	}
	return v.props.Get(name)
}

// Keys returns the member names of a Structure in declaration order.
func (v Value) Keys() []string {
	if v.kind != KindStructure {
		return []string{}
	}
	keys := make([]string, 0, v.props.Len())
	for p := v.props.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of elements or members; zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindStructure:
		return v.props.Len()
	default:
		return 0
	}
}

// Equal reports deep equality, including member order and completeness.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.truncated != o.truncated {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n))
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case KindStructure:
		if v.props.Len() != o.props.Len() {
			return false
		}
		a, b := v.props.Oldest(), o.props.Oldest()
		for a != nil && b != nil {
			if a.Key != b.Key || !a.Value.Equal(b.Value) {
				return false
			}
			a, b = a.Next(), b.Next()
		}
		return true
	}
	return false
}

// MarshalJSON renders v as JSON in member order. A truncated value renders
// the content it retained.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON returns the JSON rendering of v.
func (v Value) JSON() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// String implements fmt.Stringer for debugging.
func (v Value) String() string {
	s := v.JSON()
	if !v.IsComplete() {
		return s + "…"
	}
	return s
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(formatNumber(v.n))
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindStructure:
		buf.WriteByte('{')
		first := true
		for p := v.props.Oldest(); p != nil; p = p.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			k, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := p.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// formatNumber renders integral values without a fractional part and
// everything else in the shortest form that round-trips.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
