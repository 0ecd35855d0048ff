package structured

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
)

// Partial is the failure-tolerant view of a value that may still be
// streaming. Every property is coerced independently: the ones that coerce
// are set on Value, the rest keep their zero value.
type Partial[T any] struct {
	Value T
	// Complete is true only when the underlying value is complete and every
	// required property coerced.
	Complete bool
	// Raw is the value the snapshot was taken from.
	Raw content.Value
	// Err is set on the closing snapshot of a stream whose final value did
	// not complete or failed validation.
	Err error
	// Done marks the closing snapshot of a stream.
	Done bool

	present map[string]bool
	missing []string
}

// Has reports whether the top-level property name coerced.
func (p Partial[T]) Has(name string) bool { return p.present[name] }

// Missing returns the paths of required properties that are absent or did
// not coerce yet.
func (p Partial[T]) Missing() []string {
	return append([]string(nil), p.missing...)
}

// Final projects the partial onto the complete shape. It fails with
// schema.ErrIncompleteValue while the value is still streaming, and with the
// first decoding error when the value is complete but does not fit T.
func (p Partial[T]) Final() (T, error) {
	if p.Complete {
		return p.Value, nil
	}
	if p.Raw.IsComplete() {
		return Decode[T](p.Raw)
	}
	var zero T
	if len(p.missing) > 0 {
		return zero, fmt.Errorf("%w: missing %s", schema.ErrIncompleteValue, strings.Join(p.missing, ", "))
	}
	return zero, schema.ErrIncompleteValue
}

// DecodePartial coerces as much of v into T as it can.
func DecodePartial[T any](v content.Value) Partial[T] {
	p := Partial[T]{Raw: v, present: make(map[string]bool)}
	d := partialDecoder{present: p.present}
	ok := d.decode(reflect.ValueOf(&p.Value).Elem(), v, "")
	p.missing = d.missing
	p.Complete = ok && v.IsComplete()
	return p
}

type partialDecoder struct {
	present map[string]bool
	missing []string
}

// decode fills rv from v and reports whether every required property below
// rv coerced. Required paths that did not are recorded in missing.
func (d *partialDecoder) decode(rv reflect.Value, v content.Value, path string) bool {
	t := rv.Type()
	switch {
	case t.Kind() == reflect.Pointer:
		if v.IsAbsent() {
			return true
		}
		elem := reflect.New(t.Elem())
		ok := d.decode(elem.Elem(), v, path)
		if ok || elem.Elem().Kind() == reflect.Struct {
			rv.Set(elem)
		}
		return ok
	case t.Kind() == reflect.Struct && !isScalarStruct(t) && !reflect.PointerTo(t).Implements(decoderType):
		return d.decodeStruct(rv, v, path)
	case t.Kind() == reflect.Slice && t != uuidType:
		if v.Kind() != content.KindArray {
			return false
		}
		elems := v.Elements()
		out := reflect.MakeSlice(t, 0, len(elems))
		ok := true
		for i, e := range elems {
			ev := reflect.New(t.Elem()).Elem()
			if !d.decode(ev, e, indexPath(path, i)) {
				ok = false
				if !isNamedNode(deref(t.Elem())) {
					continue
				}
			}
			out = reflect.Append(out, ev)
		}
		rv.Set(out)
		return ok
	}

	tmp := reflect.New(t).Elem()
	if err := decodeInto(tmp, v, path); err != nil {
		return false
	}
	rv.Set(tmp)
	return true
}

func (d *partialDecoder) decodeStruct(rv reflect.Value, v content.Value, path string) bool {
	if v.Kind() != content.KindStructure {
		return false
	}
	fields, err := fieldsOf(rv.Type())
	if err != nil {
		return false
	}
	props := v.Properties()
	ok := true
	for _, f := range fields {
		fieldPath := joinPath(path, f.name)
		mark := len(d.missing)

		pv, found := props.Get(f.name)
		if !found || pv.IsNull() || (f.optional && pv.IsAbsent()) {
			if !f.optional {
				d.missing = append(d.missing, fieldPath)
				ok = false
			}
			continue
		}

		fieldOK := d.decode(rv.FieldByIndex(f.index), pv, fieldPath)
		if path == "" && (fieldOK || !isScalarTarget(f.typ)) {
			d.present[f.name] = true
		}
		switch {
		case fieldOK:
		case f.optional:
			d.missing = d.missing[:mark]
		default:
			if len(d.missing) == mark {
				d.missing = append(d.missing, fieldPath)
			}
			ok = false
		}
	}
	return ok
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isScalarTarget reports whether a failed decode into t leaves nothing
// behind.
func isScalarTarget(t reflect.Type) bool {
	t = deref(t)
	if t.Kind() == reflect.Slice && t != uuidType {
		return false
	}
	return !(t.Kind() == reflect.Struct && !isScalarStruct(t))
}
