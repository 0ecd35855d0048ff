package structured

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/types"
)

// ErrMissingProperty reports a required property that is absent or null.
var ErrMissingProperty = types.NewError(types.ErrCoercion, "missing required property")

// FieldError reports the first property that failed to decode.
type FieldError struct {
	// Path locates the property, e.g. "lines[1].qty".
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("property %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error { return e.Err }

// Code returns the code of the underlying error, defaulting to
// types.ErrCoercion.
func (e *FieldError) Code() types.ErrorCode {
	if code := types.GetErrorCode(e.Err); code != "" {
		return code
	}
	return types.ErrCoercion
}

// Decode converts a complete value into T. Decoding is strict: the first
// property that is missing or fails to coerce is reported as a *FieldError.
func Decode[T any](v content.Value) (T, error) {
	var out T
	if err := decodeInto(reflect.ValueOf(&out).Elem(), v, ""); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func fieldErr(path string, err error) error {
	return &FieldError{Path: path, Err: err}
}

func mismatch(t reflect.Type, v content.Value) *content.CoercionError {
	return &content.CoercionError{Type: t.String(), Kind: v.Kind(), Raw: v.Text()}
}

func decodeInto(rv reflect.Value, v content.Value, path string) error {
	t := rv.Type()

	if rv.CanAddr() && reflect.PointerTo(t).Implements(decoderType) {
		if err := rv.Addr().Interface().(content.Decoder).DecodeContent(v); err != nil {
			return fieldErr(path, err)
		}
		return nil
	}

	switch t {
	case valueType:
		rv.Set(reflect.ValueOf(v))
		return nil
	case timeType:
		ts, err := v.Time()
		if err != nil {
			return fieldErr(path, err)
		}
		rv.Set(reflect.ValueOf(ts))
		return nil
	case uuidType:
		id, err := v.UUID()
		if err != nil {
			return fieldErr(path, err)
		}
		rv.Set(reflect.ValueOf(id))
		return nil
	case urlType:
		u, err := v.URL()
		if err != nil {
			return fieldErr(path, err)
		}
		rv.Set(reflect.ValueOf(*u))
		return nil
	}

	if t.Kind() != reflect.Pointer && implements(t, enumerableType) {
		return decodeChoice(rv, v, path)
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v.IsAbsent() {
			rv.Set(reflect.Zero(t))
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := decodeInto(elem.Elem(), v, path); err != nil {
			return err
		}
		rv.Set(elem)
		return nil
	case reflect.Struct:
		return decodeStruct(rv, v, path)
	case reflect.Slice:
		if v.Kind() != content.KindArray {
			return fieldErr(path, mismatch(t, v))
		}
		elems := v.Elements()
		out := reflect.MakeSlice(t, len(elems), len(elems))
		for i, e := range elems {
			if err := decodeInto(out.Index(i), e, indexPath(path, i)); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Array:
		if v.Kind() != content.KindArray || v.Len() != t.Len() {
			return fieldErr(path, mismatch(t, v))
		}
		for i, e := range v.Elements() {
			if err := decodeInto(rv.Index(i), e, indexPath(path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := decodeScalar(rv, v); err != nil {
		return fieldErr(path, err)
	}
	return nil
}

func decodeStruct(rv reflect.Value, v content.Value, path string) error {
	if v.Kind() != content.KindStructure {
		return fieldErr(path, mismatch(rv.Type(), v))
	}
	fields, err := fieldsOf(rv.Type())
	if err != nil {
		return fieldErr(path, err)
	}
	props := v.Properties()
	for _, f := range fields {
		fieldPath := joinPath(path, f.name)
		pv, ok := props.Get(f.name)
		if !ok || pv.IsNull() || (f.optional && pv.IsAbsent()) {
			if f.optional {
				continue
			}
			return fieldErr(fieldPath, ErrMissingProperty)
		}
		if err := decodeInto(rv.FieldByIndex(f.index), pv, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func decodeChoice(rv reflect.Value, v content.Value, path string) error {
	if v.Kind() != content.KindString || rv.Kind() != reflect.String {
		return fieldErr(path, mismatch(rv.Type(), v))
	}
	s := v.Text()
	for _, c := range instance(rv.Type(), enumerableType).(Enumerable).Choices() {
		if c == s {
			rv.SetString(s)
			return nil
		}
	}
	return fieldErr(path, &content.CoercionError{
		Type:  rv.Type().String(),
		Kind:  v.Kind(),
		Raw:   s,
		Cause: fmt.Errorf("not one of %v", instance(rv.Type(), enumerableType).(Enumerable).Choices()),
	})
}

// decodeScalar coerces v into a boolean, numeric or string kind, named or
// not, with the lenient rules of the content accessors.
func decodeScalar(rv reflect.Value, v content.Value) error {
	t := rv.Type()
	switch t.Kind() {
	case reflect.Bool:
		b, err := v.Bool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case reflect.String:
		rv.SetString(v.Text())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := v.Int()
		if err != nil {
			return err
		}
		if rv.OverflowInt(n) {
			return &content.CoercionError{Type: t.String(), Kind: v.Kind(), Raw: v.Text(), Cause: strconv.ErrRange}
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := content.As[uint64](v)
		if err != nil {
			return err
		}
		if rv.OverflowUint(n) {
			return &content.CoercionError{Type: t.String(), Kind: v.Kind(), Raw: v.Text(), Cause: strconv.ErrRange}
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := v.Float()
		if err != nil {
			return err
		}
		if rv.OverflowFloat(f) {
			return &content.CoercionError{Type: t.String(), Kind: v.Kind(), Raw: v.Text(), Cause: strconv.ErrRange}
		}
		rv.SetFloat(f)
	default:
		return &content.CoercionError{Type: t.String(), Kind: v.Kind(), Raw: v.Text(), Cause: content.ErrUnsupportedType}
	}
	return nil
}

// Encode converts x into a value. Structs become structures with their
// properties in declaration order; nil pointers become null and are left
// out when the field is optional.
func Encode(x any) (content.Value, error) {
	return encodeValue(reflect.ValueOf(x))
}

func encodeValue(rv reflect.Value) (content.Value, error) {
	if !rv.IsValid() {
		return content.Null(), nil
	}
	t := rv.Type()
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		if rv.IsNil() {
			return content.Null(), nil
		}
		if t.Kind() == reflect.Pointer && t.Implements(encoderType) {
			return rv.Interface().(content.Encoder).ContentValue()
		}
		return encodeValue(rv.Elem())
	}
	if t.Implements(encoderType) {
		return rv.Interface().(content.Encoder).ContentValue()
	}

	switch {
	case t.Kind() == reflect.Struct && !isScalarStruct(t):
		return encodeStruct(rv)
	case isArray(t):
		elems := make([]content.Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := encodeValue(rv.Index(i))
			if err != nil {
				return content.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, e)
		}
		return content.Array(elems...), nil
	}
	if !rv.CanInterface() {
		return content.Value{}, fmt.Errorf("encode %s: %w", t, content.ErrUnsupportedType)
	}
	return content.Of(rv.Interface())
}

func encodeStruct(rv reflect.Value) (content.Value, error) {
	fields, err := fieldsOf(rv.Type())
	if err != nil {
		return content.Value{}, err
	}
	members := make([]content.Member, 0, len(fields))
	for _, f := range fields {
		fv := rv.FieldByIndex(f.index)
		if f.optional && fv.IsZero() {
			continue
		}
		v, err := encodeValue(fv)
		if err != nil {
			return content.Value{}, fmt.Errorf("property %q: %w", f.name, err)
		}
		members = append(members, content.Member{Name: f.name, Value: v})
	}
	return content.Structure(members...), nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
