package content

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/generable/types"
)

// CoercionError reports a present value that cannot convert to the requested
// type. Raw carries the textual rendering of the offending value.
type CoercionError struct {
	Type  string
	Kind  Kind
	Raw   string
	Cause error
}

// Error implements the error interface.
func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot coerce %s %q to %s", e.Kind, e.Raw, e.Type)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CoercionError) Unwrap() error { return e.Cause }

// Code returns types.ErrCoercion.
func (e *CoercionError) Code() types.ErrorCode { return types.ErrCoercion }

// ErrUnsupportedType is returned by Of for Go values with no content form.
var ErrUnsupportedType = types.NewError(types.ErrCoercion, "unsupported type")

// Decoder is implemented by types that read themselves from a Value. As uses
// it for every target outside the built-in table.
type Decoder interface {
	DecodeContent(v Value) error
}

// Encoder is implemented by types that render themselves as a Value.
type Encoder interface {
	ContentValue() (Value, error)
}

func (v Value) fail(typ string, cause error) *CoercionError {
	return &CoercionError{Type: typ, Kind: v.kind, Raw: v.Text(), Cause: cause}
}

// Bool coerces v to a boolean. Numbers are true when non-zero; strings accept
// true/yes/1 and false/no/0 in any case.
func (v Value) Bool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindNumber:
		return v.n != 0, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
	}
	return false, v.fail("bool", nil)
}

// Int coerces v to a 64-bit integer. Numbers must have no fractional part.
func (v Value) Int() (int64, error) {
	return v.toInt("int64", 64)
}

func (v Value) toInt(typ string, bits int) (int64, error) {
	var n int64
	switch v.kind {
	case KindNumber:
		if v.n != math.Trunc(v.n) || v.n < -(1<<63) || v.n >= 1<<63 {
			return 0, v.fail(typ, nil)
		}
		n = int64(v.n)
	case KindString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, v.fail(typ, err)
		}
		n = parsed
	default:
		return 0, v.fail(typ, nil)
	}
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if n < lo || n > hi {
			return 0, v.fail(typ, strconv.ErrRange)
		}
	}
	return n, nil
}

func (v Value) toUint(typ string, bits int) (uint64, error) {
	var n uint64
	switch v.kind {
	case KindNumber:
		if v.n != math.Trunc(v.n) || v.n < 0 || v.n >= 1<<64 {
			return 0, v.fail(typ, nil)
		}
		n = uint64(v.n)
	case KindString:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, v.fail(typ, err)
		}
		n = parsed
	default:
		return 0, v.fail(typ, nil)
	}
	if bits < 64 && n > uint64(1)<<bits-1 {
		return 0, v.fail(typ, strconv.ErrRange)
	}
	return n, nil
}

// Float coerces v to a float64. Strings must hold a finite decimal literal.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.n, nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if !isDecimalLiteral(s) {
			return 0, v.fail("float64", nil)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, v.fail("float64", err)
		}
		return f, nil
	}
	return 0, v.fail("float64", nil)
}

// isDecimalLiteral accepts [+-]digits[.digits][(e|E)[+-]digits], with digits
// on at least one side of the point. It rejects inf, nan and hex forms that
// strconv would otherwise take.
func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// Text returns the string held by v, or a textual rendering of any other kind.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	default:
		return v.JSON()
	}
}

// UUID parses a string value as a UUID.
func (v Value) UUID() (uuid.UUID, error) {
	if v.kind != KindString {
		return uuid.Nil, v.fail("uuid", nil)
	}
	id, err := uuid.Parse(strings.TrimSpace(v.s))
	if err != nil {
		return uuid.Nil, v.fail("uuid", err)
	}
	return id, nil
}

// URL parses a string value as an absolute URL.
func (v Value) URL() (*url.URL, error) {
	if v.kind != KindString {
		return nil, v.fail("url", nil)
	}
	u, err := url.Parse(strings.TrimSpace(v.s))
	if err != nil {
		return nil, v.fail("url", err)
	}
	if u.Scheme == "" {
		return nil, v.fail("url", fmt.Errorf("missing scheme"))
	}
	return u, nil
}

// Time coerces v to a time. Strings are tried as RFC 3339 (with or without
// fractional seconds) and then as a Unix timestamp; numbers are Unix
// timestamps.
func (v Value) Time() (time.Time, error) {
	switch v.kind {
	case KindNumber:
		return unixTime(v.n), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		if isDecimalLiteral(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
				return unixTime(f), nil
			}
		}
	}
	return time.Time{}, v.fail("time", nil)
}

func unixTime(f float64) time.Time {
	sec := math.Floor(f)
	nsec := math.Round((f - sec) * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// IsAbsent reports whether v stands for a missing optional value: Null, or a
// string that is empty, "null" or "nil" after trimming.
func (v Value) IsAbsent() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "", "null", "nil":
			return true
		}
	}
	return false
}

// As coerces v to T. Targets outside the built-in table must implement
// Decoder on their pointer type.
func As[T any](v Value) (T, error) {
	var out T
	var err error
	switch p := any(&out).(type) {
	case *Value:
		*p = v
	case *bool:
		*p, err = v.Bool()
	case *string:
		*p = v.Text()
	case *int:
		var n int64
		n, err = v.toInt("int", strconv.IntSize)
		*p = int(n)
	case *int8:
		var n int64
		n, err = v.toInt("int8", 8)
		*p = int8(n)
	case *int16:
		var n int64
		n, err = v.toInt("int16", 16)
		*p = int16(n)
	case *int32:
		var n int64
		n, err = v.toInt("int32", 32)
		*p = int32(n)
	case *int64:
		*p, err = v.toInt("int64", 64)
	case *uint:
		var n uint64
		n, err = v.toUint("uint", strconv.IntSize)
		*p = uint(n)
	case *uint8:
		var n uint64
		n, err = v.toUint("uint8", 8)
		*p = uint8(n)
	case *uint16:
		var n uint64
		n, err = v.toUint("uint16", 16)
		*p = uint16(n)
	case *uint32:
		var n uint64
		n, err = v.toUint("uint32", 32)
		*p = uint32(n)
	case *uint64:
		*p, err = v.toUint("uint64", 64)
	case *float32:
		var f float64
		f, err = v.Float()
		*p = float32(f)
	case *float64:
		*p, err = v.Float()
	case *uuid.UUID:
		*p, err = v.UUID()
	case *url.URL:
		var u *url.URL
		if u, err = v.URL(); err == nil {
			*p = *u
		}
	case **url.URL:
		*p, err = v.URL()
	case *time.Time:
		*p, err = v.Time()
	case Decoder:
		err = p.DecodeContent(v)
	default:
		err = v.fail(typeName[T](), ErrUnsupportedType)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Optional coerces v to *T. An absent value yields nil without error.
func Optional[T any](v Value) (*T, error) {
	if v.IsAbsent() {
		return nil, nil
	}
	out, err := As[T](v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Slice coerces every element of an array. The first failing element fails
// the whole slice.
func Slice[T any](v Value) ([]T, error) {
	if v.kind != KindArray {
		return nil, v.fail("[]"+typeName[T](), nil)
	}
	out := make([]T, 0, len(v.elems))
	for i, e := range v.elems {
		x, err := As[T](e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, x)
	}
	return out, nil
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// Of builds a Value from a Go value. Maps need string keys and are rendered
// with sorted keys; nil pointers become Null.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case Encoder:
		return t.ContentValue()
	case bool:
		return Bool(t), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case uuid.UUID:
		return String(t.String()), nil
	case url.URL:
		return String(t.String()), nil
	case *url.URL:
		if t == nil {
			return Null(), nil
		}
		return String(t.String()), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	}
	return ofReflect(reflect.ValueOf(x))
}

func ofReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return Of(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		elems := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := Of(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, e)
		}
		return Value{kind: KindArray, elems: elems}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			e, err := Of(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("member %q: %w", k, err)
			}
			members = append(members, Member{Name: k, Value: e})
		}
		return Structure(members...), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Invalid:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("construct content from %s: %w", rv.Type(), ErrUnsupportedType)
}
