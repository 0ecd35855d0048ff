package content

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/types"
)

func TestValue_Bool(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		want    bool
		wantErr bool
	}{
		{"bool", Bool(true), true, false},
		{"non-zero number", Number(-2), true, false},
		{"zero", Number(0), false, false},
		{"yes", String(" YES "), true, false},
		{"one", String("1"), true, false},
		{"no", String("No"), false, false},
		{"zero string", String("0"), false, false},
		{"other string", String("maybe"), false, true},
		{"null", Null(), false, true},
		{"array", Array(), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Bool()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_Int(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		want    int64
		wantErr bool
	}{
		{"integral number", Number(42), 42, false},
		{"negative", Number(-7), -7, false},
		{"fraction", Number(1.5), 0, true},
		{"string literal", String(" 123 "), 123, false},
		{"signed string", String("-9"), -9, false},
		{"float string", String("1.0"), 0, true},
		{"text", String("abc"), 0, true},
		{"bool", Bool(true), 0, true},
		{"too large", Number(1e19), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Int()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_Float(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		want    float64
		wantErr bool
	}{
		{"number", Number(2.25), 2.25, false},
		{"string", String("2.5"), 2.5, false},
		{"exponent", String("1e3"), 1000, false},
		{"leading point", String(".5"), 0.5, false},
		{"inf", String("inf"), 0, true},
		{"nan", String("NaN"), 0, true},
		{"hex", String("0x10"), 0, true},
		{"overflow", String("1e999"), 0, true},
		{"empty", String(""), 0, true},
		{"null", Null(), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Float()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "hi", String("hi").Text())
	assert.Equal(t, "null", Null().Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "12", Number(12).Text())
	assert.Equal(t, `[1,"a"]`, Array(Number(1), String("a")).Text())
}

func TestValue_UUID(t *testing.T) {
	id := uuid.New()

	got, err := String("  " + id.String() + " ").UUID()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = String("not-a-uuid").UUID()
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "not-a-uuid", ce.Raw)
	assert.Equal(t, "uuid", ce.Type)
	assert.Equal(t, types.ErrCoercion, types.GetErrorCode(err))
}

func TestValue_URL(t *testing.T) {
	u, err := String(" https://example.com/a?b=c ").URL()
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)

	_, err = String("example.com/path").URL()
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "example.com/path", ce.Raw)

	_, err = Number(1).URL()
	assert.Error(t, err)
}

func TestValue_Time(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want time.Time
	}{
		{"rfc3339", String("2024-03-01T10:20:30Z"), time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"fractional", String("2024-03-01T10:20:30.250Z"), time.Date(2024, 3, 1, 10, 20, 30, 250_000_000, time.UTC)},
		{"unix string", String("1700000000"), time.Unix(1700000000, 0)},
		{"unix fractional string", String("1700000000.5"), time.Unix(1700000000, 500_000_000)},
		{"unix number", Number(1700000000), time.Unix(1700000000, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Time()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	_, err := String("yesterday").Time()
	assert.Error(t, err)
	_, err = Bool(true).Time()
	assert.Error(t, err)
}

func TestValue_IsAbsent(t *testing.T) {
	for _, v := range []Value{Null(), String(""), String(" NULL "), String("nil")} {
		assert.True(t, v.IsAbsent(), v.JSON())
	}
	for _, v := range []Value{String("none"), Number(0), Bool(false), Array()} {
		assert.False(t, v.IsAbsent(), v.JSON())
	}
}

func TestAs_RangeChecked(t *testing.T) {
	_, err := As[int8](Number(300))
	require.Error(t, err)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "int8", ce.Type)

	_, err = As[uint](Number(-1))
	assert.Error(t, err)

	n, err := As[uint16](String("65535"))
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), n)

	f, err := As[float32](Number(1.5))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)
}

func TestAs_URLForms(t *testing.T) {
	u, err := As[url.URL](String("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)

	p, err := As[*url.URL](String("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, "example.com", p.Host)
}

func TestAs_Value(t *testing.T) {
	v := Array(Number(1))
	got, err := As[Value](v)
	require.NoError(t, err)
	assert.True(t, v.Equal(got))
}

type point struct{ X, Y int }

func (p *point) DecodeContent(v Value) error {
	xs, err := Slice[int](v)
	if err != nil {
		return err
	}
	if len(xs) != 2 {
		return errors.New("point needs two coordinates")
	}
	p.X, p.Y = xs[0], xs[1]
	return nil
}

func (p point) ContentValue() (Value, error) {
	return Array(Number(float64(p.X)), Number(float64(p.Y))), nil
}

func TestAs_Decoder(t *testing.T) {
	p, err := As[point](Array(Number(3), Number(4)))
	require.NoError(t, err)
	assert.Equal(t, point{3, 4}, p)

	_, err = As[point](Array(Number(3)))
	assert.Error(t, err)
}

func TestAs_UnsupportedTarget(t *testing.T) {
	_, err := As[chan int](Null())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOptional(t *testing.T) {
	got, err := Optional[int](Null())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Optional[int](String("nil"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Optional[int](Number(5))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, *got)

	_, err = Optional[int](String("five"))
	assert.Error(t, err)
}

func TestSlice(t *testing.T) {
	xs, err := Slice[string](Array(String("a"), String("b")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, xs)

	_, err = Slice[int](Array(Number(1), String("x"), Number(3)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
	assert.Equal(t, types.ErrCoercion, types.GetErrorCode(err))

	_, err = Slice[int](Structure())
	assert.Error(t, err)
}

func TestOf(t *testing.T) {
	var nilPtr *int
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"nil pointer", nilPtr, "null"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"uint8", uint8(7), "7"},
		{"float", 1.25, "1.25"},
		{"string", "s", `"s"`},
		{"uuid", id, `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), `"2024-01-02T03:04:05Z"`},
		{"slice", []int{1, 2}, "[1,2]"},
		{"nil slice", []string(nil), "[]"},
		{"map sorted", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"encoder", point{1, 2}, "[1,2]"},
		{"pointer", &point{5, 6}, "[5,6]"},
		{"value", Array(Null()), "[null]"},
		{"named string", level("warn"), `"warn"`},
		{"named int", priority(3), "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.JSON())
		})
	}

	_, err := Of(make(chan int))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = Of(map[int]string{1: "a"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

type (
	level    string
	priority uint8
)
