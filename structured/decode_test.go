package structured

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/testutil"
	"github.com/BaSui01/generable/types"
)

func TestDecode_Person(t *testing.T) {
	p, err := Decode[Person](testutil.MustParse(t, `{"name":"Ada","age":36,"email":"ada@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, 36, p.Age)
	require.NotNil(t, p.Email)
	assert.Equal(t, "ada@example.com", *p.Email)

	p, err = Decode[Person](testutil.MustParse(t, `{"name":"Ada","age":36,"email":null}`))
	require.NoError(t, err)
	assert.Nil(t, p.Email)
}

type rating struct {
	Name  string  `json:"name"`
	Score *int    `json:"score,omitempty"`
	Note  *string `json:"note,omitempty"`
}

func TestDecode_AbsentOptionalStrings(t *testing.T) {
	for _, raw := range []string{`"null"`, `" NIL "`, `""`, `"Null"`, `null`} {
		t.Run(raw, func(t *testing.T) {
			text := `{"name":"a","score":` + raw + `,"note":` + raw + `}`
			r, err := Decode[rating](testutil.MustParse(t, text))
			require.NoError(t, err)
			assert.Equal(t, "a", r.Name)
			assert.Nil(t, r.Score)
			assert.Nil(t, r.Note)

			p := DecodePartial[rating](testutil.MustParse(t, text))
			assert.True(t, p.Complete)
			assert.Empty(t, p.Missing())
			assert.Nil(t, p.Value.Score)
		})
	}

	// Absence only applies to optional fields; a required string keeps its text.
	r, err := Decode[rating](testutil.MustParse(t, `{"name":"null","score":"7"}`))
	require.NoError(t, err)
	assert.Equal(t, "null", r.Name)
	require.NotNil(t, r.Score)
	assert.Equal(t, 7, *r.Score)
}

func TestDecode_FirstFailure(t *testing.T) {
	tests := []struct {
		name string
		text string
		path string
		is   error
	}{
		{"missing required", `{"name":"Ada"}`, "age", ErrMissingProperty},
		{"null required", `{"name":"Ada","age":null}`, "age", ErrMissingProperty},
		{"bad number", `{"name":"Ada","age":"old"}`, "age", nil},
		{"not a structure", `["Ada"]`, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[Person](testutil.MustParse(t, tt.text))
			require.Error(t, err)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.path, fe.Path)
			assert.Equal(t, types.ErrCoercion, types.GetErrorCode(err))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestDecode_NestedPaths(t *testing.T) {
	text := `{
		"id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"customer": {"name": "Ada", "age": 36},
		"lines": [{"sku": "A-1", "qty": 1}, {"sku": "B-2", "qty": "many"}],
		"mood": "happy",
		"total": {"cents": 1200, "currency": "EUR"},
		"placed": "2026-01-02T03:04:05Z"
	}`
	_, err := Decode[Order](testutil.MustParse(t, text))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "lines[1].qty", fe.Path)
	assert.Contains(t, err.Error(), `property "lines[1].qty"`)
}

func TestDecode_Order(t *testing.T) {
	text := `{
		"id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"customer": {"name": "Ada", "age": 36},
		"ship": {"city": "Berlin", "zip": "10115"},
		"lines": [{"sku": "A-1", "qty": 2}],
		"mood": "sad",
		"total": {"cents": 1200, "currency": "EUR"},
		"placed": "2026-01-02T03:04:05Z",
		"tags": ["gift"]
	}`
	o, err := Decode[Order](testutil.MustParse(t, text))
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), o.ID)
	assert.Equal(t, "Ada", o.Customer.Name)
	require.NotNil(t, o.Ship)
	assert.Equal(t, "Berlin", o.Ship.City)
	assert.Equal(t, []Line{{SKU: "A-1", Qty: 2}}, o.Lines)
	assert.Equal(t, Mood("sad"), o.Mood)
	assert.Equal(t, Money{Cents: 1200, Currency: "EUR"}, o.Total)
	assert.True(t, o.Placed.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, []string{"gift"}, o.Tags)
}

func TestDecode_EnumerableMembership(t *testing.T) {
	type holder struct {
		Mood Mood `json:"mood"`
	}
	_, err := Decode[holder](testutil.MustParse(t, `{"mood":"angry"}`))
	var ce *content.CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "structured.Mood", ce.Type)
	assert.Equal(t, "angry", ce.Raw)
}

func TestDecode_CustomDecoder(t *testing.T) {
	s, err := Decode[Shape](testutil.MustParse(t, `{"name":"line","origin":[1,2],"path":[[0,0],[3,4]]}`))
	require.NoError(t, err)
	assert.Equal(t, point{1, 2}, s.Origin)
	assert.Equal(t, []point{{0, 0}, {3, 4}}, s.Path)

	_, err = Decode[Shape](testutil.MustParse(t, `{"name":"line","origin":[1]}`))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "origin", fe.Path)
}

func TestDecode_ScalarsAndArrays(t *testing.T) {
	n, err := Decode[uint8](content.Number(200))
	require.NoError(t, err)
	assert.Equal(t, uint8(200), n)

	_, err = Decode[int8](content.Number(200))
	assert.Error(t, err)

	arr, err := Decode[[2]int](testutil.MustParse(t, `[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 2}, arr)

	_, err = Decode[[2]int](testutil.MustParse(t, `[1,2,3]`))
	assert.Error(t, err)

	v, err := Decode[content.Value](testutil.MustParse(t, `{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v.JSON())
}

func TestDecode_EmbeddedFields(t *testing.T) {
	d, err := Decode[Document](testutil.MustParse(t, `{"id":"d1","title":"Notes","Skipped":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, "Notes", d.Title)
	assert.Empty(t, d.Skipped)
}

func TestEncode_DeclarationOrder(t *testing.T) {
	v, err := Encode(Person{Name: "Ada", Age: 36})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ada","age":36}`, v.JSON())

	v, err = Encode(&Person{Name: "Ada", Age: 36, Email: strPtr("ada@example.com")})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "email"}, v.Keys())
}

func TestEncode_SpecialTypes(t *testing.T) {
	o := Order{
		ID:       uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Customer: Person{Name: "Ada", Age: 36},
		Lines:    []Line{{SKU: "A-1", Qty: 2}},
		Mood:     "happy",
		Total:    Money{Cents: 5, Currency: "EUR"},
		Placed:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	v, err := Encode(o)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","customer":{"name":"Ada","age":36},"lines":[{"sku":"A-1","qty":2}],"mood":"happy","total":{"cents":5,"currency":"EUR"},"placed":"2026-01-02T03:04:05Z"}`,
		v.JSON())

	s, err := Encode(Shape{Name: "dot", Origin: point{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"dot","origin":[1,2]}`, s.JSON())

	null, err := Encode((*Person)(nil))
	require.NoError(t, err)
	assert.True(t, null.IsNull())
}

func TestEncode_RoundTrip(t *testing.T) {
	in := Order{
		ID:       uuid.New(),
		Customer: Person{Name: "Grace", Age: 85, Email: strPtr("grace@example.com")},
		Ship:     &Address{City: "Arlington", Zip: "22201"},
		Lines:    []Line{{SKU: "A-1", Qty: 1}, {SKU: "B-2", Qty: 3}},
		Mood:     "sad",
		Total:    Money{Cents: 999, Currency: "USD"},
		Placed:   time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		Tags:     []string{"rush"},
	}
	v, err := Encode(in)
	require.NoError(t, err)

	reparsed := testutil.MustParse(t, v.JSON())
	out, err := Decode[Order](reparsed)
	require.NoError(t, err)
	assert.True(t, in.Placed.Equal(out.Placed))
	out.Placed = in.Placed
	assert.Equal(t, in, out)
}

func TestFieldError(t *testing.T) {
	err := &FieldError{Path: "a.b", Err: ErrMissingProperty}
	assert.Equal(t, `property "a.b": [COERCION_ERROR] missing required property`, err.Error())
	assert.True(t, errors.Is(err, ErrMissingProperty))

	root := &FieldError{Err: errors.New("boom")}
	assert.Equal(t, "boom", root.Error())
	assert.Equal(t, types.ErrCoercion, root.Code())
}
