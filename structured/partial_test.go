package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/testutil"
)

func TestDecodePartial_Prefixes(t *testing.T) {
	tests := []struct {
		text     string
		name     string
		age      int
		has      []string
		missing  []string
		complete bool
	}{
		{text: `{`, missing: []string{"name", "age"}},
		{text: `{"na`, missing: []string{"name", "age"}},
		{text: `{"name":"Al`, missing: []string{"name", "age"}},
		{text: `{"name":"Alice",`, name: "Alice", has: []string{"name"}, missing: []string{"age"}},
		{text: `{"name":"Alice","age":3`, name: "Alice", age: 3, has: []string{"name", "age"}},
		{text: `{"name":"Alice","age":30}`, name: "Alice", age: 30, has: []string{"name", "age"}, complete: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := DecodePartial[Person](testutil.MustParse(t, tt.text))
			assert.Equal(t, tt.name, p.Value.Name)
			assert.Equal(t, tt.age, p.Value.Age)
			for _, name := range tt.has {
				assert.True(t, p.Has(name), name)
			}
			assert.Equal(t, tt.missing, p.Missing())
			assert.Equal(t, tt.complete, p.Complete)
		})
	}
}

func TestDecodePartial_FailedPropertyKeepsOthers(t *testing.T) {
	p := DecodePartial[Person](testutil.MustParse(t, `{"name":"Ada","age":"unknown"}`))
	assert.Equal(t, "Ada", p.Value.Name)
	assert.Zero(t, p.Value.Age)
	assert.True(t, p.Has("name"))
	assert.False(t, p.Has("age"))
	assert.Equal(t, []string{"age"}, p.Missing())
	assert.False(t, p.Complete)
}

func TestDecodePartial_OptionalFailureIsNotMissing(t *testing.T) {
	type withOptional struct {
		Name  string `json:"name"`
		Count *int   `json:"count,omitempty"`
	}
	p := DecodePartial[withOptional](testutil.MustParse(t, `{"name":"x","count":"lots"}`))
	assert.Empty(t, p.Missing())
	assert.Nil(t, p.Value.Count)
	assert.True(t, p.Complete)
}

func TestDecodePartial_NestedAndArrays(t *testing.T) {
	text := `{"customer":{"name":"Ada"},"lines":[{"sku":"A-1","qty":1},{"sku":"B`
	p := DecodePartial[Order](testutil.MustParse(t, text))

	assert.Equal(t, "Ada", p.Value.Customer.Name)
	assert.True(t, p.Has("customer"))
	require.Len(t, p.Value.Lines, 2)
	assert.Equal(t, Line{SKU: "A-1", Qty: 1}, p.Value.Lines[0])
	// An unterminated string member is left out until its closing quote.
	assert.Empty(t, p.Value.Lines[1].SKU)

	missing := p.Missing()
	assert.Contains(t, missing, "id")
	assert.Contains(t, missing, "customer.age")
	assert.Contains(t, missing, "lines[1].sku")
	assert.Contains(t, missing, "lines[1].qty")
	assert.NotContains(t, missing, "ship")
	assert.False(t, p.Complete)
}

func TestDecodePartial_ScalarElementsSkipFailures(t *testing.T) {
	type tagged struct {
		Tags []int `json:"tags"`
	}
	p := DecodePartial[tagged](testutil.MustParse(t, `{"tags":[1,"two",3`))
	assert.Equal(t, []int{1, 3}, p.Value.Tags)
	assert.False(t, p.Complete)
}

func TestPartial_Final(t *testing.T) {
	p := DecodePartial[Person](testutil.MustParse(t, `{"name":"Ada","age":36}`))
	got, err := p.Final()
	require.NoError(t, err)
	assert.Equal(t, Person{Name: "Ada", Age: 36}, got)

	p = DecodePartial[Person](testutil.MustParse(t, `{"name":"Ada"`))
	_, err = p.Final()
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrIncompleteValue)
	assert.Contains(t, err.Error(), "missing age")

	// Complete but not decodable reports the strict error.
	p = DecodePartial[Person](testutil.MustParse(t, `{"name":"Ada"}`))
	_, err = p.Final()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "age", fe.Path)
}

func TestDecodePartial_MissingIsACopy(t *testing.T) {
	p := DecodePartial[Person](testutil.MustParse(t, `{}`))
	m := p.Missing()
	m[0] = "changed"
	assert.Equal(t, []string{"name", "age"}, p.Missing())
}
