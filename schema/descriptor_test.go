package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFailure(t *testing.T, err error) *SchemaBuildError {
	t.Helper()
	require.Error(t, err)
	var be *SchemaBuildError
	require.ErrorAs(t, err, &be)
	return be
}

func TestNewObject(t *testing.T) {
	d := person()

	assert.Equal(t, "Person", d.Name())
	assert.Equal(t, KindObject, d.Kind())
	assert.Equal(t, []string{"name", "age"}, d.Required())
	require.Len(t, d.Properties(), 3)
	assert.Equal(t, "email", d.Properties()[2].Name)

	age, ok := d.Property("age")
	require.True(t, ok)
	assert.Equal(t, TypeInteger, age.TypeName)
	_, ok = d.Property("missing")
	assert.False(t, ok)
	assert.Equal(t, "Person (object)", d.String())
}

func TestNewObject_Failures(t *testing.T) {
	address := Must(NewObject("Address", Prop("city", TypeString)))

	tests := []struct {
		name   string
		build  func() (*Descriptor, error)
		reason BuildFailure
	}{
		{"unnamed object", func() (*Descriptor, error) {
			return NewObject("", Prop("a", TypeString))
		}, ReasonEmpty},
		{"property without a name", func() (*Descriptor, error) {
			return NewObject("A", Prop("", TypeString))
		}, ReasonEmpty},
		{"property without a type", func() (*Descriptor, error) {
			return NewObject("A", Prop("a", ""))
		}, ReasonEmpty},
		{"duplicate property", func() (*Descriptor, error) {
			return NewObject("A", Prop("a", TypeString), Prop("a", TypeInteger))
		}, ReasonDuplicateDefinition},
		{"range on a string", func() (*Descriptor, error) {
			return NewObject("A", Prop("a", TypeString, Range(0, 1)))
		}, ReasonInvalidGuide},
		{"count on a scalar", func() (*Descriptor, error) {
			return NewObject("A", Prop("a", TypeInteger, Count(2)))
		}, ReasonInvalidGuide},
		{"bad regex", func() (*Descriptor, error) {
			return NewObject("A", Prop("a", TypeString, Pattern("[")))
		}, ReasonInvalidGuide},
		{"named type without a descriptor", func() (*Descriptor, error) {
			return NewObject("A", Prop("home", "Address"))
		}, ReasonUnresolvedReference},
		{"descriptor with another name", func() (*Descriptor, error) {
			return NewObject("A", Property{Name: "home", TypeName: "Home", Schema: address})
		}, ReasonUnresolvedReference},
		{"empty enumeration", func() (*Descriptor, error) {
			return NewEnum("Color")
		}, ReasonEmpty},
		{"duplicate choice", func() (*Descriptor, error) {
			return NewEnum("Color", "red", "red")
		}, ReasonDuplicateDefinition},
		{"empty union", func() (*Descriptor, error) {
			return NewUnion("Shape")
		}, ReasonEmpty},
		{"duplicate alternative", func() (*Descriptor, error) {
			return NewUnion("Shape", address, address)
		}, ReasonDuplicateDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.build()
			assert.Nil(t, d)
			assert.Equal(t, tt.reason, buildFailure(t, err).Reason)
		})
	}
}

func TestNewObject_GuideOnArrayElements(t *testing.T) {
	d, err := NewObject("Scores",
		ArrayProp("values", TypeInteger, MaxCount(3), Element(Range(0, 10))),
	)
	require.NoError(t, err)
	p, _ := d.Property("values")
	assert.True(t, p.IsArray())
	assert.Equal(t, "[integer]", p.TypeName)
}

func TestDescriptor_Accessors(t *testing.T) {
	color := Must(NewEnum("Color", "red", "green"))
	assert.Equal(t, KindEnum, color.Kind())
	assert.Equal(t, []string{"red", "green"}, color.Choices())

	choices := color.Choices()
	choices[0] = "blue"
	assert.Equal(t, "red", color.Choices()[0])

	circle, _, ping, shape := shapes()
	assert.Equal(t, KindUnion, shape.Kind())
	assert.Len(t, shape.Alternatives(), 3)
	alt, ok := shape.Alternative("Circle")
	require.True(t, ok)
	assert.Same(t, circle, alt)
	assert.True(t, circle.HasPayload())
	assert.False(t, ping.HasPayload())
	assert.True(t, color.HasPayload())

	described := color.WithDescription("Primary colors")
	assert.Equal(t, "Primary colors", described.Description())
	assert.Empty(t, color.Description())
}

func TestSchemaBuildError_Message(t *testing.T) {
	err := buildError(ReasonUnresolvedReference, []string{"A", "B"}, "")
	assert.Equal(t, "schema build failed (unresolved_reference): A, B", err.Error())

	err = buildError(ReasonReferenceCycle, []string{"A", "A"}, "loop")
	assert.Equal(t, "schema build failed (reference_cycle): A, A: loop", err.Error())
}

func TestTypeNames(t *testing.T) {
	assert.True(t, IsPrimitive(TypeBoolean))
	assert.False(t, IsPrimitive("Person"))
	assert.Equal(t, "[[string]]", ArrayOf(ArrayOf(TypeString)))

	elem, ok := ElementType("[[string]]")
	require.True(t, ok)
	assert.Equal(t, "[string]", elem)
	_, ok = ElementType("string")
	assert.False(t, ok)
	assert.Equal(t, "Person", baseType("[[Person]]"))
}
