package schema

import (
	"encoding/json"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSONSchema_Object(t *testing.T) {
	s := person().ToJSONSchema()

	assert.Equal(t, jsonschema.Version, s.Version)
	assert.Equal(t, "Person", s.Title)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"name", "age"}, s.Required)

	age, ok := s.Properties.Get("age")
	require.True(t, ok)
	assert.Equal(t, "integer", age.Type)
	assert.Equal(t, json.Number("0"), age.Minimum)
	assert.Equal(t, json.Number("120"), age.Maximum)

	email, ok := s.Properties.Get("email")
	require.True(t, ok)
	assert.Equal(t, "email", email.Format)

	keys := []string{}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"name", "age", "email"}, keys)
}

func TestToJSONSchema_Guides(t *testing.T) {
	d := Must(NewObject("Post",
		Prop("status", TypeString, AnyOf("draft", "live")),
		Prop("slug", TypeString, Pattern("[a-z-]+"), Pattern(".{3,}")),
		ArrayProp("tags", TypeString, Count(2), Element(AnyOf("go", "rust"))),
	))
	s := d.ToJSONSchema()

	status, _ := s.Properties.Get("status")
	assert.Equal(t, []any{"draft", "live"}, status.Enum)

	slug, _ := s.Properties.Get("slug")
	assert.Equal(t, "[a-z-]+", slug.Pattern)
	require.Len(t, slug.AllOf, 1)
	assert.Equal(t, ".{3,}", slug.AllOf[0].Pattern)

	tags, _ := s.Properties.Get("tags")
	assert.Equal(t, "array", tags.Type)
	require.NotNil(t, tags.MinItems)
	require.NotNil(t, tags.MaxItems)
	assert.Equal(t, uint64(2), *tags.MinItems)
	assert.Equal(t, uint64(2), *tags.MaxItems)
	require.NotNil(t, tags.Items)
	assert.Equal(t, []any{"go", "rust"}, tags.Items.Enum)
}

func TestToJSONSchema_DefinitionsAndUnions(t *testing.T) {
	circle, _, _, shape := shapes()
	color := Must(NewEnum("Color", "red"))
	canvas := Must(NewObject("Canvas",
		RefArrayProp("shapes", shape),
		RefProp("background", color),
		RefProp("focus", circle).AsOptional(),
	))
	s := canvas.ToJSONSchema()

	shapes, _ := s.Properties.Get("shapes")
	assert.Equal(t, "#/$defs/Shape", shapes.Items.Ref)
	bg, _ := s.Properties.Get("background")
	assert.Equal(t, "#/$defs/Color", bg.Ref)

	require.Len(t, s.Definitions, 3)
	assert.Len(t, s.Definitions["Shape"].AnyOf, 3)
	assert.Equal(t, []any{"red"}, s.Definitions["Color"].Enum)
	assert.Equal(t, "object", s.Definitions["Circle"].Type)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"$schema":"https://json-schema.org/draft/2020-12/schema"`)
}

func TestToJSONSchema_RecursiveRoot(t *testing.T) {
	tree, err := NewBuilder().Build(DynamicObject("Tree", "",
		optionalProp("children", DynamicArray(Reference("Tree"))),
	))
	require.NoError(t, err)

	s := tree.ToJSONSchema()
	children, _ := s.Properties.Get("children")
	assert.Equal(t, "#", children.Items.Ref)
	assert.Empty(t, s.Definitions)
}
