package structured

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/testutil"
)

func describe(t *testing.T, v any) *schema.Descriptor {
	t.Helper()
	d, err := NewGenerator().DescribeValue(v)
	require.NoError(t, err)
	return d
}

func wire(t *testing.T, d *schema.Descriptor) string {
	t.Helper()
	raw, err := d.Serialize()
	require.NoError(t, err)
	return string(raw)
}

func TestGenerator_Person(t *testing.T) {
	d := describe(t, Person{})
	assert.Equal(t,
		`{"title":"Person","type":"object","properties":{"name":{"type":"string"},"age":{"type":"integer","minimum":0,"maximum":120},"email":{"type":"string","format":"email"}},"required":["name","age"]}`,
		wire(t, d))
}

func TestGenerator_Order(t *testing.T) {
	d := describe(t, &Order{})

	assert.Equal(t, []string{"id", "customer", "lines", "mood", "total", "placed"}, d.Required())

	id, _ := d.Property("id")
	assert.Equal(t, schema.TypeString, id.TypeName)
	assert.Equal(t, schema.FormatUUID, id.Format)

	placed, _ := d.Property("placed")
	assert.Equal(t, schema.FormatDateTime, placed.Format)

	mood, _ := d.Property("mood")
	require.NotNil(t, mood.Schema)
	assert.Equal(t, schema.KindEnum, mood.Schema.Kind())
	assert.Equal(t, []string{"happy", "sad"}, mood.Schema.Choices())

	total, _ := d.Property("total")
	assert.Equal(t, "Money", total.TypeName)
	currency, _ := total.Schema.Property("currency")
	assert.Equal(t, `pattern("[A-Z]{3}")`, currency.Guides[0].String())

	lines, _ := d.Property("lines")
	assert.Equal(t, "[Line]", lines.TypeName)
	sku, _ := lines.Schema.Property("sku")
	assert.Equal(t, "Stock keeping unit", sku.Description)

	tags, _ := d.Property("tags")
	assert.True(t, tags.Optional)
	require.Len(t, tags.Guides, 2)
	assert.Equal(t, "maxCount(3)", tags.Guides[0].String())
	assert.Equal(t, `element(pattern("[a-z]+"))`, tags.Guides[1].String())
}

func TestGenerator_OrderWire(t *testing.T) {
	raw := wire(t, describe(t, Order{}))
	assert.Contains(t, raw, `"tags":{"type":"array","items":{"type":"string","pattern":"[a-z]+"},"maxItems":3}`)
	assert.Contains(t, raw, `"$defs":{"Person":`)
	assert.Contains(t, raw, `"Mood":{"title":"Mood","type":"string","anyOf":["happy","sad"]}`)
}

func TestGenerator_Recursive(t *testing.T) {
	d := describe(t, Tree{})
	children, ok := d.Property("children")
	require.True(t, ok)
	assert.Same(t, d, children.Schema)
	assert.Contains(t, wire(t, d), `"items":{"$ref":"#"}`)
}

func TestGenerator_EmbeddedAndSkippedFields(t *testing.T) {
	d := describe(t, Document{})
	names := []string{}
	for _, p := range d.Properties() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"id", "created", "title"}, names)
	assert.Equal(t, []string{"id", "title"}, d.Required())
}

func TestGenerator_RootTypes(t *testing.T) {
	d := describe(t, Mood(""))
	assert.Equal(t, schema.KindEnum, d.Kind())

	d = describe(t, Money{})
	assert.Same(t, moneySchema, d)
}

func TestGenerator_Failures(t *testing.T) {
	type withMap struct {
		Attrs map[string]string `json:"attrs"`
	}
	type badGuide struct {
		Name string `json:"name" jsonschema:"minimum=1"`
	}
	type badNumber struct {
		Age int `json:"age" jsonschema:"minimum=x"`
	}
	type countOnScalar struct {
		N int `json:"n" jsonschema:"count=2"`
	}
	type unknownOption struct {
		N int `json:"n" jsonschema:"sometimes"`
	}

	tests := []struct {
		name   string
		typ    reflect.Type
		reason schema.BuildFailure
	}{
		{"scalar root", reflect.TypeOf(0), schema.ReasonInvalidRoot},
		{"slice root", reflect.TypeOf([]Person{}), schema.ReasonInvalidRoot},
		{"map field", reflect.TypeOf(withMap{}), ""},
		{"range on string", reflect.TypeOf(badGuide{}), schema.ReasonInvalidGuide},
		{"malformed number", reflect.TypeOf(badNumber{}), ""},
		{"count on scalar", reflect.TypeOf(countOnScalar{}), schema.ReasonInvalidGuide},
		{"unknown option", reflect.TypeOf(unknownOption{}), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewGenerator().Describe(tt.typ)
			require.Error(t, err)
			assert.Nil(t, d)
			if tt.reason != "" {
				var be *schema.SchemaBuildError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, tt.reason, be.Reason)
			}
		})
	}

	_, err := NewGenerator().Describe(nil)
	assert.Error(t, err)
	_, err = NewGenerator().DescribeValue(nil)
	assert.Error(t, err)
}

func TestGenerator_RegistryOverride(t *testing.T) {
	reg := NewRegistry()
	custom := schema.Must(schema.NewObject("Address",
		schema.Prop("city", schema.TypeString).Described("City name"),
	))
	reg.Register(custom)

	type Customer struct {
		Home Address `json:"home"`
	}
	d, err := NewGenerator(WithGeneratorRegistry(reg)).Describe(reflect.TypeOf(Customer{}))
	require.NoError(t, err)

	home, _ := d.Property("home")
	require.Len(t, home.Schema.Properties(), 1)
	city, _ := home.Schema.Property("city")
	assert.Equal(t, "City name", city.Description)

	got, ok := reg.Lookup("Customer")
	require.True(t, ok)
	assert.Same(t, d, got)
}

func TestGenerator_CachesByType(t *testing.T) {
	type CachedThing struct {
		N int `json:"n"`
	}
	g := NewGenerator()
	first, err := g.Describe(reflect.TypeOf(CachedThing{}))
	require.NoError(t, err)
	second, err := g.Describe(reflect.TypeOf(&CachedThing{}))
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Nothing is shared between generators.
	third, err := NewGenerator().Describe(reflect.TypeOf(CachedThing{}))
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func describeItemA(t *testing.T) *schema.Descriptor {
	type Item struct {
		A int `json:"a"`
	}
	d, err := Describe[Item]()
	require.NoError(t, err)
	return d
}

func describeItemB(t *testing.T) *schema.Descriptor {
	type Item struct {
		B string `json:"b"`
	}
	d, err := Describe[Item]()
	require.NoError(t, err)
	return d
}

func TestDescribe_SameNamedTypes(t *testing.T) {
	a := describeItemA(t)
	b := describeItemB(t)
	assert.Equal(t, "Item", a.Name())
	assert.Equal(t, []string{"a"}, a.Required())
	assert.Equal(t, []string{"b"}, b.Required())

	// Repeating the calls in the other order gives the same answers.
	assert.Equal(t, []string{"b"}, describeItemB(t).Required())
	assert.Equal(t, []string{"a"}, describeItemA(t).Required())
}

type Item struct {
	A int `json:"a"`
}

func TestGenerator_DistinctTypesSharingAName(t *testing.T) {
	type outer = Item
	type Item struct {
		B string `json:"b"`
	}
	type Pair struct {
		Left  outer `json:"left"`
		Right Item  `json:"right"`
	}

	d := describe(t, Pair{})
	left, ok := d.Property("left")
	require.True(t, ok)
	right, ok := d.Property("right")
	require.True(t, ok)
	assert.Equal(t, "Item", left.Schema.Name())
	assert.Equal(t, "Item2", right.Schema.Name())
	assert.Equal(t, []string{"a"}, left.Schema.Required())
	assert.Equal(t, []string{"b"}, right.Schema.Required())

	v := testutil.MustParse(t, `{"left":{"a":1},"right":{"b":"x"}}`)
	assert.NoError(t, d.Validate(v))
	v = testutil.MustParse(t, `{"left":{"a":1},"right":{"a":1}}`)
	assert.Error(t, d.Validate(v))

	out, err := NewOutput[Pair]()
	require.NoError(t, err)
	p, err := out.Parse(testutil.TestContext(t), `{"left":{"a":1},"right":{"b":"x"}}`)
	require.NoError(t, err)
	assert.Equal(t, "x", p.Right.B)
}

func TestNewOutput_SameNamedTypesDoNotShareSchemas(t *testing.T) {
	type Item struct {
		B string `json:"b"`
	}
	first, err := NewOutput[Item]()
	require.NoError(t, err)
	second, err := NewOutput[outerItem]()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, first.Schema().Required())
	assert.Equal(t, []string{"a"}, second.Schema().Required())
}

type outerItem = Item

func TestGenerator_IsDeterministic(t *testing.T) {
	first := wire(t, describe(t, Order{}))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, wire(t, describe(t, Order{})))
	}
}

func TestGenerator_DefaultFormats(t *testing.T) {
	type Event struct {
		At    time.Time   `json:"at"`
		Refs  []uuid.UUID `json:"refs"`
		Host  string      `json:"host" jsonschema:"format=hostname"`
		Links []Link      `json:"links,omitempty"`
	}
	d := describe(t, Event{})

	at, _ := d.Property("at")
	assert.Equal(t, schema.FormatDateTime, at.Format)
	refs, _ := d.Property("refs")
	assert.Equal(t, "[string]", refs.TypeName)
	assert.Equal(t, schema.FormatUUID, refs.Format)
	host, _ := d.Property("host")
	assert.Equal(t, schema.FormatHostname, host.Format)

	links, _ := d.Property("links")
	href, _ := links.Schema.Property("href")
	assert.Equal(t, schema.FormatURI, href.Format)
}
