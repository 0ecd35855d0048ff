package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/types"
)

func mustParse(t *testing.T, text string) content.Value {
	t.Helper()
	v, err := content.ParseString(text)
	require.NoError(t, err)
	return v
}

func violations(t *testing.T, err error) Violations {
	t.Helper()
	require.Error(t, err)
	var vs Violations
	require.ErrorAs(t, err, &vs)
	return vs
}

func TestValidate_Person(t *testing.T) {
	d := person()

	tests := []struct {
		name       string
		input      string
		property   string
		constraint string
	}{
		{"age above range", `{"name":"Al","age":121}`, "age", "range(0, 120)"},
		{"negative age", `{"name":"Al","age":-1}`, "age", "range(0, 120)"},
		{"fractional age", `{"name":"Al","age":3.5}`, "age", "type(integer)"},
		{"age as string", `{"name":"Al","age":"3"}`, "age", "type(integer)"},
		{"missing name", `{"age":3}`, "name", "required"},
		{"null name", `{"name":null,"age":3}`, "name", "required"},
		{"bad email", `{"name":"Al","age":3,"email":"nope"}`, "email", "format(email)"},
		{"not an object", `[1]`, "", "type(object)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := violations(t, d.Validate(mustParse(t, tt.input)))
			require.Len(t, vs, 1)
			assert.Equal(t, tt.property, vs[0].Property)
			assert.Equal(t, tt.constraint, vs[0].Constraint)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	d := person()
	assert.NoError(t, d.Validate(mustParse(t, `{"name":"Al","age":0}`)))
	assert.NoError(t, d.Validate(mustParse(t, `{"name":"Al","age":120,"email":"al@example.com"}`)))
	assert.NoError(t, d.Validate(mustParse(t, `{"name":"Al","age":30,"email":null,"extra":true}`)))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	vs := violations(t, person().Validate(mustParse(t, `{"age":500,"email":"x"}`)))
	require.Len(t, vs, 3)
	assert.Equal(t, "name", vs[0].Property)
	assert.Equal(t, "age", vs[1].Property)
	assert.Equal(t, "email", vs[2].Property)
	assert.Contains(t, vs.Error(), "3 violations")
	assert.Equal(t, types.ErrConstraintViolation, types.GetErrorCode(vs))
}

func TestValidate_IncompleteValue(t *testing.T) {
	err := person().Validate(mustParse(t, `{"name":"Al","age":3`))
	assert.True(t, errors.Is(err, ErrIncompleteValue))
	assert.Equal(t, types.ErrIncompleteValue, types.GetErrorCode(err))
}

func TestValidate_NestedPaths(t *testing.T) {
	address := Must(NewObject("Address", Prop("city", TypeString), Prop("zip", TypeString, Pattern(`\d{5}`))))
	d := Must(NewObject("Customer",
		RefProp("home", address),
		RefArrayProp("previous", address).AsOptional(),
		ArrayProp("scores", TypeInteger, Element(Range(0, 10))).AsOptional(),
		ArrayProp("matrix", ArrayOf(TypeNumber)).AsOptional(),
	))

	tests := []struct {
		name       string
		input      string
		property   string
		constraint string
	}{
		{"nested property", `{"home":{"city":"A","zip":"123"}}`, "home.zip", `pattern("\\d{5}")`},
		{"nested required", `{"home":{"zip":"12345"}}`, "home.city", "required"},
		{"array element object", `{"home":{"city":"A","zip":"12345"},"previous":[{"city":"B","zip":"12345"},{"city":1,"zip":"12345"}]}`, "previous[1].city", "type(string)"},
		{"element guide", `{"home":{"city":"A","zip":"12345"},"scores":[1,11]}`, "scores[1]", "range(0, 10)"},
		{"element type", `{"home":{"city":"A","zip":"12345"},"scores":[1,"x"]}`, "scores[1]", "type(integer)"},
		{"array expected", `{"home":{"city":"A","zip":"12345"},"scores":3}`, "scores", "type([integer])"},
		{"nested arrays", `{"home":{"city":"A","zip":"12345"},"matrix":[[1],[2,"x"]]}`, "matrix[1][1]", "type(number)"},
		{"named type mismatch", `{"home":"x"}`, "home", "type(object)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := violations(t, d.Validate(mustParse(t, tt.input)))
			require.Len(t, vs, 1)
			assert.Equal(t, tt.property, vs[0].Property)
			assert.Equal(t, tt.constraint, vs[0].Constraint)
		})
	}
}

func TestValidate_GuidesAreConjunctive(t *testing.T) {
	d := Must(NewObject("Post",
		ArrayProp("tags", TypeString, Count(3)),
		ArrayProp("scores", TypeInteger, MaxCount(2), Element(Range(0, 10))).AsOptional(),
	))

	vs := violations(t, d.Validate(mustParse(t, `{"tags":["a",1]}`)))
	require.Len(t, vs, 2)
	assert.Equal(t, "tags[1]", vs[0].Property)
	assert.Equal(t, "type(string)", vs[0].Constraint)
	assert.Equal(t, "tags", vs[1].Property)
	assert.Equal(t, "count(3)", vs[1].Constraint)

	vs = violations(t, d.Validate(mustParse(t, `{"tags":["a","b","c"],"scores":[1,"x",3]}`)))
	require.Len(t, vs, 2)
	assert.Equal(t, "scores[1]", vs[0].Property)
	assert.Equal(t, "type(integer)", vs[0].Constraint)
	assert.Equal(t, "scores", vs[1].Property)
	assert.Equal(t, "maxCount(2)", vs[1].Constraint)
}

func TestValidate_Enum(t *testing.T) {
	color := Must(NewEnum("Color", "red", "green"))
	assert.NoError(t, color.Validate(content.String("red")))

	vs := violations(t, color.Validate(content.String("Red")))
	assert.Equal(t, `anyOf("red", "green")`, vs[0].Constraint)
	violations(t, color.Validate(content.Number(1)))
}

func TestValidate_Union(t *testing.T) {
	_, _, _, shape := shapes()
	color := Must(NewEnum("Color", "red", "green"))
	mixed := Must(NewUnion("Fill", color, Must(NewObject("None"))))

	tests := []struct {
		name       string
		d          *Descriptor
		input      string
		property   string
		constraint string
	}{
		{"tagged case", shape, `{"case":"Circle","value":{"radius":1}}`, "", ""},
		{"tagged case with bad payload", shape, `{"case":"Circle","value":{"radius":-1}}`, "value.radius", "minimum(0)"},
		{"tagged case missing payload field", shape, `{"case":"Square","value":{"radius":1}}`, "value.side", "required"},
		{"zero payload case", shape, `{"case":"Ping","value":""}`, "", ""},
		{"zero payload with data", shape, `{"case":"Ping","value":1}`, "value", `anyOf("")`},
		{"outright alternative", shape, `{"side":2}`, "", ""},
		{"no alternative", shape, `"circle"`, "", "oneOf(Circle, Square, Ping)"},
		{"bare enum choice", mixed, `"green"`, "", ""},
		{"tagged enum choice", mixed, `{"case":"Color","value":"red"}`, "", ""},
		{"tagged enum bad choice", mixed, `{"case":"Color","value":"blue"}`, "value", `anyOf("red", "green")`},
		{"unknown bare string", mixed, `"blue"`, "", "oneOf(Color, None)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate(mustParse(t, tt.input))
			if tt.constraint == "" {
				assert.NoError(t, err)
				return
			}
			vs := violations(t, err)
			require.Len(t, vs, 1)
			assert.Equal(t, tt.property, vs[0].Property)
			assert.Equal(t, tt.constraint, vs[0].Constraint)
		})
	}
}

func TestValidate_Formats(t *testing.T) {
	tests := []struct {
		format string
		good   string
		bad    string
	}{
		{FormatEmail, "a@b.io", "a@b"},
		{FormatURI, "https://example.com", "example.com"},
		{FormatUUID, "123e4567-e89b-12d3-a456-426614174000", "123e4567"},
		{FormatDateTime, "2024-01-02T03:04:05Z", "2024-01-02"},
		{FormatDate, "2024-01-02", "01/02/2024"},
		{FormatTime, "03:04:05", "3pm"},
		{FormatIPv4, "10.0.0.1", "::1"},
		{FormatIPv6, "::1", "10.0.0.1"},
		{FormatHostname, "api.example.com", "-bad-.com"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			d := Must(NewObject("F", Prop("v", TypeString).WithFormat(tt.format)))
			ok := content.Structure(content.Member{Name: "v", Value: content.String(tt.good)})
			bad := content.Structure(content.Member{Name: "v", Value: content.String(tt.bad)})

			assert.NoError(t, d.Validate(ok))
			vs := violations(t, d.Validate(bad))
			assert.Equal(t, "format("+tt.format+")", vs[0].Constraint)
		})
	}
}

func TestValidate_UnknownFormatIsAnnotation(t *testing.T) {
	d := Must(NewObject("F", Prop("v", TypeString).WithFormat("color")))
	assert.NoError(t, d.Validate(content.Structure(content.Member{Name: "v", Value: content.String("teal")})))
}

func TestViolation_Error(t *testing.T) {
	v := &Violation{Property: "age", Constraint: "range(0, 120)", Value: content.Number(121)}
	assert.Equal(t, `property "age" violates range(0, 120): 121`, v.Error())

	root := &Violation{Constraint: "type(object)", Value: content.Bool(true)}
	assert.Equal(t, "value true violates type(object)", root.Error())

	var target *Violation
	require.True(t, errors.As(Violations{v}, &target))
	assert.Same(t, v, target)
}
