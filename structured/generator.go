package structured

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
)

// Enumerable is implemented by named string types with a closed set of
// values. They are described as enumerations.
type Enumerable interface {
	Choices() []string
}

// Generable is implemented by types that supply their own descriptor
// instead of having one derived from their fields.
type Generable interface {
	GenerationSchema() *schema.Descriptor
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	urlType        = reflect.TypeOf(url.URL{})
	valueType      = reflect.TypeOf(content.Value{})
	enumerableType = reflect.TypeOf((*Enumerable)(nil)).Elem()
	generableType  = reflect.TypeOf((*Generable)(nil)).Elem()
	decoderType    = reflect.TypeOf((*content.Decoder)(nil)).Elem()
	encoderType    = reflect.TypeOf((*content.Encoder)(nil)).Elem()
)

// Generator derives descriptors from Go types using reflection. Struct fields
// use the "json" tag for the property name and the "jsonschema" tag for
// guides:
//
//   - description=...: property description
//   - minimum=0, maximum=120: numeric range
//   - pattern=^[a-z]+$: full-match regular expression
//   - enum=a,b,c: allowed string values
//   - minItems=1, maxItems=10, count=3: array length
//   - format=email: string format
//   - required / optional: override the default presence
//
// Pointer fields and fields tagged omitempty are optional. Value guides on an
// array field apply to its elements.
//
// Distinct types that share a short name get numbered schema names (Item,
// Item2) in the order they are reached. Descriptors are cached per Generator
// by reflect.Type.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	registry *Registry
	maxDepth int
	logger   *zap.Logger

	cache map[reflect.Type]*schema.Descriptor
	defs  []schema.DynamicSchema
	names map[reflect.Type]string
	taken map[string]reflect.Type
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorRegistry resolves named types through r before deriving them
// and records every described root in it. r is keyed by schema name, so
// types sharing a short name should not share a registry.
func WithGeneratorRegistry(r *Registry) GeneratorOption {
	return func(g *Generator) { g.registry = r }
}

// WithGeneratorLogger sets the logger passed to the schema builder.
func WithGeneratorLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGeneratorMaxDepth bounds alias resolution in the schema builder.
func WithGeneratorMaxDepth(n int) GeneratorOption {
	return func(g *Generator) { g.maxDepth = n }
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{logger: zap.NewNop(), cache: make(map[reflect.Type]*schema.Descriptor)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Describe derives the descriptor of t. The root must be a struct, an
// Enumerable or a Generable type.
func (g *Generator) Describe(t reflect.Type) (*schema.Descriptor, error) {
	if t == nil {
		return nil, &schema.SchemaBuildError{Reason: schema.ReasonInvalidRoot, Message: "cannot describe a nil type"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if !isNamedNode(t) {
		return nil, &schema.SchemaBuildError{
			Reason:  schema.ReasonInvalidRoot,
			Names:   []string{t.String()},
			Message: "root type must be a struct, an Enumerable or a Generable",
		}
	}

	if d, ok := g.cache[t]; ok {
		return d, nil
	}

	// Fresh state for every top-level call.
	g.defs = nil
	g.names = make(map[reflect.Type]string)
	g.taken = make(map[string]reflect.Type)

	name, err := g.define(t)
	if err != nil {
		return nil, err
	}
	d, err := schema.NewBuilder(schema.WithLogger(g.logger), schema.WithMaxDepth(g.maxDepth)).
		Define(g.defs...).
		Build(schema.Reference(name))
	if err != nil {
		return nil, err
	}
	if g.registry != nil {
		g.registry.Register(d)
	}
	g.cache[t] = d
	return d, nil
}

// DescribeValue derives the descriptor of the dynamic type of v.
func (g *Generator) DescribeValue(v any) (*schema.Descriptor, error) {
	if v == nil {
		return nil, &schema.SchemaBuildError{Reason: schema.ReasonInvalidRoot, Message: "cannot describe a nil value"}
	}
	return g.Describe(reflect.TypeOf(v))
}

// Describe derives the descriptor of T with a fresh Generator. Callers that
// describe the same type repeatedly should keep an Output or a Generator.
func Describe[T any]() (*schema.Descriptor, error) {
	return NewGenerator().Describe(reflect.TypeOf((*T)(nil)).Elem())
}

// isNamedNode reports whether t becomes a named schema node.
func isNamedNode(t reflect.Type) bool {
	if implements(t, generableType) || implements(t, enumerableType) {
		return true
	}
	return t.Kind() == reflect.Struct && !isScalarStruct(t)
}

func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == urlType || t == valueType
}

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// instance returns a zero value of t that satisfies iface, using a pointer
// when only the pointer type has the method.
func instance(t, iface reflect.Type) any {
	if t.Implements(iface) {
		return reflect.Zero(t).Interface()
	}
	return reflect.New(t).Interface()
}

func schemaName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// define emits the dynamic nodes for named type t and returns the schema
// name it is known by.
func (g *Generator) define(t reflect.Type) (string, error) {
	if name, ok := g.names[t]; ok {
		return name, nil
	}
	name := g.claim(schemaName(t), t)
	g.names[t] = name

	if g.registry != nil {
		if d, ok := g.registry.Lookup(name); ok {
			g.defs = append(g.defs, d.DynamicDefinitions()...)
			return name, nil
		}
	}

	switch {
	case implements(t, generableType):
		d := instance(t, generableType).(Generable).GenerationSchema()
		if d == nil {
			return "", &schema.SchemaBuildError{Reason: schema.ReasonEmpty, Names: []string{name}, Message: "GenerationSchema returned nil"}
		}
		g.names[t] = d.Name()
		g.defs = append(g.defs, d.DynamicDefinitions()...)
		return d.Name(), nil
	case implements(t, enumerableType):
		choices := instance(t, enumerableType).(Enumerable).Choices()
		g.defs = append(g.defs, schema.DynamicEnum(name, "", choices...))
		return name, nil
	}

	fields, err := fieldsOf(t)
	if err != nil {
		return "", err
	}
	props := make([]schema.DynamicProperty, 0, len(fields))
	for _, f := range fields {
		s, err := g.typeSchema(f.typ, f.opts.value, f.opts.count)
		if err != nil {
			return "", fmt.Errorf("field %s.%s: %w", name, f.name, err)
		}
		format := f.opts.format
		if format == "" {
			format = defaultFormat(f.typ)
		}
		props = append(props, schema.DynamicProperty{
			Name:        f.name,
			Description: f.opts.description,
			Schema:      s,
			Optional:    f.optional,
			Format:      format,
		})
	}
	g.defs = append(g.defs, schema.DynamicObject(name, "", props...))
	return name, nil
}

// claim reserves name for t, numbering it when another type already holds it.
func (g *Generator) claim(name string, t reflect.Type) string {
	candidate := name
	for i := 2; ; i++ {
		if owner, ok := g.taken[candidate]; !ok || owner == t {
			g.taken[candidate] = t
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", name, i)
	}
}

// typeSchema maps a field type to a dynamic node. Value guides land on the
// innermost element; count guides on the outermost array.
func (g *Generator) typeSchema(t reflect.Type, value, count []schema.Guide) (schema.DynamicSchema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if len(count) > 0 && !isArray(t) {
		// Let the builder report the misplaced guide against the property.
		value = append(append([]schema.Guide(nil), value...), count...)
		count = nil
	}

	switch {
	case t == timeType || t == urlType || t == uuidType:
		return schema.Primitive(schema.TypeString, value...), nil
	case t == valueType:
		return schema.DynamicSchema{}, fmt.Errorf("content.Value fields have no fixed shape")
	case isNamedNode(t):
		name, err := g.define(t)
		if err != nil {
			return schema.DynamicSchema{}, err
		}
		return schema.Primitive(name, value...), nil
	case isArray(t):
		elem, err := g.typeSchema(t.Elem(), value, nil)
		if err != nil {
			return schema.DynamicSchema{}, err
		}
		return schema.DynamicArray(elem, count...), nil
	}

	switch t.Kind() {
	case reflect.String:
		return schema.Primitive(schema.TypeString, value...), nil
	case reflect.Bool:
		return schema.Primitive(schema.TypeBoolean, value...), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.Primitive(schema.TypeInteger, value...), nil
	case reflect.Float32, reflect.Float64:
		return schema.Primitive(schema.TypeNumber, value...), nil
	}
	return schema.DynamicSchema{}, fmt.Errorf("unsupported type: %s", t)
}

func isArray(t reflect.Type) bool {
	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t != uuidType
}

// defaultFormat picks the string format implied by the innermost element of
// t.
func defaultFormat(t reflect.Type) string {
	for {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if !isArray(t) {
			break
		}
		t = t.Elem()
	}
	switch t {
	case timeType:
		return schema.FormatDateTime
	case uuidType:
		return schema.FormatUUID
	case urlType:
		return schema.FormatURI
	}
	return ""
}
