package schema

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"
)

type dynamicKind uint8

const (
	dynObject dynamicKind = iota + 1
	dynEnum
	dynUnion
	dynAlias
	dynReference
	dynArray
	dynPrimitive
)

// DynamicSchema is a node of a schema graph assembled at runtime. Named
// nodes (objects, enumerations, unions and aliases) may refer to each other
// by name before they are defined.
type DynamicSchema struct {
	kind        dynamicKind
	name        string
	description string
	properties  []DynamicProperty
	choices     []string
	alts        []DynamicSchema
	target      string
	of          *DynamicSchema
	typeName    string
	guides      []Guide
}

// DynamicProperty is one member of a DynamicObject.
type DynamicProperty struct {
	Name        string
	Description string
	Schema      DynamicSchema
	Optional    bool
	Format      string
}

// DynamicObject declares a named object.
func DynamicObject(name, description string, props ...DynamicProperty) DynamicSchema {
	return DynamicSchema{kind: dynObject, name: name, description: description, properties: props}
}

// DynamicEnum declares a named closed enumeration.
func DynamicEnum(name, description string, choices ...string) DynamicSchema {
	return DynamicSchema{kind: dynEnum, name: name, description: description, choices: choices}
}

// DynamicUnion declares a named union. Alternatives must be named nodes or
// references to them.
func DynamicUnion(name, description string, alts ...DynamicSchema) DynamicSchema {
	return DynamicSchema{kind: dynUnion, name: name, description: description, alts: alts}
}

// Alias declares name as another name for target.
func Alias(name, target string) DynamicSchema {
	return DynamicSchema{kind: dynAlias, name: name, target: target}
}

// Reference refers to a named node by name.
func Reference(name string) DynamicSchema {
	return DynamicSchema{kind: dynReference, target: name}
}

// DynamicArray declares an array of of. Guides apply to the array itself;
// guides on a primitive element apply to every element.
func DynamicArray(of DynamicSchema, guides ...Guide) DynamicSchema {
	elem := of
	return DynamicSchema{kind: dynArray, of: &elem, guides: guides}
}

// Primitive declares a primitive-typed value with optional guides.
func Primitive(typeName string, guides ...Guide) DynamicSchema {
	return DynamicSchema{kind: dynPrimitive, typeName: typeName, guides: guides}
}

// Name returns the node name; empty for references, arrays and primitives.
func (s DynamicSchema) Name() string { return s.name }

func (s DynamicSchema) named() bool {
	switch s.kind {
	case dynObject, dynEnum, dynUnion, dynAlias:
		return true
	}
	return false
}

// DefaultMaxResolutionDepth bounds alias chains during Build.
const DefaultMaxResolutionDepth = 32

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxDepth bounds alias resolution. Non-positive values keep the default.
func WithMaxDepth(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder resolves a graph of named dynamic schemas into an immutable
// Descriptor. It is not safe for concurrent use while definitions are added.
type Builder struct {
	defs     []DynamicSchema
	maxDepth int
	logger   *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		maxDepth: DefaultMaxResolutionDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("component", "schema_builder"))
	return b
}

// Define adds named dependency schemas. Forward references between them are
// allowed.
func (b *Builder) Define(schemas ...DynamicSchema) *Builder {
	b.defs = append(b.defs, schemas...)
	return b
}

// Build resolves root against the defined schemas. Every failure is fatal
// and returned as *SchemaBuildError.
func (b *Builder) Build(root DynamicSchema) (*Descriptor, error) {
	d, err := b.build(root)
	if err != nil {
		b.logger.Debug("dynamic schema build failed", zap.Error(err))
		return nil, err
	}
	b.logger.Debug("dynamic schema resolved",
		zap.String("root", d.name),
		zap.Int("definitions", len(b.defs)),
	)
	return d, nil
}

type resolution struct {
	maxDepth int
	named    map[string]DynamicSchema
	order    []string
	descs    map[string]*Descriptor
	dups     map[string]bool
	refs     map[string]bool
}

func (b *Builder) build(root DynamicSchema) (*Descriptor, error) {
	if root.kind == 0 {
		return nil, buildError(ReasonEmpty, nil, "no root schema")
	}

	r := &resolution{
		maxDepth: b.maxDepth,
		named:    make(map[string]DynamicSchema),
		descs:    make(map[string]*Descriptor),
		dups:     make(map[string]bool),
		refs:     make(map[string]bool),
	}
	for _, def := range b.defs {
		if !def.named() || def.name == "" {
			return nil, buildError(ReasonEmpty, nil, "definitions must be named objects, enumerations, unions or aliases")
		}
		if err := r.register(def); err != nil {
			return nil, err
		}
	}
	if err := r.register(root); err != nil {
		return nil, err
	}
	if len(r.dups) > 0 {
		return nil, buildError(ReasonDuplicateDefinition, sortedKeys(r.dups), "")
	}

	var missing []string
	for name := range r.refs {
		if _, ok := r.named[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, buildError(ReasonUnresolvedReference, missing, "")
	}

	// Placeholders first so that every reference, forward or recursive,
	// points at its final descriptor.
	for _, name := range r.order {
		node := r.named[name]
		switch node.kind {
		case dynObject:
			r.descs[name] = &Descriptor{name: name, description: node.description, kind: KindObject}
		case dynEnum:
			r.descs[name] = &Descriptor{name: name, description: node.description, kind: KindEnum}
		case dynUnion:
			r.descs[name] = &Descriptor{name: name, description: node.description, kind: KindUnion}
		}
	}
	for _, name := range r.order {
		if err := r.fill(r.named[name]); err != nil {
			return nil, err
		}
	}

	d, err := r.descriptorFor(root)
	if err != nil {
		if _, ok := err.(*SchemaBuildError); !ok {
			return nil, &SchemaBuildError{Reason: ReasonInvalidRoot, Message: err.Error(), Cause: err}
		}
		return nil, err
	}
	if err := r.checkCycles(); err != nil {
		return nil, err
	}
	return d, nil
}

// register records every named node reachable from s and every name s
// refers to. A name bound to two different nodes is a duplicate.
func (r *resolution) register(s DynamicSchema) error {
	switch s.kind {
	case dynReference:
		r.refs[s.target] = true
		return nil
	case dynArray:
		if s.of == nil {
			return buildError(ReasonEmpty, nil, "array without an element schema")
		}
		return r.register(*s.of)
	case dynPrimitive:
		if !IsPrimitive(s.typeName) {
			r.refs[s.typeName] = true
		}
		return nil
	case 0:
		return buildError(ReasonEmpty, nil, "missing schema")
	}

	if s.name == "" {
		return buildError(ReasonEmpty, nil, "named schema without a name")
	}
	if existing, ok := r.named[s.name]; ok {
		if !reflect.DeepEqual(existing, s) {
			r.dups[s.name] = true
		}
		return nil
	}
	r.named[s.name] = s
	r.order = append(r.order, s.name)

	switch s.kind {
	case dynAlias:
		r.refs[s.target] = true
	case dynObject:
		for _, p := range s.properties {
			if err := r.register(p.Schema); err != nil {
				return err
			}
		}
	case dynUnion:
		for _, a := range s.alts {
			if err := r.register(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve follows alias chains from name to a concrete node name.
func (r *resolution) resolve(name string) (string, error) {
	chain := []string{name}
	for depth := 0; ; depth++ {
		node := r.named[name]
		if node.kind != dynAlias {
			return name, nil
		}
		if depth >= r.maxDepth {
			return "", buildError(ReasonReferenceCycle, chain,
				fmt.Sprintf("alias chain exceeds resolution depth %d", r.maxDepth))
		}
		name = node.target
		chain = append(chain, name)
	}
}

func (r *resolution) descriptorFor(s DynamicSchema) (*Descriptor, error) {
	var name string
	switch s.kind {
	case dynReference, dynAlias:
		name = s.target
		if s.kind == dynAlias {
			name = s.name
		}
	case dynObject, dynEnum, dynUnion:
		name = s.name
	default:
		return nil, fmt.Errorf("expected a named schema")
	}
	resolved, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return r.descs[resolved], nil
}

func (r *resolution) fill(s DynamicSchema) error {
	d := r.descs[s.name]
	switch s.kind {
	case dynObject:
		props := make([]Property, 0, len(s.properties))
		for _, dp := range s.properties {
			typeName, schema, guides, err := r.propertyType(dp.Schema)
			if err != nil {
				return err
			}
			props = append(props, Property{
				Name:        dp.Name,
				Description: dp.Description,
				TypeName:    typeName,
				Optional:    dp.Optional,
				Guides:      guides,
				Format:      dp.Format,
				Schema:      schema,
			})
		}
		return d.setProperties(props)
	case dynEnum:
		return d.setChoices(s.choices)
	case dynUnion:
		alts := make([]*Descriptor, 0, len(s.alts))
		for _, a := range s.alts {
			ad, err := r.descriptorFor(a)
			if err != nil {
				if _, ok := err.(*SchemaBuildError); ok {
					return err
				}
				return buildError(ReasonEmpty, []string{s.name}, "union alternatives must be named schemas")
			}
			alts = append(alts, ad)
		}
		return d.setAlternatives(alts)
	case dynAlias:
		_, err := r.resolve(s.name)
		return err
	}
	return nil
}

// propertyType maps a property schema to its type name, the descriptor at
// the base of that type and the guides that apply to the property.
func (r *resolution) propertyType(s DynamicSchema) (string, *Descriptor, []Guide, error) {
	switch s.kind {
	case dynPrimitive:
		if IsPrimitive(s.typeName) {
			return s.typeName, nil, s.guides, nil
		}
		d, err := r.descriptorFor(Reference(s.typeName))
		if err != nil {
			return "", nil, nil, err
		}
		return d.name, d, s.guides, nil
	case dynArray:
		elemType, elemSchema, elemGuides, err := r.propertyType(*s.of)
		if err != nil {
			return "", nil, nil, err
		}
		guides := append([]Guide(nil), s.guides...)
		for _, g := range elemGuides {
			guides = append(guides, Element(g))
		}
		return ArrayOf(elemType), elemSchema, guides, nil
	default:
		d, err := r.descriptorFor(s)
		if err != nil {
			return "", nil, nil, err
		}
		return d.name, d, nil, nil
	}
}

// checkCycles rejects graphs that can never be finitely generated: objects
// linked in a cycle of required, non-array properties, and unions that
// contain themselves as an alternative.
func (r *resolution) checkCycles() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Descriptor]int)
	var stack []string

	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		color[d] = grey
		stack = append(stack, d.name)
		for _, next := range requiredEdges(d) {
			switch color[next] {
			case grey:
				return buildError(ReasonReferenceCycle, cyclePath(stack, next.name),
					"required properties form a cycle that can never be completed")
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[d] = black
		return nil
	}

	for _, name := range r.order {
		d, ok := r.descs[name]
		if !ok || color[d] != white {
			continue
		}
		if err := visit(d); err != nil {
			return err
		}
	}
	return nil
}

func requiredEdges(d *Descriptor) []*Descriptor {
	var out []*Descriptor
	switch d.kind {
	case KindObject:
		for _, p := range d.properties {
			if p.Optional || p.IsArray() || p.Schema == nil || p.Schema.kind == KindEnum {
				continue
			}
			out = append(out, p.Schema)
		}
	case KindUnion:
		for _, a := range d.alts {
			if a.kind == KindUnion {
				out = append(out, a)
			}
		}
	}
	return out
}

func cyclePath(stack []string, closing string) []string {
	for i, name := range stack {
		if name == closing {
			out := append([]string(nil), stack[i:]...)
			return append(out, closing)
		}
	}
	return append(append([]string(nil), stack...), closing)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DynamicDefinitions returns d and every descriptor reachable from it as
// dynamic nodes, so a built descriptor can be defined into another Builder.
// The first node describes d.
func (d *Descriptor) DynamicDefinitions() []DynamicSchema {
	seen := map[string]bool{d.name: true}
	queue := []*Descriptor{d}
	var out []DynamicSchema

	visit := func(next *Descriptor) {
		if next != nil && !seen[next.name] {
			seen[next.name] = true
			queue = append(queue, next)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		switch cur.kind {
		case KindObject:
			props := make([]DynamicProperty, 0, len(cur.properties))
			for _, p := range cur.properties {
				props = append(props, DynamicProperty{
					Name:        p.Name,
					Description: p.Description,
					Schema:      dynamicType(p.TypeName, p.Guides),
					Optional:    p.Optional,
					Format:      p.Format,
				})
				visit(p.Schema)
			}
			out = append(out, DynamicObject(cur.name, cur.description, props...))
		case KindEnum:
			out = append(out, DynamicEnum(cur.name, cur.description, cur.choices...))
		case KindUnion:
			alts := make([]DynamicSchema, 0, len(cur.alts))
			for _, a := range cur.alts {
				alts = append(alts, Reference(a.name))
				visit(a)
			}
			out = append(out, DynamicUnion(cur.name, cur.description, alts...))
		}
	}
	return out
}

// dynamicType inverts propertyType: Element guides move back onto the
// element node.
func dynamicType(typeName string, guides []Guide) DynamicSchema {
	if elem, ok := ElementType(typeName); ok {
		var outer, inner []Guide
		for _, g := range guides {
			if g.kind == GuideElement {
				inner = append(inner, *g.inner)
				continue
			}
			outer = append(outer, g)
		}
		return DynamicArray(dynamicType(elem, inner), outer...)
	}
	if IsPrimitive(typeName) {
		return Primitive(typeName, guides...)
	}
	return Reference(typeName)
}
