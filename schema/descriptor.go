package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Primitive property type names.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Common string formats carried by Property.Format.
const (
	FormatDateTime = "date-time"
	FormatDate     = "date"
	FormatTime     = "time"
	FormatEmail    = "email"
	FormatURI      = "uri"
	FormatUUID     = "uuid"
	FormatHostname = "hostname"
	FormatIPv4     = "ipv4"
	FormatIPv6     = "ipv6"
)

// IsPrimitive reports whether typeName names a primitive type.
func IsPrimitive(typeName string) bool {
	switch typeName {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// ArrayOf returns the type name of an array of elem.
func ArrayOf(elem string) string { return "[" + elem + "]" }

// ElementType strips one array level from typeName.
func ElementType(typeName string) (string, bool) {
	if len(typeName) >= 2 && strings.HasPrefix(typeName, "[") && strings.HasSuffix(typeName, "]") {
		return typeName[1 : len(typeName)-1], true
	}
	return "", false
}

// baseType strips every array level from typeName.
func baseType(typeName string) string {
	for {
		elem, ok := ElementType(typeName)
		if !ok {
			return typeName
		}
		typeName = elem
	}
}

// Kind identifies the shape a Descriptor describes.
type Kind uint8

const (
	KindObject Kind = iota + 1
	KindEnum
	KindUnion
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Property is one ordered member of an object descriptor.
type Property struct {
	Name        string
	Description string
	// TypeName is a primitive type, the name of another descriptor, or [T]
	// for an array of T.
	TypeName string
	Optional bool
	Guides   []Guide
	Format   string
	// Schema is the descriptor named by the base of TypeName, if any.
	Schema *Descriptor
}

// Prop declares a property of a primitive or named type.
func Prop(name, typeName string, guides ...Guide) Property {
	return Property{Name: name, TypeName: typeName, Guides: guides}
}

// ArrayProp declares an array property whose elements have elementType.
func ArrayProp(name, elementType string, guides ...Guide) Property {
	return Property{Name: name, TypeName: ArrayOf(elementType), Guides: guides}
}

// RefProp declares a property holding a value described by d.
func RefProp(name string, d *Descriptor, guides ...Guide) Property {
	return Property{Name: name, TypeName: d.Name(), Schema: d, Guides: guides}
}

// RefArrayProp declares an array property whose elements are described by d.
func RefArrayProp(name string, d *Descriptor, guides ...Guide) Property {
	return Property{Name: name, TypeName: ArrayOf(d.Name()), Schema: d, Guides: guides}
}

// Described returns a copy of p with a description.
func (p Property) Described(text string) Property {
	p.Description = text
	return p
}

// AsOptional returns a copy of p marked optional.
func (p Property) AsOptional() Property {
	p.Optional = true
	return p
}

// WithFormat returns a copy of p with a string format.
func (p Property) WithFormat(format string) Property {
	p.Format = format
	return p
}

// IsArray reports whether the property holds an array.
func (p Property) IsArray() bool {
	_, ok := ElementType(p.TypeName)
	return ok
}

// Descriptor is the immutable structural description of an expected output
// shape: an object with ordered properties, a closed enumeration of strings,
// or a union of named alternatives.
type Descriptor struct {
	name        string
	description string
	kind        Kind
	properties  []Property
	choices     []string
	alts        []*Descriptor
}

// NewObject builds an object descriptor. Guides are checked against their
// property types here.
func NewObject(name string, props ...Property) (*Descriptor, error) {
	d := &Descriptor{name: name, kind: KindObject}
	if err := d.setProperties(props); err != nil {
		return nil, err
	}
	return d, nil
}

// NewEnum builds a closed enumeration of string choices.
func NewEnum(name string, choices ...string) (*Descriptor, error) {
	d := &Descriptor{name: name, kind: KindEnum}
	if err := d.setChoices(choices); err != nil {
		return nil, err
	}
	return d, nil
}

// NewUnion builds a union of named alternatives.
func NewUnion(name string, alternatives ...*Descriptor) (*Descriptor, error) {
	d := &Descriptor{name: name, kind: KindUnion}
	if err := d.setAlternatives(alternatives); err != nil {
		return nil, err
	}
	return d, nil
}

// Must panics if err is non-nil. It is meant for package-level descriptors.
func Must(d *Descriptor, err error) *Descriptor {
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) setProperties(props []Property) error {
	if d.name == "" {
		return buildError(ReasonEmpty, nil, "object needs a name")
	}
	seen := make(map[string]bool, len(props))
	out := make([]Property, 0, len(props))
	for _, p := range props {
		if p.Name == "" {
			return buildError(ReasonEmpty, []string{d.name}, "property without a name")
		}
		if seen[p.Name] {
			return buildError(ReasonDuplicateDefinition, []string{d.name + "." + p.Name}, "duplicate property")
		}
		seen[p.Name] = true
		if err := checkProperty(d.name, p); err != nil {
			return err
		}
		p.Guides = append([]Guide(nil), p.Guides...)
		out = append(out, p)
	}
	d.properties = out
	return nil
}

func checkProperty(owner string, p Property) error {
	if p.TypeName == "" {
		return buildError(ReasonEmpty, []string{owner + "." + p.Name}, "property without a type")
	}
	base := baseType(p.TypeName)
	if !IsPrimitive(base) {
		if p.Schema == nil {
			return buildError(ReasonUnresolvedReference, []string{base}, fmt.Sprintf("property %s.%s", owner, p.Name))
		}
		if p.Schema.name != base {
			return buildError(ReasonUnresolvedReference, []string{base},
				fmt.Sprintf("property %s.%s points at %s", owner, p.Name, p.Schema.name))
		}
	}
	for _, g := range p.Guides {
		if err := g.legalFor(p.TypeName); err != nil {
			return &SchemaBuildError{
				Reason:  ReasonInvalidGuide,
				Names:   []string{owner + "." + p.Name},
				Message: err.Error(),
				Cause:   err,
			}
		}
	}
	return nil
}

func (d *Descriptor) setChoices(choices []string) error {
	if d.name == "" || len(choices) == 0 {
		return buildError(ReasonEmpty, nonEmpty(d.name), "enumeration needs a name and at least one choice")
	}
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		if seen[c] {
			return buildError(ReasonDuplicateDefinition, []string{d.name + "." + c}, "duplicate choice")
		}
		seen[c] = true
	}
	d.choices = append([]string(nil), choices...)
	return nil
}

func (d *Descriptor) setAlternatives(alts []*Descriptor) error {
	if d.name == "" || len(alts) == 0 {
		return buildError(ReasonEmpty, nonEmpty(d.name), "union needs a name and at least one alternative")
	}
	seen := make(map[string]bool, len(alts))
	for _, a := range alts {
		if a == nil {
			return buildError(ReasonEmpty, []string{d.name}, "nil alternative")
		}
		if seen[a.name] {
			return buildError(ReasonDuplicateDefinition, []string{d.name + "." + a.name}, "duplicate alternative")
		}
		seen[a.name] = true
	}
	d.alts = append([]*Descriptor(nil), alts...)
	return nil
}

func nonEmpty(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

// WithDescription returns a copy of d carrying a description.
func (d *Descriptor) WithDescription(text string) *Descriptor {
	cp := *d
	cp.description = text
	return &cp
}

// Name returns the descriptor name.
func (d *Descriptor) Name() string { return d.name }

// Description returns the optional description.
func (d *Descriptor) Description() string { return d.description }

// Kind returns the descriptor kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// Properties returns a copy of the ordered properties of an object.
func (d *Descriptor) Properties() []Property {
	return append([]Property(nil), d.properties...)
}

// Property looks up a property by name.
func (d *Descriptor) Property(name string) (Property, bool) {
	for _, p := range d.properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Required returns the names of non-optional properties in order.
func (d *Descriptor) Required() []string {
	var out []string
	for _, p := range d.properties {
		if !p.Optional {
			out = append(out, p.Name)
		}
	}
	return out
}

// Choices returns a copy of the enumeration choices.
func (d *Descriptor) Choices() []string {
	return append([]string(nil), d.choices...)
}

// Alternatives returns a copy of the union alternatives.
func (d *Descriptor) Alternatives() []*Descriptor {
	return append([]*Descriptor(nil), d.alts...)
}

// Alternative looks up a union alternative by name.
func (d *Descriptor) Alternative(name string) (*Descriptor, bool) {
	for _, a := range d.alts {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

// HasPayload reports whether a union alternative carries data. Objects
// without properties are zero-payload cases.
func (d *Descriptor) HasPayload() bool {
	switch d.kind {
	case KindObject:
		return len(d.properties) > 0
	default:
		return true
	}
}

// String returns the descriptor name and kind.
func (d *Descriptor) String() string {
	return d.name + " (" + d.kind.String() + ")"
}
