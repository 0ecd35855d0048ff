package schema

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema renders d as a draft 2020-12 JSON Schema for provider
// adapters that want the standard shape: enumerations become enum, unions
// become anyOf and guides become minimum, maximum, pattern, enum, minItems
// and maxItems.
func (d *Descriptor) ToJSONSchema() *jsonschema.Schema {
	c := &jsonSchemaConverter{root: d, seen: map[string]bool{d.name: true}}
	s := c.node(d)
	s.Version = jsonschema.Version

	defs := jsonschema.Definitions{}
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		defs[next.name] = c.node(next)
	}
	if len(defs) > 0 {
		s.Definitions = defs
	}
	return s
}

type jsonSchemaConverter struct {
	root  *Descriptor
	seen  map[string]bool
	queue []*Descriptor
}

func (c *jsonSchemaConverter) node(d *Descriptor) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:       d.name,
		Description: d.description,
	}
	switch d.kind {
	case KindObject:
		s.Type = "object"
		s.Properties = jsonschema.NewProperties()
		for _, p := range d.properties {
			ps := c.typeInfo(p, p.TypeName, p.Guides)
			ps.Description = p.Description
			s.Properties.Set(p.Name, ps)
		}
		s.Required = d.Required()
	case KindEnum:
		s.Type = "string"
		s.Enum = make([]any, len(d.choices))
		for i, choice := range d.choices {
			s.Enum[i] = choice
		}
	case KindUnion:
		for _, a := range d.alts {
			s.AnyOf = append(s.AnyOf, c.node(a))
		}
	}
	return s
}

func (c *jsonSchemaConverter) typeInfo(p Property, typeName string, guides []Guide) *jsonschema.Schema {
	s := &jsonschema.Schema{}
	if elem, ok := ElementType(typeName); ok {
		var inner []Guide
		for _, g := range guides {
			if g.kind == GuideElement {
				inner = append(inner, *g.inner)
			}
		}
		s.Type = "array"
		s.Items = c.typeInfo(p, elem, inner)
	} else if IsPrimitive(typeName) {
		s.Type = typeName
		if typeName == TypeString {
			s.Format = p.Format
		}
	} else if p.Schema != nil {
		s.Ref = c.ref(p.Schema)
	}

	gs := foldGuides(guides)
	if gs.min != nil {
		s.Minimum = jsonNumber(*gs.min)
	}
	if gs.max != nil {
		s.Maximum = jsonNumber(*gs.max)
	}
	if len(gs.patterns) > 0 {
		s.Pattern = gs.patterns[0]
		for _, extra := range gs.patterns[1:] {
			s.AllOf = append(s.AllOf, &jsonschema.Schema{Pattern: extra})
		}
	}
	if gs.enumSet {
		s.Enum = make([]any, len(gs.enum))
		for i, v := range gs.enum {
			s.Enum[i] = v
		}
	}
	if gs.minItems != nil {
		n := uint64(*gs.minItems)
		s.MinItems = &n
	}
	if gs.maxItems != nil {
		n := uint64(*gs.maxItems)
		s.MaxItems = &n
	}
	return s
}

func (c *jsonSchemaConverter) ref(d *Descriptor) string {
	if d == c.root {
		return "#"
	}
	if !c.seen[d.name] {
		c.seen[d.name] = true
		c.queue = append(c.queue, d)
	}
	return "#/$defs/" + d.name
}

func jsonNumber(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}
