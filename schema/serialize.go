package schema

import (
	"bytes"

	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Wire is an ordered JSON object in the schema wire format.
type Wire = orderedmap.OrderedMap[string, any]

// Serialize renders d in the stable wire format. Repeated calls produce
// byte-identical output.
func (d *Descriptor) Serialize() ([]byte, error) {
	return json.Marshal(d.Wire())
}

// SerializeIndent is Serialize with two-space indentation.
func (d *Descriptor) SerializeIndent() ([]byte, error) {
	raw, err := d.Serialize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return d.Serialize()
}

// Wire returns the ordered wire representation of d. Each node carries
// title, type, an optional description and then either properties with
// required or anyOf. Referenced descriptors are emitted once under a
// root-level $defs in order of first reference; references to the root
// itself use "#".
func (d *Descriptor) Wire() *Wire {
	enc := &wireEncoder{root: d, seen: map[string]bool{d.name: true}}
	node := enc.node(d)

	defs := orderedmap.New[string, any]()
	for len(enc.queue) > 0 {
		next := enc.queue[0]
		enc.queue = enc.queue[1:]
		defs.Set(next.name, enc.node(next))
	}
	if defs.Len() > 0 {
		node.Set("$defs", defs)
	}
	return node
}

type wireEncoder struct {
	root  *Descriptor
	seen  map[string]bool
	queue []*Descriptor
}

func (e *wireEncoder) node(d *Descriptor) *Wire {
	w := orderedmap.New[string, any]()
	w.Set("title", d.name)
	w.Set("type", wireType(d))
	if d.description != "" {
		w.Set("description", d.description)
	}

	switch d.kind {
	case KindObject:
		props := orderedmap.New[string, any]()
		required := make([]string, 0, len(d.properties))
		for _, p := range d.properties {
			props.Set(p.Name, e.property(p))
			if !p.Optional {
				required = append(required, p.Name)
			}
		}
		w.Set("properties", props)
		if len(required) > 0 {
			w.Set("required", required)
		}
	case KindEnum:
		w.Set("anyOf", append([]string(nil), d.choices...))
	case KindUnion:
		alts := make([]any, 0, len(d.alts))
		for _, a := range d.alts {
			alts = append(alts, e.node(a))
		}
		w.Set("anyOf", alts)
	}
	return w
}

// wireType is "string" for enumerations and unions made only of them, and
// "object" otherwise.
func wireType(d *Descriptor) string {
	switch d.kind {
	case KindEnum:
		return "string"
	case KindUnion:
		for _, a := range d.alts {
			if wireType(a) != "string" {
				return "object"
			}
		}
		return "string"
	}
	return "object"
}

func (e *wireEncoder) property(p Property) *Wire {
	w := orderedmap.New[string, any]()
	if p.Description != "" {
		w.Set("description", p.Description)
	}
	e.typeInfo(w, p, p.TypeName, p.Guides)
	return w
}

// typeInfo writes the type fields for typeName into w, descending into array
// items. Guides written against the declared type land on the outer node;
// Element guides land on items.
func (e *wireEncoder) typeInfo(w *Wire, p Property, typeName string, guides []Guide) {
	if elem, ok := ElementType(typeName); ok {
		w.Set("type", "array")
		items := orderedmap.New[string, any]()
		var inner []Guide
		for _, g := range guides {
			if g.kind == GuideElement {
				inner = append(inner, *g.inner)
			}
		}
		e.typeInfo(items, p, elem, inner)
		w.Set("items", items)
		writeGuides(w, guides)
		return
	}

	if IsPrimitive(typeName) {
		w.Set("type", typeName)
		if p.Format != "" && typeName == TypeString {
			w.Set("format", p.Format)
		}
	} else if p.Schema != nil {
		w.Set("$ref", e.ref(p.Schema))
	}
	writeGuides(w, guides)
}

func (e *wireEncoder) ref(d *Descriptor) string {
	if d == e.root {
		return "#"
	}
	if !e.seen[d.name] {
		e.seen[d.name] = true
		e.queue = append(e.queue, d)
	}
	return "#/$defs/" + d.name
}

// guideSet is the conjunction of a property's guides folded into JSON
// Schema keywords. Bounds are tightened; every pattern is kept.
type guideSet struct {
	min, max           *float64
	minItems, maxItems *int
	patterns           []string
	enum               []string
	enumSet            bool
}

func foldGuides(guides []Guide) guideSet {
	var gs guideSet
	for _, g := range guides {
		switch g.kind {
		case GuideRange:
			if g.min != nil && (gs.min == nil || *g.min > *gs.min) {
				v := *g.min
				gs.min = &v
			}
			if g.max != nil && (gs.max == nil || *g.max < *gs.max) {
				v := *g.max
				gs.max = &v
			}
		case GuidePattern:
			gs.patterns = append(gs.patterns, g.expr)
		case GuideAnyOf:
			if !gs.enumSet {
				gs.enum = append([]string(nil), g.values...)
				gs.enumSet = true
				continue
			}
			gs.enum = intersect(gs.enum, g.values)
		case GuideMinCount, GuideMaxCount, GuideCount:
			n := g.n
			if g.kind != GuideMaxCount && (gs.minItems == nil || n > *gs.minItems) {
				gs.minItems = &n
			}
			if g.kind != GuideMinCount && (gs.maxItems == nil || n < *gs.maxItems) {
				gs.maxItems = &n
			}
		}
	}
	return gs
}

// writeGuides folds guides into w. Patterns past the first go to allOf so
// no guide is lost.
func writeGuides(w *Wire, guides []Guide) {
	gs := foldGuides(guides)
	if gs.min != nil {
		w.Set("minimum", *gs.min)
	}
	if gs.max != nil {
		w.Set("maximum", *gs.max)
	}
	if len(gs.patterns) > 0 {
		w.Set("pattern", gs.patterns[0])
	}
	if gs.enumSet {
		w.Set("enum", gs.enum)
	}
	if gs.minItems != nil {
		w.Set("minItems", *gs.minItems)
	}
	if gs.maxItems != nil {
		w.Set("maxItems", *gs.maxItems)
	}
	if len(gs.patterns) > 1 {
		all := make([]any, 0, len(gs.patterns)-1)
		for _, p := range gs.patterns[1:] {
			extra := orderedmap.New[string, any]()
			extra.Set("pattern", p)
			all = append(all, extra)
		}
		w.Set("allOf", all)
	}
}

func intersect(a, b []string) []string {
	keep := make(map[string]bool, len(b))
	for _, s := range b {
		keep[s] = true
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if keep[s] {
			out = append(out, s)
		}
	}
	return out
}
