package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Definitions is a declarative set of named schemas, loaded from YAML or
// JSON and resolved through a Builder.
type Definitions struct {
	Root        string       `yaml:"root" json:"root"`
	Definitions []Definition `yaml:"definitions" json:"definitions"`
}

// Definition declares one named schema.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Kind        string `yaml:"kind" json:"kind"` // "object", "enum", "union" or "alias"
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Properties   []PropertyDefinition `yaml:"properties,omitempty" json:"properties,omitempty"`
	Choices      []string             `yaml:"choices,omitempty" json:"choices,omitempty"`
	Alternatives []string             `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`
	Target       string               `yaml:"target,omitempty" json:"target,omitempty"`
}

// PropertyDefinition declares one object property. Type uses the property
// type syntax: a primitive, a schema name, or [T] for arrays.
type PropertyDefinition struct {
	Name        string           `yaml:"name" json:"name"`
	Type        string           `yaml:"type" json:"type"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Optional    bool             `yaml:"optional,omitempty" json:"optional,omitempty"`
	Format      string           `yaml:"format,omitempty" json:"format,omitempty"`
	Guides      *GuideDefinition `yaml:"guides,omitempty" json:"guides,omitempty"`
	// Items holds guides applied to every array element.
	Items *GuideDefinition `yaml:"items,omitempty" json:"items,omitempty"`
}

// GuideDefinition declares the guides of a property.
type GuideDefinition struct {
	Minimum  *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum  *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`
	Pattern  string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	AnyOf    []string `yaml:"any_of,omitempty" json:"any_of,omitempty"`
	MinCount *int     `yaml:"min_count,omitempty" json:"min_count,omitempty"`
	MaxCount *int     `yaml:"max_count,omitempty" json:"max_count,omitempty"`
	Count    *int     `yaml:"count,omitempty" json:"count,omitempty"`
}

// Guides converts the definition into guides.
func (g *GuideDefinition) Guides() []Guide {
	if g == nil {
		return nil
	}
	var out []Guide
	switch {
	case g.Minimum != nil && g.Maximum != nil:
		out = append(out, Range(*g.Minimum, *g.Maximum))
	case g.Minimum != nil:
		out = append(out, Minimum(*g.Minimum))
	case g.Maximum != nil:
		out = append(out, Maximum(*g.Maximum))
	}
	if g.Pattern != "" {
		out = append(out, Pattern(g.Pattern))
	}
	if len(g.AnyOf) > 0 {
		out = append(out, AnyOf(g.AnyOf...))
	}
	if g.MinCount != nil {
		out = append(out, MinCount(*g.MinCount))
	}
	if g.MaxCount != nil {
		out = append(out, MaxCount(*g.MaxCount))
	}
	if g.Count != nil {
		out = append(out, Count(*g.Count))
	}
	return out
}

// LoadDefinitionsFile reads definitions from a .yaml, .yml or .json file.
func LoadDefinitionsFile(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema definition file: %w", err)
	}

	format := detectFormat(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	return LoadDefinitions(data, format)
}

// LoadDefinitions parses raw bytes in the given format ("yaml" or "json").
func LoadDefinitions(data []byte, format string) (*Definitions, error) {
	var defs Definitions

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}

	return &defs, nil
}

// detectFormat returns "yaml" or "json" based on file extension, or "" if unknown.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

// Build resolves the definitions with root as the entry point. An empty root
// falls back to the Root field.
func (d *Definitions) Build(root string, opts ...BuilderOption) (*Descriptor, error) {
	if root == "" {
		root = d.Root
	}
	if root == "" {
		return nil, buildError(ReasonEmpty, nil, "no root schema named")
	}

	b := NewBuilder(opts...)
	for _, def := range d.Definitions {
		node, err := def.dynamic()
		if err != nil {
			return nil, err
		}
		b.Define(node)
	}
	return b.Build(Reference(root))
}

func (def Definition) dynamic() (DynamicSchema, error) {
	switch strings.ToLower(def.Kind) {
	case "object", "":
		props := make([]DynamicProperty, 0, len(def.Properties))
		for _, p := range def.Properties {
			props = append(props, DynamicProperty{
				Name:        p.Name,
				Description: p.Description,
				Schema:      propertySchema(p.Type, p.Guides.Guides(), p.Items.Guides()),
				Optional:    p.Optional,
				Format:      p.Format,
			})
		}
		return DynamicObject(def.Name, def.Description, props...), nil
	case "enum":
		return DynamicEnum(def.Name, def.Description, def.Choices...), nil
	case "union":
		alts := make([]DynamicSchema, 0, len(def.Alternatives))
		for _, a := range def.Alternatives {
			alts = append(alts, Reference(a))
		}
		return DynamicUnion(def.Name, def.Description, alts...), nil
	case "alias":
		return Alias(def.Name, def.Target), nil
	}
	return DynamicSchema{}, buildError(ReasonEmpty, []string{def.Name}, fmt.Sprintf("unknown schema kind %q", def.Kind))
}

// propertySchema turns the property type syntax into a dynamic node. Guides
// attach to the outermost level and items guides to the innermost element.
// Non-primitive names become references.
func propertySchema(typeName string, guides, items []Guide) DynamicSchema {
	if elem, ok := ElementType(strings.TrimSpace(typeName)); ok {
		inner := propertySchema(elem, nil, items)
		return DynamicArray(inner, guides...)
	}
	all := append(append([]Guide(nil), guides...), items...)
	return Primitive(strings.TrimSpace(typeName), all...)
}
