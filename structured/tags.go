package structured

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BaSui01/generable/schema"
)

// field is one exported struct field as seen by the generator and the
// decoders. Embedded structs without a json name are flattened.
type field struct {
	name     string
	index    []int
	typ      reflect.Type
	optional bool
	opts     tagOptions
}

var fieldCache sync.Map // map[reflect.Type][]field

// fieldsOf returns the fields of struct type t in declaration order.
func fieldsOf(t reflect.Type) ([]field, error) {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field), nil
	}
	fields, err := collectFields(t, nil)
	if err != nil {
		return nil, err
	}
	fieldCache.Store(t, fields)
	return fields, nil
}

func collectFields(t reflect.Type, parent []int) ([]field, error) {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		name, omitempty := jsonName(sf)
		if name == "-" {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && name == "" {
			nested, err := collectFields(sf.Type, index)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		opts, err := parseTagOptions(sf.Tag.Get("jsonschema"))
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		optional := omitempty || sf.Type.Kind() == reflect.Pointer || opts.optional
		if opts.required {
			optional = false
		}
		out = append(out, field{name: name, index: index, typ: sf.Type, optional: optional, opts: opts})
	}
	return out, nil
}

// jsonName extracts the name and omitempty flag from the json tag. An empty
// name means the tag did not set one.
func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	omitempty := false
	for _, p := range parts[1:] {
		if p == "omitempty" || p == "omitzero" {
			omitempty = true
		}
	}
	return parts[0], omitempty
}

// tagOptions is the parsed jsonschema tag of a field.
type tagOptions struct {
	description string
	format      string
	required    bool
	optional    bool
	// value guides apply to the innermost element, count guides to the
	// outermost array.
	value []schema.Guide
	count []schema.Guide
}

// parseTagOptions parses `jsonschema:"description=...,minimum=0,enum=a,b,required"`.
func parseTagOptions(tag string) (tagOptions, error) {
	var opts tagOptions
	var min, max *float64

	for _, part := range splitTagParts(tag) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "required":
			opts.required = true
		case "optional":
			opts.optional = true
		case "description":
			opts.description = value
		case "format":
			opts.format = value
		case "pattern":
			opts.value = append(opts.value, schema.Pattern(value))
		case "enum":
			values := strings.Split(value, ",")
			for i := range values {
				values[i] = strings.TrimSpace(values[i])
			}
			opts.value = append(opts.value, schema.AnyOf(values...))
		case "minimum", "maximum":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return opts, fmt.Errorf("jsonschema %s=%q: %w", key, value, err)
			}
			if key == "minimum" {
				min = &f
			} else {
				max = &f
			}
		case "minItems", "maxItems", "count":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("jsonschema %s=%q: %w", key, value, err)
			}
			switch key {
			case "minItems":
				opts.count = append(opts.count, schema.MinCount(n))
			case "maxItems":
				opts.count = append(opts.count, schema.MaxCount(n))
			default:
				opts.count = append(opts.count, schema.Count(n))
			}
		default:
			if !hasValue {
				return opts, fmt.Errorf("unknown jsonschema option %q", key)
			}
		}
	}

	switch {
	case min != nil && max != nil:
		opts.value = append(opts.value, schema.Range(*min, *max))
	case min != nil:
		opts.value = append(opts.value, schema.Minimum(*min))
	case max != nil:
		opts.value = append(opts.value, schema.Maximum(*max))
	}
	return opts, nil
}

var knownBoolOptions = map[string]bool{
	"required": true,
	"optional": true,
}

// splitTagParts splits a tag on commas while keeping commas that belong to a
// value, such as "enum=a,b,c" or "pattern=^a{1,3}$". A comma ends the
// current value only when the next segment is a boolean option or starts
// with an alphanumeric key followed by "=".
func splitTagParts(tag string) []string {
	var parts []string
	var current strings.Builder
	inValue := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		switch {
		case ch == '=' && !inValue:
			inValue = true
			current.WriteByte(ch)
		case ch == ',' && !inValue:
			parts = append(parts, current.String())
			current.Reset()
		case ch == ',':
			next := tag[i+1:]
			if j := strings.IndexByte(next, ','); j >= 0 {
				next = next[:j]
			}
			next = strings.TrimSpace(next)
			if knownBoolOptions[next] || startsOption(next) {
				parts = append(parts, current.String())
				current.Reset()
				inValue = false
				continue
			}
			current.WriteByte(ch)
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func startsOption(segment string) bool {
	eq := strings.IndexByte(segment, '=')
	if eq <= 0 {
		return false
	}
	for _, c := range segment[:eq] {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
