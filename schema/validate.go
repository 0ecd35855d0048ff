package schema

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"strings"

	"github.com/BaSui01/generable/content"
)

// formatCheckers holds the built-in string format checks. The map is never
// written after init.
var formatCheckers = map[string]func(string) bool{
	FormatEmail:    regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`).MatchString,
	FormatURI:      regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`).MatchString,
	FormatUUID:     regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`).MatchString,
	FormatDateTime: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`).MatchString,
	FormatDate:     regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`).MatchString,
	FormatTime:     regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`).MatchString,
	FormatIPv4: func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
	},
	FormatIPv6: func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && strings.Contains(s, ":")
	},
	FormatHostname: func(s string) bool {
		return len(s) <= 253 && hostnamePattern.MatchString(s)
	},
}

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Validate checks a complete value against d: kinds, required presence,
// enumeration and union membership, formats and every guide. It returns
// ErrIncompleteValue for values that are still streaming and Violations when
// any constraint fails.
func (d *Descriptor) Validate(v content.Value) error {
	if !v.IsComplete() {
		return ErrIncompleteValue
	}
	var vs Violations
	d.validate(v, "", &vs)
	if len(vs) > 0 {
		return vs
	}
	return nil
}

func (d *Descriptor) validate(v content.Value, path string, vs *Violations) {
	switch d.kind {
	case KindObject:
		d.validateObject(v, path, vs)
	case KindEnum:
		d.validateEnum(v, path, vs)
	case KindUnion:
		d.validateUnion(v, path, vs)
	}
}

func (d *Descriptor) validateObject(v content.Value, path string, vs *Violations) {
	if v.Kind() != content.KindStructure {
		*vs = append(*vs, &Violation{Property: path, Constraint: "type(object)", Value: v})
		return
	}
	for _, p := range d.properties {
		propPath := joinPath(path, p.Name)
		pv, ok := v.Property(p.Name)
		if !ok || pv.IsNull() {
			if !p.Optional {
				*vs = append(*vs, &Violation{Property: propPath, Constraint: "required", Value: pv})
			}
			continue
		}
		validateProperty(p, p.TypeName, pv, propPath, vs)
	}
}

func (d *Descriptor) validateEnum(v content.Value, path string, vs *Violations) {
	if v.Kind() == content.KindString {
		s := v.Text()
		for _, c := range d.choices {
			if c == s {
				return
			}
		}
	}
	*vs = append(*vs, &Violation{Property: path, Constraint: AnyOf(d.choices...).String(), Value: v})
}

// validateUnion accepts the {"case": name, "value": payload} form, a bare
// string naming an enumeration choice, or a value that satisfies one
// alternative outright.
func (d *Descriptor) validateUnion(v content.Value, path string, vs *Violations) {
	if c, payload, ok := unionCase(v); ok {
		if alt, found := d.Alternative(c); found {
			if !alt.HasPayload() {
				if payload.Kind() == content.KindString && payload.Text() == "" {
					return
				}
				*vs = append(*vs, &Violation{Property: joinPath(path, "value"), Constraint: `anyOf("")`, Value: payload})
				return
			}
			alt.validate(payload, joinPath(path, "value"), vs)
			return
		}
	}
	for _, alt := range d.alts {
		var scratch Violations
		alt.validate(v, path, &scratch)
		if len(scratch) == 0 {
			return
		}
	}
	names := make([]string, len(d.alts))
	for i, a := range d.alts {
		names[i] = a.name
	}
	*vs = append(*vs, &Violation{Property: path, Constraint: "oneOf(" + strings.Join(names, ", ") + ")", Value: v})
}

func unionCase(v content.Value) (string, content.Value, bool) {
	if v.Kind() != content.KindStructure || v.Len() != 2 {
		return "", content.Value{}, false
	}
	c, ok := v.Property("case")
	if !ok || c.Kind() != content.KindString {
		return "", content.Value{}, false
	}
	payload, ok := v.Property("value")
	if !ok {
		return "", content.Value{}, false
	}
	return c.Text(), payload, true
}

func validateProperty(p Property, typeName string, v content.Value, path string, vs *Violations) {
	before := len(*vs)
	if !checkType(p, typeName, v, path, vs) {
		return
	}
	// Guides are written against the declared property type, so they only
	// apply at the outermost level.
	if typeName != p.TypeName {
		return
	}
	nested := (*vs)[before:]
	for _, g := range p.Guides {
		vi := g.check(v)
		if vi == nil {
			continue
		}
		vi.Property = joinPath(path, vi.Property)
		// An element already reported by the type check is not reported twice.
		if reported(nested, vi.Property) {
			continue
		}
		*vs = append(*vs, vi)
	}
}

func reported(vs Violations, property string) bool {
	for _, v := range vs {
		if v.Property == property {
			return true
		}
	}
	return false
}

// checkType reports whether v has the kind typeName expects, appending a
// violation when it does not. Nested values are validated recursively.
func checkType(p Property, typeName string, v content.Value, path string, vs *Violations) bool {
	mismatch := func() bool {
		*vs = append(*vs, &Violation{Property: path, Constraint: "type(" + typeName + ")", Value: v})
		return false
	}
	if elem, ok := ElementType(typeName); ok {
		if v.Kind() != content.KindArray {
			return mismatch()
		}
		for i, e := range v.Elements() {
			validateProperty(p, elem, e, fmt.Sprintf("%s[%d]", path, i), vs)
		}
		return true
	}
	switch typeName {
	case TypeString:
		if v.Kind() != content.KindString {
			return mismatch()
		}
		if check, ok := formatCheckers[p.Format]; ok && !check(v.Text()) {
			*vs = append(*vs, &Violation{Property: path, Constraint: "format(" + p.Format + ")", Value: v})
		}
	case TypeInteger:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) {
			return mismatch()
		}
	case TypeNumber:
		if _, ok := number(v); !ok {
			return mismatch()
		}
	case TypeBoolean:
		if v.Kind() != content.KindBool {
			return mismatch()
		}
	default:
		if p.Schema == nil {
			return mismatch()
		}
		p.Schema.validate(v, path, vs)
	}
	return true
}

func joinPath(base, segment string) string {
	switch {
	case base == "":
		return segment
	case segment == "":
		return base
	case strings.HasPrefix(segment, "["):
		return base + segment
	}
	return base + "." + segment
}
