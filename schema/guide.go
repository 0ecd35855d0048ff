package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/generable/content"
)

// GuideKind identifies the variant held by a Guide.
type GuideKind uint8

const (
	GuideRange GuideKind = iota + 1
	GuidePattern
	GuideAnyOf
	GuideMinCount
	GuideMaxCount
	GuideCount
	GuideElement
)

// String returns the guide kind name.
func (k GuideKind) String() string {
	switch k {
	case GuideRange:
		return "range"
	case GuidePattern:
		return "pattern"
	case GuideAnyOf:
		return "anyOf"
	case GuideMinCount:
		return "minCount"
	case GuideMaxCount:
		return "maxCount"
	case GuideCount:
		return "count"
	case GuideElement:
		return "element"
	default:
		return "guide(" + strconv.Itoa(int(k)) + ")"
	}
}

// Guide is a single validation and generation hint attached to a property.
// Guides are immutable; several guides on one property are conjunctive.
type Guide struct {
	kind    GuideKind
	min     *float64
	max     *float64
	expr    string
	re      *regexp.Regexp
	values  []string
	n       int
	inner   *Guide
	illegal error
}

// Range requires a numeric value within [min, max].
func Range(min, max float64) Guide {
	g := Guide{kind: GuideRange, min: &min, max: &max}
	if min > max {
		g.illegal = fmt.Errorf("range minimum %v exceeds maximum %v", min, max)
	}
	return g
}

// Minimum requires a numeric value of at least min.
func Minimum(min float64) Guide { return Guide{kind: GuideRange, min: &min} }

// Maximum requires a numeric value of at most max.
func Maximum(max float64) Guide { return Guide{kind: GuideRange, max: &max} }

// Pattern requires a string that fully matches expr.
func Pattern(expr string) Guide {
	g := Guide{kind: GuidePattern, expr: expr}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		g.illegal = fmt.Errorf("invalid pattern %q: %w", expr, err)
		return g
	}
	g.re = re
	return g
}

// AnyOf requires a string equal to one of values. Comparison is exact and
// case-sensitive.
func AnyOf(values ...string) Guide {
	cp := make([]string, len(values))
	copy(cp, values)
	g := Guide{kind: GuideAnyOf, values: cp}
	if len(cp) == 0 {
		g.illegal = fmt.Errorf("anyOf needs at least one value")
	}
	return g
}

// MinCount requires an array with at least n elements.
func MinCount(n int) Guide { return countGuide(GuideMinCount, n) }

// MaxCount requires an array with at most n elements.
func MaxCount(n int) Guide { return countGuide(GuideMaxCount, n) }

// Count requires an array with exactly n elements.
func Count(n int) Guide { return countGuide(GuideCount, n) }

func countGuide(kind GuideKind, n int) Guide {
	g := Guide{kind: kind, n: n}
	if n < 0 {
		g.illegal = fmt.Errorf("%s must not be negative, got %d", kind, n)
	}
	return g
}

// Element applies g to every element of an array property.
func Element(g Guide) Guide {
	inner := g
	return Guide{kind: GuideElement, inner: &inner}
}

// Kind returns the guide variant.
func (g Guide) Kind() GuideKind { return g.kind }

// Bounds returns the range bounds; a nil bound is open.
func (g Guide) Bounds() (min, max *float64) { return g.min, g.max }

// Expr returns the pattern source text as given to Pattern.
func (g Guide) Expr() string { return g.expr }

// Values returns a copy of the AnyOf alternatives.
func (g Guide) Values() []string {
	cp := make([]string, len(g.values))
	copy(cp, g.values)
	return cp
}

// N returns the bound of a count guide.
func (g Guide) N() int { return g.n }

// Inner returns the guide wrapped by Element.
func (g Guide) Inner() (Guide, bool) {
	if g.inner == nil {
		return Guide{}, false
	}
	return *g.inner, true
}

// String renders the guide, e.g. range(0, 120) or pattern("^[a-z]+$").
func (g Guide) String() string {
	switch g.kind {
	case GuideRange:
		switch {
		case g.min != nil && g.max != nil:
			return fmt.Sprintf("range(%s, %s)", formatBound(*g.min), formatBound(*g.max))
		case g.min != nil:
			return fmt.Sprintf("minimum(%s)", formatBound(*g.min))
		case g.max != nil:
			return fmt.Sprintf("maximum(%s)", formatBound(*g.max))
		}
		return "range()"
	case GuidePattern:
		return fmt.Sprintf("pattern(%q)", g.expr)
	case GuideAnyOf:
		quoted := make([]string, len(g.values))
		for i, v := range g.values {
			quoted[i] = strconv.Quote(v)
		}
		return "anyOf(" + strings.Join(quoted, ", ") + ")"
	case GuideMinCount, GuideMaxCount, GuideCount:
		return fmt.Sprintf("%s(%d)", g.kind, g.n)
	case GuideElement:
		return "element(" + g.inner.String() + ")"
	}
	return g.kind.String()
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Check tests v against the guide and returns a *Violation, or nil when v
// satisfies it. The violation's Property is left for the caller to fill,
// except for Element, which reports the failing index.
func (g Guide) Check(v content.Value) error {
	if vi := g.check(v); vi != nil {
		return vi
	}
	return nil
}

func (g Guide) check(v content.Value) *Violation {
	fail := func() *Violation {
		return &Violation{Constraint: g.String(), Value: v}
	}
	switch g.kind {
	case GuideRange:
		f, ok := number(v)
		if !ok {
			return fail()
		}
		if (g.min != nil && f < *g.min) || (g.max != nil && f > *g.max) {
			return fail()
		}
	case GuidePattern:
		if v.Kind() != content.KindString || g.re == nil || !g.re.MatchString(v.Text()) {
			return fail()
		}
	case GuideAnyOf:
		if v.Kind() != content.KindString {
			return fail()
		}
		s := v.Text()
		for _, want := range g.values {
			if s == want {
				return nil
			}
		}
		return fail()
	case GuideMinCount, GuideMaxCount, GuideCount:
		if v.Kind() != content.KindArray {
			return fail()
		}
		n := v.Len()
		if (g.kind != GuideMaxCount && n < g.n) || (g.kind != GuideMinCount && n > g.n) {
			return fail()
		}
	case GuideElement:
		if v.Kind() != content.KindArray {
			return fail()
		}
		for i, e := range v.Elements() {
			if vi := g.inner.check(e); vi != nil {
				vi.Property = joinPath(fmt.Sprintf("[%d]", i), vi.Property)
				return vi
			}
		}
	}
	return nil
}

func number(v content.Value) (float64, bool) {
	if v.Kind() != content.KindNumber {
		return 0, false
	}
	f, err := v.Float()
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// legalFor reports whether the guide may be attached to a property of the
// given type name.
func (g Guide) legalFor(typeName string) error {
	if g.illegal != nil {
		return g.illegal
	}
	elem, isArray := ElementType(typeName)
	switch g.kind {
	case GuideRange:
		if typeName == TypeInteger || typeName == TypeNumber {
			return nil
		}
	case GuidePattern, GuideAnyOf:
		if typeName == TypeString {
			return nil
		}
	case GuideMinCount, GuideMaxCount, GuideCount:
		if isArray {
			return nil
		}
	case GuideElement:
		if isArray {
			return g.inner.legalFor(elem)
		}
	default:
		return fmt.Errorf("unknown guide")
	}
	return fmt.Errorf("%s is not legal on %s", g, typeName)
}
