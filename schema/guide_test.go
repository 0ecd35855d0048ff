package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/content"
)

func numbers(ns ...float64) content.Value {
	elems := make([]content.Value, len(ns))
	for i, n := range ns {
		elems[i] = content.Number(n)
	}
	return content.Array(elems...)
}

func TestGuide_Enforcement(t *testing.T) {
	tests := []struct {
		name  string
		guide Guide
		value content.Value
		ok    bool
	}{
		{"range rejects above", Range(0, 120), content.Number(121), false},
		{"range rejects below", Range(0, 120), content.Number(-1), false},
		{"range accepts lower bound", Range(0, 120), content.Number(0), true},
		{"range accepts upper bound", Range(0, 120), content.Number(120), true},
		{"range rejects non-number", Range(0, 120), content.String("5"), false},
		{"minimum", Minimum(10), content.Number(9.5), false},
		{"maximum", Maximum(10), content.Number(10), true},
		{"pattern rejects", Pattern("^[a-z]+$"), content.String("Abc"), false},
		{"pattern accepts", Pattern("^[a-z]+$"), content.String("abc"), true},
		{"pattern is a full match", Pattern("[a-z]+"), content.String("abc1"), false},
		{"anyOf rejects", AnyOf("a", "b"), content.String("c"), false},
		{"anyOf is case-sensitive", AnyOf("a", "b"), content.String("A"), false},
		{"anyOf accepts", AnyOf("a", "b"), content.String("b"), true},
		{"count rejects short", Count(3), numbers(1, 2), false},
		{"count rejects long", Count(3), numbers(1, 2, 3, 4), false},
		{"count accepts", Count(3), numbers(1, 2, 3), true},
		{"minCount", MinCount(1), numbers(), false},
		{"maxCount", MaxCount(2), numbers(1, 2), true},
		{"element", Element(Range(0, 1)), numbers(0, 1, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guide.Check(tt.value)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var v *Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.guide.String(), v.Constraint)
		})
	}
}

func TestGuide_ElementReportsIndex(t *testing.T) {
	err := Element(Range(0, 1)).Check(numbers(0, 1, 2))
	var v *Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "[2]", v.Property)
	assert.Equal(t, "range(0, 1)", v.Constraint)
	assert.True(t, content.Number(2).Equal(v.Value))
}

func TestGuide_String(t *testing.T) {
	assert.Equal(t, "range(0, 120)", Range(0, 120).String())
	assert.Equal(t, "minimum(1.5)", Minimum(1.5).String())
	assert.Equal(t, "maximum(9)", Maximum(9).String())
	assert.Equal(t, `pattern("^[a-z]+$")`, Pattern("^[a-z]+$").String())
	assert.Equal(t, `anyOf("a", "b")`, AnyOf("a", "b").String())
	assert.Equal(t, "count(3)", Count(3).String())
	assert.Equal(t, "minCount(1)", MinCount(1).String())
	assert.Equal(t, "element(maxCount(2))", Element(MaxCount(2)).String())
}

func TestGuide_Legality(t *testing.T) {
	tests := []struct {
		name     string
		guide    Guide
		typeName string
		legal    bool
	}{
		{"range on integer", Range(0, 1), TypeInteger, true},
		{"range on number", Minimum(0), TypeNumber, true},
		{"range on string", Range(0, 1), TypeString, false},
		{"pattern on string", Pattern("a+"), TypeString, true},
		{"pattern on integer", Pattern("a+"), TypeInteger, false},
		{"anyOf on string", AnyOf("x"), TypeString, true},
		{"anyOf on boolean", AnyOf("x"), TypeBoolean, false},
		{"count on array", Count(2), ArrayOf(TypeString), true},
		{"count on string", Count(2), TypeString, false},
		{"element on array", Element(Range(0, 1)), ArrayOf(TypeInteger), true},
		{"element with illegal inner", Element(Pattern("a")), ArrayOf(TypeInteger), false},
		{"element on scalar", Element(Range(0, 1)), TypeInteger, false},
		{"invalid regex", Pattern("("), TypeString, false},
		{"inverted range", Range(5, 1), TypeInteger, false},
		{"negative count", MinCount(-1), ArrayOf(TypeString), false},
		{"empty anyOf", AnyOf(), TypeString, false},
		{"zero guide", Guide{}, TypeString, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guide.legalFor(tt.typeName)
			if tt.legal {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGuide_Accessors(t *testing.T) {
	min, max := Range(1, 2).Bounds()
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 1.0, *min)
	assert.Equal(t, 2.0, *max)

	_, max = Minimum(3).Bounds()
	assert.Nil(t, max)

	assert.Equal(t, "a+", Pattern("a+").Expr())
	assert.Equal(t, []string{"x", "y"}, AnyOf("x", "y").Values())
	assert.Equal(t, 4, Count(4).N())

	inner, ok := Element(Count(1)).Inner()
	require.True(t, ok)
	assert.Equal(t, GuideCount, inner.Kind())
	_, ok = Count(1).Inner()
	assert.False(t, ok)
}
