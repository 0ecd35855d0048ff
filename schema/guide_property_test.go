package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/generable/content"
)

func TestProperty_RangeIsInclusive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-1000, 1000).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 1000).Draw(rt, "width")
		x := rapid.IntRange(-3000, 3000).Draw(rt, "x")

		err := Range(float64(lo), float64(hi)).Check(content.Number(float64(x)))
		if x >= lo && x <= hi {
			assert.NoError(rt, err)
		} else {
			assert.Error(rt, err)
		}
	})
}

func TestProperty_CountIsMinAndMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "n")
		length := rapid.IntRange(0, 8).Draw(rt, "length")
		elems := make([]content.Value, length)
		for i := range elems {
			elems[i] = content.Null()
		}
		v := content.Array(elems...)

		exact := Count(n).Check(v) == nil
		both := MinCount(n).Check(v) == nil && MaxCount(n).Check(v) == nil
		assert.Equal(rt, both, exact)
		assert.Equal(rt, length == n, exact)
	})
}

func TestProperty_AnyOfIsExactMembership(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOfN(rapid.StringMatching(`[a-cA-C]{1,2}`), 1, 4).Draw(rt, "values")
		probe := rapid.StringMatching(`[a-cA-C]{1,2}`).Draw(rt, "probe")

		member := false
		for _, v := range values {
			if v == probe {
				member = true
			}
		}
		err := AnyOf(values...).Check(content.String(probe))
		assert.Equal(rt, member, err == nil)
	})
}
