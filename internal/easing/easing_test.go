package easing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ixengine/internal/ir"
)

func TestApplyEndpointsExact(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			e := ir.Easing{Name: name}
			assert.Equal(t, 0.0, ApplyEasing(e, 0))
			assert.Equal(t, 1.0, ApplyEasing(e, 1))
		})
	}
}

func TestApplyClampsOutOfRange(t *testing.T) {
	fn, ok := Lookup("inQuad")
	require.True(t, ok)
	assert.Equal(t, 0.0, Apply(fn, -0.5))
	assert.Equal(t, 1.0, Apply(fn, 1.5))
}

func TestApplyRoundsToPrecision(t *testing.T) {
	for _, name := range Names() {
		fn, _ := Lookup(name)
		for _, p := range []float64{0.1, 0.33, 0.5, 0.77, 0.99} {
			v := Apply(fn, p)
			scaled := v / Precision
			assert.InDelta(t, math.Round(scaled), scaled, 1e-6, "%s(%v)=%v", name, p, v)
		}
	}
}

func TestUnknownEasingIsLinear(t *testing.T) {
	assert.Nil(t, Resolve(ir.Easing{Name: "wobble"}))
	assert.Equal(t, 0.25, ApplyEasing(ir.Easing{Name: "wobble"}, 0.25))
	assert.Equal(t, 0.25, ApplyEasing(ir.Easing{}, 0.25))
}

func TestNamedCurveShapes(t *testing.T) {
	tests := []struct {
		name string
		at   float64
		want float64
	}{
		{"linear", 0.5, 0.5},
		{"inQuad", 0.5, 0.25},
		{"outQuad", 0.5, 0.75},
		{"inCubic", 0.5, 0.125},
		{"inOutQuad", 0.25, 0.125},
		{"outBounce", 0.5, 0.7656},
		{"bounce", 0.5, 0.7656},
		{"swingFrom", 0.5, -0.0877},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ApplyEasing(ir.Easing{Name: tt.name}, tt.at), 2e-4)
		})
	}
}

func TestElasticOvershoots(t *testing.T) {
	fn, ok := Lookup("outElastic")
	require.True(t, ok)
	peak := 0.0
	for i := 1; i < 100; i++ {
		peak = math.Max(peak, Apply(fn, float64(i)/100))
	}
	assert.Greater(t, peak, 1.0)
}

func TestBezierMatchesKeywordCurve(t *testing.T) {
	ease, ok := Lookup("ease")
	require.True(t, ok)
	custom := Resolve(ir.Easing{Bezier: []float64{0.25, 0.1, 0.25, 1}})
	for _, p := range []float64{0.1, 0.4, 0.8} {
		assert.Equal(t, Apply(ease, p), Apply(custom, p))
	}
	// ease at 0.5 is about 0.8024
	assert.InDelta(t, 0.8024, Apply(ease, 0.5), 2e-4)
}

func TestBezierMonotonic(t *testing.T) {
	fn := Bezier(0.42, 0, 0.58, 1)
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := Apply(fn, float64(i)/100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.InDelta(t, 0.5, Apply(fn, 0.5), 1e-4)
}

func TestBezierLinearShortcut(t *testing.T) {
	fn := Bezier(0.3, 0.3, 0.7, 0.7)
	assert.Equal(t, 0.42, Apply(fn, 0.42))
}

func TestBezierMemoized(t *testing.T) {
	Bezier(0.1, 0.2, 0.3, 0.4)
	bezierMu.Lock()
	before := len(bezierCache)
	bezierMu.Unlock()

	Bezier(0.1, 0.2, 0.3, 0.4)
	bezierMu.Lock()
	after := len(bezierCache)
	bezierMu.Unlock()

	assert.Equal(t, before, after)
}

func TestBezierFlatSlopeUsesBisection(t *testing.T) {
	// Control points pinned to the x axis produce near-zero slopes at the ends.
	fn := Bezier(1, 0, 1, 1)
	v := Apply(fn, 0.95)
	assert.Greater(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}
