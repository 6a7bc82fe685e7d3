// Package easing maps normalized animation progress onto eased progress.
//
// Named curves come from the gween easing catalog plus a handful of
// interaction-tool specific curves (the CSS keyword beziers, swing and
// bounce variants). Custom curves are cubic beziers solved numerically and
// memoized per control tuple.
package easing

import (
	"math"
	"sort"

	"github.com/tanema/gween/ease"

	"github.com/roach88/ixengine/internal/ir"
)

// Func remaps normalized progress t in [0,1].
type Func func(t float64) float64

// Precision is the granularity eased values are rounded to.
const Precision = 1e-4

const scale = 1 / Precision

// fromTween adapts a gween curve (t, begin, change, duration) to a unit remap.
func fromTween(fn ease.TweenFunc) Func {
	return func(t float64) float64 {
		return float64(fn(float32(t), 0, 1, 1))
	}
}

const swingS = 1.70158

var named = map[string]Func{
	"linear": func(t float64) float64 { return t },

	"ease":      Bezier(0.25, 0.1, 0.25, 1),
	"easeIn":    Bezier(0.42, 0, 1, 1),
	"easeOut":   Bezier(0, 0, 0.58, 1),
	"easeInOut": Bezier(0.42, 0, 0.58, 1),

	"inQuad":       fromTween(ease.InQuad),
	"outQuad":      fromTween(ease.OutQuad),
	"inOutQuad":    fromTween(ease.InOutQuad),
	"inCubic":      fromTween(ease.InCubic),
	"outCubic":     fromTween(ease.OutCubic),
	"inOutCubic":   fromTween(ease.InOutCubic),
	"inQuart":      fromTween(ease.InQuart),
	"outQuart":     fromTween(ease.OutQuart),
	"inOutQuart":   fromTween(ease.InOutQuart),
	"inQuint":      fromTween(ease.InQuint),
	"outQuint":     fromTween(ease.OutQuint),
	"inOutQuint":   fromTween(ease.InOutQuint),
	"inSine":       fromTween(ease.InSine),
	"outSine":      fromTween(ease.OutSine),
	"inOutSine":    fromTween(ease.InOutSine),
	"inExpo":       fromTween(ease.InExpo),
	"outExpo":      fromTween(ease.OutExpo),
	"inOutExpo":    fromTween(ease.InOutExpo),
	"inCirc":       fromTween(ease.InCirc),
	"outCirc":      fromTween(ease.OutCirc),
	"inOutCirc":    fromTween(ease.InOutCirc),
	"inBack":       fromTween(ease.InBack),
	"outBack":      fromTween(ease.OutBack),
	"inOutBack":    fromTween(ease.InOutBack),
	"inElastic":    fromTween(ease.InElastic),
	"outElastic":   fromTween(ease.OutElastic),
	"inOutElastic": fromTween(ease.InOutElastic),
	"inBounce":     fromTween(ease.InBounce),
	"outBounce":    fromTween(ease.OutBounce),
	"inOutBounce":  fromTween(ease.InOutBounce),

	"swingFrom":   swingFrom,
	"swingTo":     swingTo,
	"swingFromTo": swingFromTo,
	"bounce":      bounce,
	"bouncePast":  bouncePast,
}

// Lookup returns the named curve.
func Lookup(name string) (Func, bool) {
	fn, ok := named[name]
	return fn, ok
}

// Names returns every named curve, sorted.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the curve an authored easing refers to. Unknown names and
// malformed tuples resolve to nil, which Apply treats as linear.
func Resolve(e ir.Easing) Func {
	if len(e.Bezier) == 4 {
		return Bezier(e.Bezier[0], e.Bezier[1], e.Bezier[2], e.Bezier[3])
	}
	if fn, ok := named[e.Name]; ok {
		return fn
	}
	return nil
}

// Apply eases position t. The endpoints are exact; everything in between is
// rounded to Precision.
func Apply(fn Func, t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	if fn == nil {
		return Round(t)
	}
	return Round(fn(t))
}

// ApplyEasing resolves the authored easing and applies it.
func ApplyEasing(e ir.Easing, t float64) float64 {
	return Apply(Resolve(e), t)
}

// Round rounds v to Precision and flushes values below it to zero.
func Round(v float64) float64 {
	r := math.Round(v*scale) / scale
	if math.Abs(r) < Precision {
		return 0
	}
	return r
}

func swingFrom(t float64) float64 {
	return t * t * ((swingS+1)*t - swingS)
}

func swingTo(t float64) float64 {
	t--
	return t*t*((swingS+1)*t+swingS) + 1
}

func swingFromTo(t float64) float64 {
	s := swingS * 1.525
	t *= 2
	if t < 1 {
		return 0.5 * (t * t * ((s+1)*t - s))
	}
	t -= 2
	return 0.5 * (t*t*((s+1)*t+s) + 2)
}

func bounce(t float64) float64 {
	switch {
	case t < 1/2.75:
		return 7.5625 * t * t
	case t < 2/2.75:
		t -= 1.5 / 2.75
		return 7.5625*t*t + 0.75
	case t < 2.5/2.75:
		t -= 2.25 / 2.75
		return 7.5625*t*t + 0.9375
	default:
		t -= 2.625 / 2.75
		return 7.5625*t*t + 0.984375
	}
}

func bouncePast(t float64) float64 {
	switch {
	case t < 1/2.75:
		return 7.5625 * t * t
	case t < 2/2.75:
		t -= 1.5 / 2.75
		return 2 - (7.5625*t*t + 0.75)
	case t < 2.5/2.75:
		t -= 2.25 / 2.75
		return 2 - (7.5625*t*t + 0.9375)
	default:
		t -= 2.625 / 2.75
		return 2 - (7.5625*t*t + 0.984375)
	}
}
