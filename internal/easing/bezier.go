package easing

import (
	"math"
	"sync"
)

const (
	newtonIterations   = 4
	newtonMinSlope     = 0.001
	subdivisionEpsilon = 1e-7
	subdivisionMaxIter = 10
	splineTableSize    = 11
	sampleStep         = 1.0 / (splineTableSize - 1)
)

var (
	bezierMu    sync.Mutex
	bezierCache = map[[4]float64]Func{}
)

// Bezier returns the CSS-style cubic-bezier curve through (0,0), (x1,y1),
// (x2,y2), (1,1). Curves are memoized per control tuple. x1 and x2 are
// clamped to [0,1] so the curve stays a function of t.
func Bezier(x1, y1, x2, y2 float64) Func {
	x1 = clamp01(x1)
	x2 = clamp01(x2)
	key := [4]float64{x1, y1, x2, y2}

	bezierMu.Lock()
	defer bezierMu.Unlock()
	if fn, ok := bezierCache[key]; ok {
		return fn
	}
	fn := newBezier(x1, y1, x2, y2)
	bezierCache[key] = fn
	return fn
}

func newBezier(x1, y1, x2, y2 float64) Func {
	if x1 == y1 && x2 == y2 {
		return func(t float64) float64 { return t }
	}

	var samples [splineTableSize]float64
	for i := range samples {
		samples[i] = calcBezier(float64(i)*sampleStep, x1, x2)
	}

	tForX := func(x float64) float64 {
		start := 0.0
		i := 1
		for ; i != splineTableSize-1 && samples[i] <= x; i++ {
			start += sampleStep
		}
		i--

		dist := (x - samples[i]) / (samples[i+1] - samples[i])
		guess := start + dist*sampleStep

		slope := bezierSlope(guess, x1, x2)
		switch {
		case slope >= newtonMinSlope:
			return newtonRaphson(x, guess, x1, x2)
		case slope == 0:
			return guess
		default:
			return bisect(x, start, start+sampleStep, x1, x2)
		}
	}

	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}
		return calcBezier(tForX(t), y1, y2)
	}
}

func coefA(a1, a2 float64) float64 { return 1 - 3*a2 + 3*a1 }
func coefB(a1, a2 float64) float64 { return 3*a2 - 6*a1 }
func coefC(a1 float64) float64     { return 3 * a1 }

// calcBezier evaluates one axis of the curve at parameter t.
func calcBezier(t, a1, a2 float64) float64 {
	return ((coefA(a1, a2)*t+coefB(a1, a2))*t + coefC(a1)) * t
}

func bezierSlope(t, a1, a2 float64) float64 {
	return 3*coefA(a1, a2)*t*t + 2*coefB(a1, a2)*t + coefC(a1)
}

func newtonRaphson(x, guess, x1, x2 float64) float64 {
	for range newtonIterations {
		slope := bezierSlope(guess, x1, x2)
		if slope == 0 {
			return guess
		}
		guess -= (calcBezier(guess, x1, x2) - x) / slope
	}
	return guess
}

func bisect(x, lo, hi, x1, x2 float64) float64 {
	var t float64
	for i := 0; i < subdivisionMaxIter; i++ {
		t = lo + (hi-lo)/2
		current := calcBezier(t, x1, x2) - x
		if math.Abs(current) <= subdivisionEpsilon {
			break
		}
		if current > 0 {
			hi = t
		} else {
			lo = t
		}
	}
	return t
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
