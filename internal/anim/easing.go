package anim

import "math"

// Interpolator maps linear progress in [0, 1] onto eased progress.
type Interpolator func(t float64) float64

// Linear is the identity interpolator.
func Linear(t float64) float64 {
	return t
}

// FastOutSlowIn is the cubic-bezier(0.4, 0, 0.2, 1) curve used for marker
// transitions.
var FastOutSlowIn = CubicBezier(0.4, 0, 0.2, 1)

// CubicBezier returns an interpolator for the CSS-style curve with control
// points (x1, y1) and (x2, y2); the end points are fixed at (0,0) and (1,1).
func CubicBezier(x1, y1, x2, y2 float64) Interpolator {
	sample := func(a, b, t float64) float64 {
		u := 1 - t
		return 3*u*u*t*a + 3*u*t*t*b + t*t*t
	}
	slope := func(a, b, t float64) float64 {
		u := 1 - t
		return 3*u*u*a + 6*u*t*(b-a) + 3*t*t*(1-b)
	}

	return func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		if x >= 1 {
			return 1
		}

		// Newton-Raphson, falling back to bisection when the slope flattens.
		t := x
		for i := 0; i < 8; i++ {
			dx := sample(x1, x2, t) - x
			if math.Abs(dx) < 1e-7 {
				return sample(y1, y2, t)
			}
			d := slope(x1, x2, t)
			if math.Abs(d) < 1e-6 {
				break
			}
			t -= dx / d
		}

		lo, hi := 0.0, 1.0
		t = x
		for i := 0; i < 32; i++ {
			v := sample(x1, x2, t)
			if math.Abs(v-x) < 1e-7 {
				break
			}
			if v < x {
				lo = t
			} else {
				hi = t
			}
			t = (lo + hi) / 2
		}
		return sample(y1, y2, t)
	}
}
