package lumen

import (
	"math"
	"sort"

	"github.com/tanema/gween/ease"
)

// EaseFunc maps linear progress in [0, 1] to eased progress. Implementations
// must be pure and should return 0 at 0 and 1 at 1; overshooting curves
// (back-out) may leave [0, 1] in between.
type EaseFunc func(t float64) float64

// FromTween adapts a gween easing function (t, begin, change, duration) to
// an EaseFunc.
func FromTween(fn ease.TweenFunc) EaseFunc {
	return func(t float64) float64 {
		return float64(fn(float32(t), 0, 1, 1))
	}
}

// TweenFunc adapts an EaseFunc to gween's signature so it can drive a
// gween.Tween.
func (f EaseFunc) TweenFunc() ease.TweenFunc {
	return func(t, b, c, d float32) float32 {
		if d <= 0 {
			return b + c
		}
		return b + c*float32(f(float64(t/d)))
	}
}

// Lenis is the exponential smooth-scroll curve min(1, 1.001 - 2^(-10t)).
func Lenis(t float64) float64 {
	return math.Min(1, 1.001-math.Pow(2, -10*t))
}

// CubicBezier returns the CSS cubic-bezier(x1, y1, x2, y2) timing function.
// x1 and x2 are clamped to [0, 1] as CSS requires.
func CubicBezier(x1, y1, x2, y2 float64) EaseFunc {
	x1 = clamp01(x1)
	x2 = clamp01(x2)

	// Polynomial coefficients for B(s) = ((a*s + b)*s + c)*s.
	cx := 3 * x1
	bx := 3*(x2-x1) - cx
	ax := 1 - cx - bx
	cy := 3 * y1
	by := 3*(y2-y1) - cy
	ay := 1 - cy - by

	sampleX := func(s float64) float64 { return ((ax*s+bx)*s + cx) * s }
	sampleY := func(s float64) float64 { return ((ay*s+by)*s + cy) * s }
	slopeX := func(s float64) float64 { return (3*ax*s+2*bx)*s + cx }

	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}
		// Newton-Raphson first, bisection if the slope is too flat.
		s := t
		for i := 0; i < 8; i++ {
			x := sampleX(s) - t
			if math.Abs(x) < 1e-7 {
				return sampleY(s)
			}
			d := slopeX(s)
			if math.Abs(d) < 1e-6 {
				break
			}
			s -= x / d
		}
		lo, hi := 0.0, 1.0
		s = t
		for i := 0; i < 40; i++ {
			x := sampleX(s)
			if math.Abs(x-t) < 1e-7 {
				break
			}
			if x < t {
				lo = s
			} else {
				hi = s
			}
			s = (lo + hi) / 2
		}
		return sampleY(s)
	}
}

// EaseRegistry maps easing ids to functions. The sequencer, tweens and
// counters resolve easings through it, so new curves are added by
// registration only.
type EaseRegistry struct {
	fns map[string]EaseFunc
}

// NewEaseRegistry returns a registry preloaded with the built-in curves:
// linear, the power family in GSAP naming, cubic, back, expo, sine, bounce,
// "lenis" and "smooth" (CSS cubic-bezier(0.25, 0.46, 0.45, 0.94)).
func NewEaseRegistry() *EaseRegistry {
	r := &EaseRegistry{fns: make(map[string]EaseFunc, 24)}
	r.Register("linear", linear)
	r.Register("none", linear)
	r.Register("power1.in", FromTween(ease.InQuad))
	r.Register("power1.out", FromTween(ease.OutQuad))
	r.Register("power1.inOut", FromTween(ease.InOutQuad))
	r.Register("power2.in", FromTween(ease.InCubic))
	r.Register("power2.out", FromTween(ease.OutCubic))
	r.Register("power2.inOut", FromTween(ease.InOutCubic))
	r.Register("power3.out", FromTween(ease.OutQuart))
	r.Register("power4.out", FromTween(ease.OutQuint))
	r.Register("cubic.in", FromTween(ease.InCubic))
	r.Register("cubic.out", FromTween(ease.OutCubic))
	r.Register("cubic.inOut", FromTween(ease.InOutCubic))
	r.Register("back.out", FromTween(ease.OutBack))
	r.Register("expo.out", FromTween(ease.OutExpo))
	r.Register("sine.inOut", FromTween(ease.InOutSine))
	r.Register("bounce.out", FromTween(ease.OutBounce))
	r.Register("lenis", Lenis)
	r.Register("smooth", CubicBezier(0.25, 0.46, 0.45, 0.94))
	return r
}

// Register adds or replaces an easing. A nil fn removes the id.
func (r *EaseRegistry) Register(id string, fn EaseFunc) {
	if fn == nil {
		delete(r.fns, id)
		return
	}
	r.fns[id] = fn
}

// Lookup returns the easing registered under id.
func (r *EaseRegistry) Lookup(id string) (EaseFunc, bool) {
	fn, ok := r.fns[id]
	return fn, ok
}

// Resolve returns the easing for id, falling back to linear for empty or
// unknown ids.
func (r *EaseRegistry) Resolve(id string) EaseFunc {
	if fn, ok := r.fns[id]; ok {
		return fn
	}
	return linear
}

func linear(t float64) float64 { return t }

// Names returns the registered ids in sorted order.
func (r *EaseRegistry) Names() []string {
	out := make([]string, 0, len(r.fns))
	for id := range r.fns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
