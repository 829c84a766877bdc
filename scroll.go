package lumen

import (
	"math"
	"time"

	"github.com/tanema/gween"
)

// SmoothScroller damps scroll input: every wheel delta moves a target
// offset and the visible offset eases toward it over Duration. A new delta
// restarts the ease from wherever the visible offset currently is.
type SmoothScroller struct {
	// Duration of one ease toward the target.
	Duration time.Duration
	// Ease shapes the approach. Defaults to Lenis.
	Ease EaseFunc
	// Max is the largest scroll offset (document height - viewport height).
	Max float64

	current float64
	target  float64
	tween   *gween.Tween
	from    float64
	start   time.Duration
}

// NewSmoothScroller returns a scroller with the cinematic page defaults:
// 1.2s with the Lenis exponential curve.
func NewSmoothScroller(max float64) *SmoothScroller {
	return &SmoothScroller{Duration: 1200 * time.Millisecond, Ease: Lenis, Max: max}
}

// ScrollBy moves the target by delta pixels.
func (s *SmoothScroller) ScrollBy(delta float64, now time.Duration) {
	s.ScrollTo(s.target+delta, now)
}

// ScrollTo moves the target to y, clamped to [0, Max].
func (s *SmoothScroller) ScrollTo(y float64, now time.Duration) {
	y = math.Max(0, y)
	if s.Max > 0 {
		y = math.Min(y, s.Max)
	}
	if y == s.target && s.tween != nil {
		return
	}
	s.target = y
	s.from = s.current
	s.start = now
	fn := s.Ease
	if fn == nil {
		fn = Lenis
	}
	d := float32(s.Duration.Seconds())
	if d <= 0 {
		s.current = y
		s.tween = nil
		return
	}
	s.tween = gween.New(0, 1, d, fn.TweenFunc())
}

// Jump sets the offset immediately, cancelling any ease in flight.
func (s *SmoothScroller) Jump(y float64) {
	y = math.Max(0, y)
	if s.Max > 0 {
		y = math.Min(y, s.Max)
	}
	s.current, s.target, s.tween = y, y, nil
}

// Update advances the ease to now and returns the visible offset.
func (s *SmoothScroller) Update(now time.Duration) float64 {
	if s.tween == nil {
		return s.current
	}
	p, done := s.tween.Set(float32((now - s.start).Seconds()))
	if done {
		s.current = s.target
		s.tween = nil
		return s.current
	}
	s.current = lerp(s.from, s.target, float64(p))
	return s.current
}

// Offset returns the visible offset.
func (s *SmoothScroller) Offset() float64 {
	return s.current
}

// Target returns the offset being eased toward.
func (s *SmoothScroller) Target() float64 {
	return s.target
}

// Settled reports whether no ease is in flight.
func (s *SmoothScroller) Settled() bool {
	return s.tween == nil
}

// ScrollTrigger maps a scroll offset range to progress in [0, 1].
type ScrollTrigger struct {
	Start, End float64
}

// Progress returns clamp((y - Start) / (End - Start), 0, 1). An empty range
// is a step at Start.
func (t ScrollTrigger) Progress(y float64) float64 {
	span := t.End - t.Start
	if span <= 0 {
		if y >= t.Start {
			return 1
		}
		return 0
	}
	return clamp01((y - t.Start) / span)
}

// ScrollFlag sets a class on an element while the scroll offset is past a
// threshold, like a header gaining "scrolled" after 50px.
type ScrollFlag struct {
	Element   *Element
	Class     string
	Threshold float64
}

func (f *ScrollFlag) update(y float64) {
	if f.Element == nil || f.Element.IsDisposed() {
		return
	}
	f.Element.SetClass(f.Class, y > f.Threshold)
}
