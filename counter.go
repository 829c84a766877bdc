package lumen

import (
	"iter"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tanema/gween"
)

// Counter interpolates a displayed number from a start value to a target.
// It is a lazy, finite, non-restartable sequence: Next produces values until
// elapsed time reaches the duration, and the last value produced is exactly
// the target.
type Counter struct {
	target   float64
	from     float64
	duration time.Duration
	tween    *gween.Tween

	start     time.Duration
	started   bool
	value     float64
	done      bool
	cancelled bool
}

// NewCounter creates a counter. A negative duration is treated as 0, which
// completes on the first Next. A nil easing is linear.
func NewCounter(target, from float64, duration time.Duration, easeFn EaseFunc) *Counter {
	if duration < 0 {
		duration = 0
	}
	if easeFn == nil {
		easeFn = linear
	}
	c := &Counter{target: target, from: from, duration: duration, value: from}
	if duration > 0 {
		c.tween = gween.New(0, 1, float32(duration.Seconds()), easeFn.TweenFunc())
	}
	return c
}

// Start pins the start timestamp. Without Start, the first Next call
// starts the counter.
func (c *Counter) Start(now time.Duration) {
	if !c.started {
		c.started = true
		c.start = now
	}
}

// Next returns the value at now. ok is false once the sequence is exhausted
// (the final target value was already produced) or the counter was
// cancelled; value then holds the last produced value.
func (c *Counter) Next(now time.Duration) (value float64, ok bool) {
	if c.done || c.cancelled {
		return c.value, false
	}
	c.Start(now)
	elapsed := now - c.start
	if elapsed >= c.duration || c.tween == nil {
		c.value = c.target
		c.done = true
		return c.value, true
	}
	if elapsed < 0 {
		elapsed = 0
	}
	p, _ := c.tween.Set(float32(elapsed.Seconds()))
	v := lerp(c.from, c.target, float64(p))
	// float32 easing can wobble by an ulp; keep the display monotonic and
	// never past the target before completion.
	if c.target >= c.from {
		v = math.Min(math.Max(v, c.value), c.target)
	} else {
		v = math.Max(math.Min(v, c.value), c.target)
	}
	c.value = v
	return c.value, true
}

// Values returns an iterator over the counter's values at the given frame
// times. The iterator stops when the counter completes or is cancelled.
func (c *Counter) Values(frames iter.Seq[time.Duration]) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for now := range frames {
			v, ok := c.Next(now)
			if !ok || !yield(v) {
				return
			}
			if c.done {
				return
			}
		}
	}
}

// Cancel stops the counter. A cancelled counter never produces another
// value.
func (c *Counter) Cancel() {
	c.cancelled = true
}

// Done reports whether the counter reached its target.
func (c *Counter) Done() bool {
	return c.done
}

// Cancelled reports whether Cancel was called before completion.
func (c *Counter) Cancelled() bool {
	return c.cancelled && !c.done
}

// Value returns the last produced value.
func (c *Counter) Value() float64 {
	return c.value
}

// Target returns the immutable target.
func (c *Counter) Target() float64 {
	return c.target
}

// Text formats the current value for display.
func (c *Counter) Text() string {
	return FormatCounter(c.value, c.target)
}

// FormatCounter formats v with one fractional digit when target is
// non-integral, otherwise as an integer. Intermediate values are truncated
// toward zero so the target is only displayed once it is reached.
func FormatCounter(v, target float64) string {
	if target != math.Trunc(target) {
		if v == target {
			return strconv.FormatFloat(v, 'f', 1, 64)
		}
		return strconv.FormatFloat(noNegZero(math.Trunc(v*10)/10), 'f', 1, 64)
	}
	return strconv.FormatFloat(noNegZero(math.Trunc(v)), 'f', 0, 64)
}

// noNegZero maps -0 to 0 so truncated values in (-1, 0) never render "-0".
func noNegZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// ParseTarget reads a counter target from markup. Non-numeric or
// non-finite input yields 0.
func ParseTarget(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Animate starts a counter on el's text content. A counter already running
// on el is cancelled first, so at most one run writes el at a time.
func (e *Engine) Animate(el *Element, target, from float64, duration time.Duration, easeID string) *Counter {
	prev, running := e.counters[el]
	if running {
		prev.Cancel()
		delete(e.counters, el)
	}
	if duration < 0 {
		e.warnOnce(el, "counter negative duration")
	}
	c := NewCounter(target, from, duration, e.eases.Resolve(easeID))
	c.Start(e.now)
	if el == nil || el.IsDisposed() {
		e.warnOnce(el, "counter animate")
		c.Cancel()
		return c
	}
	e.counters[el] = c
	if !running {
		e.counterOrder = append(e.counterOrder, el)
	}
	el.SetText(c.Text())
	return c
}
