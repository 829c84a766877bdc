package lumen

import (
	"github.com/tanema/gween"
)

// TweenGroup animates up to 4 properties of an Element simultaneously.
// Create one with the convenience constructors (TweenOpacity, TweenTranslate,
// TweenScale, TweenColor, TweenRotation) and either call Update(dt) yourself
// or hand it to Engine.Tween, which advances it with the frame time. If the
// target element is disposed, the group stops immediately.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	props  [4]Property
	target *Element
	Done   bool

	// Priority arbitrates against other engine-driven writers of the same
	// property within a frame (timeline playbacks and scrubs); the higher
	// priority wins. It only applies to groups run by Engine.Tween.
	Priority int

	// OnComplete runs once when every tween has finished. It does not run
	// for cancelled or disposed groups.
	OnComplete func()
}

// Update advances all tweens by dt seconds and writes values to the target
// properties. If the target has been disposed, Done is set to true and no
// writes occur.
func (g *TweenGroup) Update(dt float32) {
	g.update(dt, 0)
}

func (g *TweenGroup) update(dt float32, frame uint64) {
	if g.Done {
		return
	}

	if g.target == nil || g.target.IsDisposed() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		g.target.write(g.props[i], float64(val), g.Priority, frame)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	if g.Done && g.OnComplete != nil {
		g.OnComplete()
	}
}

// Cancel stops the group where it is. No further writes happen.
func (g *TweenGroup) Cancel() {
	g.Done = true
	g.OnComplete = nil
}

// Target returns the animated element.
func (g *TweenGroup) Target() *Element {
	return g.target
}

// overlaps reports whether g and other write a common property of the same
// target.
func (g *TweenGroup) overlaps(other *TweenGroup) bool {
	if g.target != other.target {
		return false
	}
	for i := 0; i < g.count; i++ {
		for j := 0; j < other.count; j++ {
			if g.props[i] == other.props[j] {
				return true
			}
		}
	}
	return false
}

func newTweenGroup(el *Element, duration float32, fn EaseFunc, pv ...PropValue) *TweenGroup {
	if duration < 0 {
		duration = 0
	}
	if fn == nil {
		fn = linear
	}
	g := &TweenGroup{count: len(pv), target: el}
	for i, p := range pv {
		from := float32(el.Property(p.Property))
		g.tweens[i] = gween.New(from, float32(p.Value), duration, fn.TweenFunc())
		g.props[i] = p.Property
	}
	return g
}

// TweenOpacity creates a TweenGroup that animates el.Opacity to the target
// value over duration seconds.
func TweenOpacity(el *Element, to float64, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn, PropValue{PropOpacity, to})
}

// TweenTranslate creates a TweenGroup that animates el.TranslateX and
// el.TranslateY to the given offsets.
func TweenTranslate(el *Element, toX, toY float64, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn,
		PropValue{PropTranslateX, toX},
		PropValue{PropTranslateY, toY})
}

// TweenScale creates a TweenGroup that animates el.Scale.
func TweenScale(el *Element, to float64, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn, PropValue{PropScale, to})
}

// TweenRotation creates a TweenGroup that animates el.Rotation (degrees).
func TweenRotation(el *Element, to float64, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn, PropValue{PropRotation, to})
}

// TweenColor creates a TweenGroup that animates all four components of
// el.Color to the target color.
func TweenColor(el *Element, to Color, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn,
		PropValue{PropColorR, to.R},
		PropValue{PropColorG, to.G},
		PropValue{PropColorB, to.B},
		PropValue{PropColorA, to.A})
}

// TweenEntrance is the reveal transition: fade in, slide to the resting
// position and settle to scale 1.
func TweenEntrance(el *Element, duration float32, fn EaseFunc) *TweenGroup {
	return newTweenGroup(el, duration, fn,
		PropValue{PropOpacity, 1},
		PropValue{PropTranslateY, 0},
		PropValue{PropScale, 1})
}

// Tween hands g to the engine, which advances it every frame. Groups
// already running on the same target property are cancelled first so a
// property has a single writer.
func (e *Engine) Tween(g *TweenGroup) *TweenGroup {
	if g == nil {
		return nil
	}
	if g.target == nil || g.target.IsDisposed() {
		e.warnOnce(g.target, "tween")
		g.Done = true
		return g
	}
	keep := e.tweens[:0]
	for _, other := range e.tweens {
		if other.overlaps(g) {
			other.Cancel()
			continue
		}
		keep = append(keep, other)
	}
	for i := len(keep); i < len(e.tweens); i++ {
		e.tweens[i] = nil
	}
	e.tweens = append(keep, g)
	return g
}
