package lumen

import "math"

// PointerFollower moves an element to the pointer, like a cursor glow.
// Moves are coalesced: however many pointer events arrive in a frame, the
// element is written once with the latest position.
type PointerFollower struct {
	Element *Element
	// Offset is added to the pointer position (e.g. -radius to center).
	Offset Vec2

	pending bool
	x, y    float64
}

// Move records a pointer position for the next frame.
func (f *PointerFollower) Move(x, y float64) {
	f.x, f.y = x, y
	f.pending = true
}

func (f *PointerFollower) flush(frame uint64) {
	if !f.pending || f.Element == nil || f.Element.IsDisposed() {
		return
	}
	f.pending = false
	f.Element.write(PropTranslateX, f.x+f.Offset.X, 0, frame)
	f.Element.write(PropTranslateY, f.y+f.Offset.Y, 0, frame)
}

// Tilt computes a 3D hover tilt and glare from the pointer position inside
// an element.
type Tilt struct {
	// MaxAngle is the tilt at the element's edges, in degrees.
	MaxAngle float64
}

// TiltResult is the computed hover state.
type TiltResult struct {
	RotateX, RotateY float64
	// GlareX and GlareY locate the highlight in [0, 1] element space.
	GlareX, GlareY float64
}

// Compute returns the tilt for pointer (x, y) over bounds. Pointers outside
// the bounds produce the resting state.
func (t Tilt) Compute(bounds Rect, x, y float64) TiltResult {
	if bounds.Width <= 0 || bounds.Height <= 0 || !bounds.Contains(x, y) {
		return TiltResult{GlareX: 0.5, GlareY: 0.5}
	}
	nx := (x - bounds.X) / bounds.Width
	ny := (y - bounds.Y) / bounds.Height
	return TiltResult{
		// Pointer at the top tips the element back (positive X rotation).
		RotateX: (0.5 - ny) * 2 * t.MaxAngle,
		RotateY: (nx - 0.5) * 2 * t.MaxAngle,
		GlareX:  nx,
		GlareY:  ny,
	}
}

// Apply writes the tilt for (x, y) to el.
func (t Tilt) Apply(el *Element, x, y float64) {
	if el == nil || el.IsDisposed() {
		return
	}
	r := t.Compute(el.Bounds, x, y)
	el.SetProperty(PropRotateX, r.RotateX)
	el.SetProperty(PropRotateY, r.RotateY)
	if el.GlareX != r.GlareX || el.GlareY != r.GlareY {
		el.GlareX, el.GlareY = r.GlareX, r.GlareY
		el.dirty = true
	}
}

// RippleGeometry places a click ripple inside a button.
type RippleGeometry struct {
	Size      float64
	Left, Top float64
}

// Ripple returns a square ripple as large as the button's longer side,
// centered on the click point, in the button's local coordinates.
func Ripple(bounds Rect, x, y float64) RippleGeometry {
	size := math.Max(bounds.Width, bounds.Height)
	return RippleGeometry{
		Size: size,
		Left: x - bounds.X - size/2,
		Top:  y - bounds.Y - size/2,
	}
}

// Parallax offsets an element by the pointer's distance from the viewport
// center scaled by depth.
func Parallax(viewport Rect, x, y, depth float64) Vec2 {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return Vec2{}
	}
	mx := (x - viewport.Width/2) / (viewport.Width / 2)
	my := (y - viewport.Height/2) / (viewport.Height / 2)
	return Vec2{X: mx * depth, Y: my * depth}
}

// hitTest returns the topmost interactive element under the viewport point
// (x, y): highest ZIndex, then most recently added. Fixed elements are
// tested in viewport coordinates, others in document coordinates.
func (e *Engine) hitTest(x, y, scrollY float64) *Element {
	var best *Element
	for _, el := range e.elements {
		if !el.Interactive || el.IsDisposed() {
			continue
		}
		py := y + scrollY
		if el.Fixed {
			py = y
		}
		if !el.Bounds.Contains(x, py) {
			continue
		}
		if best == nil || el.ZIndex >= best.ZIndex {
			best = el
		}
	}
	return best
}
