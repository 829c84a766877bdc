package lumen

import "sort"

// Property names an animatable visual property of an Element.
type Property uint8

const (
	PropOpacity    Property = iota // 0 = transparent, 1 = opaque
	PropTranslateX                 // horizontal offset in pixels
	PropTranslateY                 // vertical offset in pixels
	PropScale                      // uniform scale factor
	PropRotation                   // rotation in degrees
	PropRotateX                    // 3D tilt around the X axis in degrees
	PropRotateY                    // 3D tilt around the Y axis in degrees
	PropColorR                     // tint red channel
	PropColorG                     // tint green channel
	PropColorB                     // tint blue channel
	PropColorA                     // tint alpha channel
	propCount
)

var propertyNames = [propCount]string{
	"opacity", "translateX", "translateY", "scale", "rotation",
	"rotateX", "rotateY", "colorR", "colorG", "colorB", "colorA",
}

// String returns the property's manifest name.
func (p Property) String() string {
	if p < propCount {
		return propertyNames[p]
	}
	return "unknown"
}

// ParseProperty resolves a manifest property name. ok is false for unknown
// names.
func ParseProperty(name string) (Property, bool) {
	for i, n := range propertyNames {
		if n == name {
			return Property(i), true
		}
	}
	return 0, false
}

// VisualState is a snapshot of everything an Applier needs to render an
// element. It is passed by value so appliers cannot mutate engine state.
type VisualState struct {
	Opacity    float64
	TranslateX float64
	TranslateY float64
	Scale      float64
	Rotation   float64
	RotateX    float64
	RotateY    float64
	Color      Color
	Text       string
	Classes    []string
	GlareX     float64
	GlareY     float64
}

// Applier receives the visual state of every element that changed during a
// frame. It is called at most once per element per frame, after all
// animation updates for that frame have been computed.
type Applier interface {
	Apply(el *Element, state VisualState)
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(el *Element, state VisualState)

// Apply calls f(el, state).
func (f ApplierFunc) Apply(el *Element, state VisualState) { f(el, state) }

// elementIDCounter is a plain counter (no atomic, the engine is single-threaded).
var elementIDCounter uint32

func nextElementID() uint32 {
	elementIDCounter++
	return elementIDCounter
}

// Element is an opaque handle to a visual target owned by the host. The
// engine mutates its visual fields and reports changes through an Applier;
// the host renders them.
type Element struct {
	ID   uint32
	Name string

	// Bounds is the layout box in document coordinates, or in viewport
	// coordinates when Fixed is set.
	Bounds Rect
	Fixed  bool

	// Visual state
	Opacity    float64
	TranslateX float64
	TranslateY float64
	Scale      float64
	Rotation   float64
	RotateX    float64
	RotateY    float64
	Color      Color
	Text       string
	GlareX     float64
	GlareY     float64

	// Interactive elements take part in click hit testing. ZIndex orders
	// overlapping interactive elements; higher wins.
	Interactive bool
	ZIndex      int

	// Data carries declarative attributes from the host markup (data-*).
	Data map[string]string

	UserData any

	// OnClick fires when the element is the topmost interactive element
	// under a click.
	OnClick func(el *Element, x, y float64)

	classes  map[string]struct{}
	dirty    bool
	disposed bool
	claims   [propCount]claim
}

// claim records the highest-priority writer of a property in one frame.
type claim struct {
	frame    uint64
	priority int
}

// NewElement creates an element with default visual state (fully opaque,
// unscaled, white tint).
func NewElement(name string, bounds Rect) *Element {
	return &Element{
		ID:      nextElementID(),
		Name:    name,
		Bounds:  bounds,
		Opacity: 1,
		Scale:   1,
		Color:   ColorWhite,
		dirty:   true,
	}
}

// Property returns the current value of p.
func (el *Element) Property(p Property) float64 {
	if f := el.field(p); f != nil {
		return *f
	}
	return 0
}

// SetProperty writes v to p and marks the element dirty.
func (el *Element) SetProperty(p Property, v float64) {
	f := el.field(p)
	if f == nil || el.disposed {
		return
	}
	if *f != v {
		*f = v
		el.dirty = true
	}
}

// write is SetProperty for engine-driven animations. Within one frame the
// highest priority writer of p wins regardless of update order; equal
// priorities fall back to last write wins. frame 0 bypasses arbitration.
func (el *Element) write(p Property, v float64, priority int, frame uint64) {
	if frame != 0 && p < propCount {
		c := &el.claims[p]
		if c.frame == frame && c.priority > priority {
			return
		}
		c.frame, c.priority = frame, priority
	}
	el.SetProperty(p, v)
}

func (el *Element) field(p Property) *float64 {
	switch p {
	case PropOpacity:
		return &el.Opacity
	case PropTranslateX:
		return &el.TranslateX
	case PropTranslateY:
		return &el.TranslateY
	case PropScale:
		return &el.Scale
	case PropRotation:
		return &el.Rotation
	case PropRotateX:
		return &el.RotateX
	case PropRotateY:
		return &el.RotateY
	case PropColorR:
		return &el.Color.R
	case PropColorG:
		return &el.Color.G
	case PropColorB:
		return &el.Color.B
	case PropColorA:
		return &el.Color.A
	}
	return nil
}

// SetText replaces the element's text content.
func (el *Element) SetText(s string) {
	if el.disposed || el.Text == s {
		return
	}
	el.Text = s
	el.dirty = true
}

// SetClass adds or removes a state class ("open", "revealed", "scrolled").
// Idempotent: setting a class to its current state does not mark the
// element dirty.
func (el *Element) SetClass(name string, on bool) {
	if el.disposed {
		return
	}
	_, has := el.classes[name]
	if has == on {
		return
	}
	if on {
		if el.classes == nil {
			el.classes = make(map[string]struct{})
		}
		el.classes[name] = struct{}{}
	} else {
		delete(el.classes, name)
	}
	el.dirty = true
}

// HasClass reports whether the class is set.
func (el *Element) HasClass(name string) bool {
	_, ok := el.classes[name]
	return ok
}

// Classes returns the set classes in sorted order.
func (el *Element) Classes() []string {
	if len(el.classes) == 0 {
		return nil
	}
	out := make([]string, 0, len(el.classes))
	for c := range el.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// MarkDirty forces the element to be reported to the Applier this frame.
func (el *Element) MarkDirty() {
	el.dirty = true
}

// IsDirty reports whether the element changed since the last flush.
func (el *Element) IsDirty() bool {
	return el.dirty
}

// State returns a snapshot of the element's visual state.
func (el *Element) State() VisualState {
	return VisualState{
		Opacity:    el.Opacity,
		TranslateX: el.TranslateX,
		TranslateY: el.TranslateY,
		Scale:      el.Scale,
		Rotation:   el.Rotation,
		RotateX:    el.RotateX,
		RotateY:    el.RotateY,
		Color:      el.Color,
		Text:       el.Text,
		Classes:    el.Classes(),
		GlareX:     el.GlareX,
		GlareY:     el.GlareY,
	}
}

// Dispose marks the element as destroyed. Pending timers, tweens, counters
// and observations targeting it become no-ops.
func (el *Element) Dispose() {
	if el.disposed {
		return
	}
	el.disposed = true
	el.OnClick = nil
	el.UserData = nil
	el.Data = nil
	el.classes = nil
}

// IsDisposed returns true if this element has been disposed.
func (el *Element) IsDisposed() bool {
	return el.disposed
}
