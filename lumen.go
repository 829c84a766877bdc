package lumen

import (
	"image/color"
	"math"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint.
var ColorWhite = Color{1, 1, 1, 1}

// RGBA converts the color to a premultiplied 8-bit color.RGBA for hosts
// that render with the image/color model.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{
		R: to8(c.R * c.A),
		G: to8(c.G * c.A),
		B: to8(c.B * c.A),
		A: to8(c.A),
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// Vec2 is a 2D vector used for positions and offsets.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left of the document, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Intersection returns the overlapping area of r and other. The result has
// zero width or height when the rectangles only touch or do not overlap.
func (r Rect) Intersection(other Rect) Rect {
	x0 := math.Max(r.X, other.X)
	y0 := math.Max(r.Y, other.Y)
	x1 := math.Min(r.X+r.Width, other.X+other.Width)
	y1 := math.Min(r.Y+r.Height, other.Y+other.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Area returns Width*Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Expand grows the rectangle by the given margin. Negative margins shrink it.
func (r Rect) Expand(m Margin) Rect {
	return Rect{
		X:      r.X - m.Left,
		Y:      r.Y - m.Top,
		Width:  r.Width + m.Left + m.Right,
		Height: r.Height + m.Top + m.Bottom,
	}
}

// Margin is a per-side offset in pixels, ordered like CSS (top, right,
// bottom, left). Used as the root margin of an observation.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Range is a general-purpose min/max range. Used by the particle field.
type Range struct {
	Min, Max float64
}

// Key identifies a keyboard key the engine reacts to.
type Key uint8

const (
	KeyUnknown Key = iota
	KeyEscape      // closes every open toggle
	KeyEnter
	KeySpace
	KeyArrowUp
	KeyArrowDown
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
)

// EventType identifies a kind of host input event.
type EventType uint8

const (
	EventScroll      EventType = iota // wheel or touch scroll; DeltaY in pixels
	EventPointerMove                  // pointer moved to X, Y (viewport coordinates)
	EventClick                        // primary button click at X, Y
	EventKey                          // key press
	EventResize                       // viewport resized to X (width), Y (height)
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
