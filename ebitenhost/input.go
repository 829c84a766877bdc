package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/lumen"
)

// wheelLine is the scroll distance of one wheel notch, in pixels.
const wheelLine = 40

// keyMap translates the keys the engine understands. It is a slice so keys
// pressed in the same tick are injected in a fixed order.
var keyMap = []struct {
	ebiten ebiten.Key
	lumen  lumen.Key
}{
	{ebiten.KeyEscape, lumen.KeyEscape},
	{ebiten.KeyEnter, lumen.KeyEnter},
	{ebiten.KeySpace, lumen.KeySpace},
	{ebiten.KeyArrowUp, lumen.KeyArrowUp},
	{ebiten.KeyArrowDown, lumen.KeyArrowDown},
	{ebiten.KeyPageUp, lumen.KeyPageUp},
	{ebiten.KeyPageDown, lumen.KeyPageDown},
	{ebiten.KeyHome, lumen.KeyHome},
	{ebiten.KeyEnd, lumen.KeyEnd},
}

// pressedKeys returns the mapped keys for which justPressed reports true,
// in keyMap order.
func pressedKeys(justPressed func(ebiten.Key) bool) []lumen.Key {
	var keys []lumen.Key
	for _, m := range keyMap {
		if justPressed(m.ebiten) {
			keys = append(keys, m.lumen)
		}
	}
	return keys
}

// keyScroll is the scroll delta for navigation keys, given the viewport
// height and the current offset. ok is false for keys that do not scroll.
func keyScroll(k lumen.Key, viewportH, scrollY float64) (dy float64, ok bool) {
	switch k {
	case lumen.KeyArrowDown:
		return wheelLine, true
	case lumen.KeyArrowUp:
		return -wheelLine, true
	case lumen.KeyPageDown, lumen.KeySpace:
		return viewportH * 0.9, true
	case lumen.KeyPageUp:
		return -viewportH * 0.9, true
	case lumen.KeyHome:
		return -scrollY, true
	case lumen.KeyEnd:
		// The scroller clamps to its maximum.
		return 1 << 30, true
	}
	return 0, false
}

// wheelToScroll converts an Ebitengine wheel offset (positive when the
// wheel moves away from the user) to a scroll delta (positive scrolls down).
func wheelToScroll(yoff float64) float64 {
	return -yoff * wheelLine
}

type inputState struct {
	primed bool
	lastX  int
	lastY  int
}

// read polls Ebitengine for this tick's input and queues it on e.
func (s *inputState) read(e *lumen.Engine) {
	x, y := ebiten.CursorPosition()
	if !s.primed || x != s.lastX || y != s.lastY {
		s.primed = true
		s.lastX, s.lastY = x, y
		e.InjectPointer(float64(x), float64(y))
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		e.InjectClick(float64(x), float64(y))
	}
	if _, yoff := ebiten.Wheel(); yoff != 0 {
		e.InjectScroll(wheelToScroll(yoff))
	}
	for _, k := range pressedKeys(inpututil.IsKeyJustPressed) {
		e.InjectKey(k)
		if dy, ok := keyScroll(k, e.Viewport().Height, e.ScrollY()); ok {
			e.InjectScroll(dy)
		}
	}
}
