package lumen

// InputEvent is one host input event. The engine consumes position, key
// and scroll delta fields only.
type InputEvent struct {
	Type   EventType
	X, Y   float64
	DeltaY float64
	Key    Key
}

// InjectScroll queues a scroll of dy pixels (positive scrolls down).
// Ignored while a toggle group locks scrolling.
func (e *Engine) InjectScroll(dy float64) {
	e.input = append(e.input, InputEvent{Type: EventScroll, DeltaY: dy})
}

// InjectPointer queues a pointer move to viewport coordinates (x, y).
func (e *Engine) InjectPointer(x, y float64) {
	e.input = append(e.input, InputEvent{Type: EventPointerMove, X: x, Y: y})
}

// InjectClick queues a primary click at viewport coordinates (x, y).
func (e *Engine) InjectClick(x, y float64) {
	e.input = append(e.input, InputEvent{Type: EventClick, X: x, Y: y})
}

// InjectKey queues a key press.
func (e *Engine) InjectKey(k Key) {
	e.input = append(e.input, InputEvent{Type: EventKey, Key: k})
}

// InjectResize queues a viewport resize.
func (e *Engine) InjectResize(width, height float64) {
	e.input = append(e.input, InputEvent{Type: EventResize, X: width, Y: height})
}

// PendingInput returns the number of queued events.
func (e *Engine) PendingInput() int {
	return len(e.input)
}

// processInput drains the input queue. Called from UpdateAt before any
// animation advances, so input and animation share the frame's time sample.
func (e *Engine) processInput() {
	if len(e.input) == 0 {
		return
	}
	for i := 0; i < len(e.input); i++ {
		evt := e.input[i]
		switch evt.Type {
		case EventScroll:
			if e.ScrollLocked() {
				continue
			}
			e.scroller.ScrollBy(evt.DeltaY, e.now)
		case EventPointerMove:
			e.pointerMove(evt.X, evt.Y)
		case EventClick:
			e.click(evt.X, evt.Y)
		case EventKey:
			e.key(evt.Key)
		case EventResize:
			e.viewport.Width = evt.X
			e.viewport.Height = evt.Y
			for _, f := range e.fields {
				b := f.Config().Bounds
				f.Resize(Rect{X: b.X, Y: b.Y, Width: evt.X, Height: evt.Y})
			}
		}
	}
	clear(e.input)
	e.input = e.input[:0]
}

func (e *Engine) pointerMove(x, y float64) {
	for _, f := range e.followers {
		f.Move(x, y)
	}
	docY := y + e.viewport.Y
	for _, tb := range e.tilts {
		py := docY
		if tb.el.Fixed {
			py = y
		}
		tb.tilt.Apply(tb.el, x, py)
	}
}

func (e *Engine) click(x, y float64) {
	el := e.hitTest(x, y, e.viewport.Y)
	if el == nil || el.OnClick == nil {
		return
	}
	py := y + e.viewport.Y
	if el.Fixed {
		py = y
	}
	fn := el.OnClick
	e.safeCall("click", func() { fn(el, x, py) })
}

func (e *Engine) key(k Key) {
	for _, g := range e.groups {
		g.handleKey(k)
	}
	for _, fn := range e.keyHandler {
		e.safeCall("key", func() { fn(k) })
	}
}
