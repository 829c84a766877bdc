package lumen

import (
	"fmt"
	"time"
)

const (
	defaultToastDuration  = 2500 * time.Millisecond
	defaultAddedDuration  = 1800 * time.Millisecond
	defaultRippleDuration = 600 * time.Millisecond
)

// Cart owns the cart total shown in a badge and the "added to cart" toast.
// The total lives here rather than in page globals; callbacks receive the
// cart by reference.
type Cart struct {
	// ToastDuration is how long the toast stays up after the last add.
	ToastDuration time.Duration
	// AddedDuration is how long a button keeps its "added" state.
	AddedDuration time.Duration
	// Ripples receives ripple geometry for each click with a position. The
	// host draws the ripple and drops it after RippleDuration.
	Ripples        func(btn *Element, r RippleGeometry)
	RippleDuration time.Duration

	engine    *Engine
	total     int
	badge     *Element
	toastText *Element
	toasts    *ToggleGroup
	added     map[*Element]TimerHandle
}

// NewCart creates a cart writing its total to badge and its messages to
// toastText, with toast shown/hidden through the "open" class of toast.
func (e *Engine) NewCart(badge, toast, toastText *Element) *Cart {
	c := &Cart{
		ToastDuration:  defaultToastDuration,
		AddedDuration:  defaultAddedDuration,
		RippleDuration: defaultRippleDuration,
		engine:         e,
		badge:          badge,
		toastText:      toastText,
		toasts:         e.NewToggleGroup("toast", false),
		added:          make(map[*Element]TimerHandle),
	}
	// The toast is a notification, not an overlay: only its timer hides it.
	c.toasts.SetCloseOnEscape(false)
	c.toasts.Add("toast", toast)
	return c
}

// Total returns the number of items added.
func (c *Cart) Total() int {
	return c.total
}

// ToastOpen reports whether the toast is showing.
func (c *Cart) ToastOpen() bool {
	return c.toasts.Active() != nil
}

// Add increments the total, bounces the badge, flags btn as "added" and
// shows the toast for name. Adding again while the toast is up restarts its
// timer. btn may be nil.
func (c *Cart) Add(name string, btn *Element) {
	c.total++
	if c.badge != nil && !c.badge.IsDisposed() {
		c.badge.SetText(fmt.Sprint(c.total))
		c.badge.SetClass("show", true)
		// Restart the bounce from the top.
		c.badge.SetProperty(PropScale, 1.3)
		c.engine.Tween(TweenScale(c.badge, 1, 0.3, c.engine.eases.Resolve("back.out")))
	}
	if btn != nil {
		c.markAdded(btn)
	}
	if c.toastText != nil {
		c.toastText.SetText(name + " added to cart!")
	}
	c.toasts.OpenFor("toast", c.ToastDuration)
}

// Click handles a press on an add-to-cart button at (x, y), given in the
// same coordinate space as btn.Bounds. It emits a ripple, then adds name.
func (c *Cart) Click(name string, btn *Element, x, y float64) {
	if btn != nil && c.Ripples != nil {
		c.Ripples(btn, Ripple(btn.Bounds, x, y))
	}
	c.Add(name, btn)
}

func (c *Cart) markAdded(btn *Element) {
	if prev, ok := c.added[btn]; ok {
		prev.Cancel()
	}
	btn.SetClass("added", true)
	c.added[btn] = c.engine.AfterFor(btn, c.AddedDuration, func() {
		btn.SetClass("added", false)
		delete(c.added, btn)
	})
}
