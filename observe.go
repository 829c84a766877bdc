package lumen

// ObserveOptions configures how an element's visibility is evaluated.
type ObserveOptions struct {
	// Threshold is the fraction of the element's area that must be inside
	// the (margin-adjusted) viewport. 0 means any intersection.
	Threshold float64
	// RootMargin grows (positive) or shrinks (negative) the viewport before
	// intersecting.
	RootMargin Margin
	// Repeatable makes the callback fire on every transition from hidden to
	// visible instead of only the first time.
	Repeatable bool
}

// Entry describes one element that became visible during an Update.
type Entry struct {
	Element *Element
	// Ratio is the intersection ratio at the time of the notification.
	Ratio float64
	// Position is the element's index within the batch of this Update.
	Position int
	// Order is the element's registration index (reveal order).
	Order int
}

type observation struct {
	el       *Element
	opts     ObserveOptions
	fn       func(Entry)
	order    int
	hasFired bool
	visible  bool
	removed  bool
}

// ObserveHandle stops observing an element.
type ObserveHandle struct {
	obs *observation
	reg *ObservationRegistry
}

// Cancel unregisters the observation. No-op if already removed.
func (h ObserveHandle) Cancel() {
	if h.obs == nil || h.obs.removed {
		return
	}
	h.obs.removed = true
	h.reg.dirty = true
}

// Fired reports whether the observation has fired at least once.
func (h ObserveHandle) Fired() bool {
	return h.obs != nil && h.obs.hasFired
}

// ObservationRegistry tracks the visibility of registered elements against a
// viewport. Every Update evaluates all live observations, so elements that
// are already visible when registered fire on the first Update after
// registration without waiting for the viewport to move.
type ObservationRegistry struct {
	entries   []*observation
	nextOrder int
	dirty     bool
	batch     []Entry

	// onDisposed is called once for each observation dropped because its
	// element was disposed.
	onDisposed func(el *Element)
	// call wraps callback invocation (panic isolation). nil calls directly.
	call func(name string, fn func())
}

// Register starts observing el. fn is invoked synchronously from Update when
// el becomes visible. Panics if el or fn is nil.
func (r *ObservationRegistry) Register(el *Element, opts ObserveOptions, fn func(Entry)) ObserveHandle {
	if el == nil {
		panic("lumen: cannot observe nil element")
	}
	if fn == nil {
		panic("lumen: observation callback is nil")
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	if opts.Threshold > 1 {
		opts.Threshold = 1
	}
	obs := &observation{el: el, opts: opts, fn: fn, order: r.nextOrder}
	r.nextOrder++
	r.entries = append(r.entries, obs)
	return ObserveHandle{obs: obs, reg: r}
}

// Unregister stops observing every observation bound to el.
func (r *ObservationRegistry) Unregister(el *Element) {
	for _, obs := range r.entries {
		if obs.el == el && !obs.removed {
			obs.removed = true
			r.dirty = true
		}
	}
}

// Len returns the number of live observations.
func (r *ObservationRegistry) Len() int {
	n := 0
	for _, obs := range r.entries {
		if !obs.removed {
			n++
		}
	}
	return n
}

// Update evaluates all observations against viewport and invokes callbacks
// for elements that became visible, in registration order. It returns the
// batch of entries that fired; the slice is reused by the next call.
// Non-repeatable observations are unregistered after firing.
func (r *ObservationRegistry) Update(viewport Rect) []Entry {
	r.batch = r.batch[:0]
	// Observations registered from inside a callback are evaluated next
	// Update, not this one.
	n := len(r.entries)
	for i := 0; i < n; i++ {
		obs := r.entries[i]
		if obs.removed {
			continue
		}
		if obs.el.IsDisposed() {
			obs.removed = true
			r.dirty = true
			if r.onDisposed != nil {
				r.onDisposed(obs.el)
			}
			continue
		}
		root := viewport
		if obs.el.Fixed {
			// Fixed elements are laid out in viewport space.
			root.Y = 0
		}
		ratio, visible := IntersectionRatio(obs.el.Bounds, root, obs.opts)
		wasVisible := obs.visible
		obs.visible = visible
		if !visible || wasVisible && obs.opts.Repeatable {
			continue
		}
		if obs.hasFired && !obs.opts.Repeatable {
			continue
		}
		obs.hasFired = true
		if !obs.opts.Repeatable {
			obs.removed = true
			r.dirty = true
		}
		r.batch = append(r.batch, Entry{
			Element:  obs.el,
			Ratio:    ratio,
			Position: len(r.batch),
			Order:    obs.order,
		})
		fn := obs.fn
		entry := r.batch[len(r.batch)-1]
		if r.call != nil {
			r.call("observe", func() { fn(entry) })
		} else {
			fn(entry)
		}
	}
	if r.dirty {
		r.compact()
	}
	return r.batch
}

func (r *ObservationRegistry) compact() {
	keep := r.entries[:0]
	for _, obs := range r.entries {
		if !obs.removed {
			keep = append(keep, obs)
		}
	}
	for i := len(keep); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = keep
	r.dirty = false
}

// IntersectionRatio computes the fraction of bounds inside viewport after
// applying opts.RootMargin, and whether that satisfies opts.Threshold.
// Zero-area bounds have ratio 1 when they touch the viewport.
func IntersectionRatio(bounds, viewport Rect, opts ObserveOptions) (ratio float64, visible bool) {
	root := viewport.Expand(opts.RootMargin)
	if root.Width < 0 || root.Height < 0 || !bounds.Intersects(root) {
		return 0, false
	}
	area := bounds.Area()
	if area <= 0 {
		return 1, true
	}
	ratio = bounds.Intersection(root).Area() / area
	if opts.Threshold <= 0 {
		return ratio, ratio > 0
	}
	return ratio, ratio >= opts.Threshold
}
