package lumen

import "time"

// ToggleState is the state of one overlay.
type ToggleState uint8

const (
	Closed ToggleState = iota
	Open
)

// String returns "closed" or "open".
func (s ToggleState) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Toggle is one overlay (pop-out panel, toast) inside a ToggleGroup.
type Toggle struct {
	ID string
	// Panel receives the "open" class while the toggle is open.
	Panel *Element

	// OnOpen and OnClose run after the state change.
	OnOpen  func(*Toggle)
	OnClose func(*Toggle)

	state     ToggleState
	group     *ToggleGroup
	autoClose TimerHandle
}

// State returns the current state.
func (t *Toggle) State() ToggleState {
	return t.state
}

// ToggleGroup enforces mutual exclusion: at most one toggle in the group is
// open. A group created with lockScroll suppresses background scrolling
// while any of its toggles is open.
type ToggleGroup struct {
	Name string

	toggles    []*Toggle
	active     *Toggle
	lockScroll bool
	ignoreEsc  bool
	engine     *Engine
}

// NewToggleGroup creates a group owned by the engine. Escape presses
// processed by the engine close every group that has not opted out with
// SetCloseOnEscape.
func (e *Engine) NewToggleGroup(name string, lockScroll bool) *ToggleGroup {
	g := &ToggleGroup{Name: name, lockScroll: lockScroll, engine: e}
	e.groups = append(e.groups, g)
	return g
}

// SetCloseOnEscape controls whether an Escape press closes the group.
// Groups close on Escape by default.
func (g *ToggleGroup) SetCloseOnEscape(on bool) {
	g.ignoreEsc = !on
}

// Add registers a toggle. panel may be nil for toggles without a visual.
// The toggle starts Closed.
func (g *ToggleGroup) Add(id string, panel *Element) *Toggle {
	t := &Toggle{ID: id, Panel: panel, group: g}
	g.toggles = append(g.toggles, t)
	return t
}

// Toggle returns the toggle with the given id, or nil.
func (g *ToggleGroup) Toggle(id string) *Toggle {
	for _, t := range g.toggles {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Active returns the open toggle, or nil when the group is all-closed.
func (g *ToggleGroup) Active() *Toggle {
	return g.active
}

// ScrollLocked reports whether this group currently suppresses scrolling.
func (g *ToggleGroup) ScrollLocked() bool {
	return g.lockScroll && g.active != nil
}

// Open opens id, closing any other open toggle in the group first. It
// returns false if id is unknown or already open.
func (g *ToggleGroup) Open(id string) bool {
	t := g.Toggle(id)
	if t == nil {
		g.engine.warnOnce(nil, "toggle open "+g.Name+"/"+id)
		return false
	}
	if t.state == Open {
		return false
	}
	if g.active != nil {
		g.close(g.active)
	}
	t.state = Open
	g.active = t
	if t.Panel != nil {
		t.Panel.SetClass("open", true)
	}
	if t.OnOpen != nil {
		g.engine.safeCall("toggle open", func() { t.OnOpen(t) })
	}
	return true
}

// OpenFor opens id and closes it again after d. Opening the same toggle
// while it is already open restarts the timer instead of reopening.
func (g *ToggleGroup) OpenFor(id string, d time.Duration) bool {
	t := g.Toggle(id)
	if t == nil {
		g.engine.warnOnce(nil, "toggle open "+g.Name+"/"+id)
		return false
	}
	opened := g.Open(id)
	t.autoClose.Cancel()
	t.autoClose = g.engine.After(d, func() { g.Close(id) })
	return opened
}

// Close closes id. Returns false if it was not open.
func (g *ToggleGroup) Close(id string) bool {
	t := g.Toggle(id)
	if t == nil || t.state != Open {
		return false
	}
	g.close(t)
	return true
}

// CloseAll closes the open toggle, if any. Returns false when nothing was
// open, so a second call in a row has no effect.
func (g *ToggleGroup) CloseAll() bool {
	if g.active == nil {
		return false
	}
	g.close(g.active)
	return true
}

// Backdrop handles a click on an open toggle's backdrop. The click closes
// the toggle only when the backdrop itself was hit, not its content.
func (g *ToggleGroup) Backdrop(id string, hitBackdrop bool) bool {
	if !hitBackdrop {
		return false
	}
	return g.Close(id)
}

func (g *ToggleGroup) close(t *Toggle) {
	t.state = Closed
	t.autoClose.Cancel()
	if g.active == t {
		g.active = nil
	}
	if t.Panel != nil {
		t.Panel.SetClass("open", false)
	}
	if t.OnClose != nil {
		g.engine.safeCall("toggle close", func() { t.OnClose(t) })
	}
}

// handleKey closes the group on Escape.
func (g *ToggleGroup) handleKey(k Key) {
	if k == KeyEscape && !g.ignoreEsc {
		g.CloseAll()
	}
}
