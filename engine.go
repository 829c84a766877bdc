package lumen

import (
	"fmt"
	"log/slog"
	"time"
)

// Engine owns the observed elements and every running animation. It is
// single-threaded: all methods must be called from the goroutine that calls
// Update.
type Engine struct {
	clock   Clock
	log     *slog.Logger
	debug   bool
	applier Applier
	eases   *EaseRegistry

	now     time.Duration
	lastNow time.Duration
	frames  uint64

	elements []*Element

	registry  ObservationRegistry
	reveals   map[string]*revealGroup
	revealSeq []string

	timers       timerQueue
	tweens       []*TweenGroup
	counters     map[*Element]*Counter
	counterOrder []*Element
	playbacks    []*Playback
	scrubs       []*ScrubHandle
	groups       []*ToggleGroup
	flags        []*ScrollFlag
	followers    []*PointerFollower
	tilts        []tiltBinding
	fields       []*ParticleField

	scroller     *SmoothScroller
	viewport     Rect
	scrollLocked bool
	onScrollLock func(locked bool)

	input      []InputEvent
	keyHandler []func(Key)
	updateFunc func(now time.Duration)
	testRunner *TestRunner

	logged map[logKey]struct{}
	stats  frameStats
}

type logKey struct {
	id uint32
	op string
}

type tiltBinding struct {
	el   *Element
	tilt Tilt
}

// Options configures a new Engine.
type Options struct {
	// Clock drives the engine. Defaults to a WallClock.
	Clock Clock
	// Viewport is the initial visible area (X, Width, Height; Y is the scroll
	// offset).
	Viewport Rect
	// ScrollMax is the largest scroll offset. 0 means unbounded.
	ScrollMax float64
	// Applier receives per-frame visual updates. May be nil.
	Applier Applier
	// Logger receives warnings. Defaults to a discarding logger.
	Logger *slog.Logger
	// Eases resolves easing ids. Defaults to the built-in registry.
	Eases *EaseRegistry
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = NewWallClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Eases == nil {
		opts.Eases = NewEaseRegistry()
	}
	e := &Engine{
		clock:    opts.Clock,
		log:      opts.Logger,
		applier:  opts.Applier,
		eases:    opts.Eases,
		viewport: opts.Viewport,
		reveals:  make(map[string]*revealGroup),
		counters: make(map[*Element]*Counter),
		logged:   make(map[logKey]struct{}),
		scroller: NewSmoothScroller(opts.ScrollMax),
	}
	e.scroller.Jump(opts.Viewport.Y)
	e.now = opts.Clock.Now()
	e.lastNow = e.now
	e.registry.call = e.safeCall
	e.registry.onDisposed = func(el *Element) { e.warnOnce(el, "observe") }
	return e
}

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	e.log = l
}

// SetApplier replaces the visual output.
func (e *Engine) SetApplier(a Applier) {
	e.applier = a
}

// SetDebugMode enables or disables per-frame timing stats, logged at debug
// level.
func (e *Engine) SetDebugMode(enabled bool) {
	e.debug = enabled
}

// SetUpdateFunc sets a callback run every frame after all animations have
// advanced and before visual state is flushed.
func (e *Engine) SetUpdateFunc(fn func(now time.Duration)) {
	e.updateFunc = fn
}

// OnScrollLock sets a callback fired when background scroll becomes locked
// or unlocked by toggle groups.
func (e *Engine) OnScrollLock(fn func(locked bool)) {
	e.onScrollLock = fn
}

// OnKey registers a handler for key presses, run after toggle groups have
// handled the key.
func (e *Engine) OnKey(fn func(Key)) {
	e.keyHandler = append(e.keyHandler, fn)
}

// Eases returns the engine's easing registry.
func (e *Engine) Eases() *EaseRegistry {
	return e.eases
}

// Now returns the time sampled at the start of the current frame.
func (e *Engine) Now() time.Duration {
	return e.now
}

// Frames returns the number of completed Update calls.
func (e *Engine) Frames() uint64 {
	return e.frames
}

// Viewport returns the visible area in document coordinates.
func (e *Engine) Viewport() Rect {
	return e.viewport
}

// ScrollY returns the visible scroll offset.
func (e *Engine) ScrollY() float64 {
	return e.viewport.Y
}

// Scroller returns the smooth scroller.
func (e *Engine) Scroller() *SmoothScroller {
	return e.scroller
}

// ScrollLocked reports whether any toggle group suppresses scrolling.
func (e *Engine) ScrollLocked() bool {
	for _, g := range e.groups {
		if g.ScrollLocked() {
			return true
		}
	}
	return false
}

// Add tracks elements so their changes are flushed to the Applier and they
// take part in hit testing.
func (e *Engine) Add(els ...*Element) {
	for _, el := range els {
		if el == nil {
			panic("lumen: cannot add nil element")
		}
		e.track(el)
	}
}

// Elements returns the tracked elements. The returned slice MUST NOT be
// mutated.
func (e *Engine) Elements() []*Element {
	return e.elements
}

// Find returns the first tracked element with the given name, or nil.
func (e *Engine) Find(name string) *Element {
	for _, el := range e.elements {
		if el.Name == name && !el.IsDisposed() {
			return el
		}
	}
	return nil
}

// --- Timers ---

// After runs fn once after d. The callback runs inside Update with the
// frame's time sample.
func (e *Engine) After(d time.Duration, fn func()) TimerHandle {
	return e.AfterFor(nil, d, fn)
}

// AfterFor is After bound to an element: the callback is skipped if el is
// disposed before the timer fires.
func (e *Engine) AfterFor(el *Element, d time.Duration, fn func()) TimerHandle {
	if d < 0 {
		d = 0
	}
	return TimerHandle{t: e.timers.add(e.now+d, el, fn)}
}

// PendingTimers returns the number of timers waiting to fire.
func (e *Engine) PendingTimers() int {
	return e.timers.len()
}

// --- Observation ---

// Observe registers el with the observation registry. The element is also
// tracked by the engine.
func (e *Engine) Observe(el *Element, opts ObserveOptions, fn func(Entry)) ObserveHandle {
	e.track(el)
	return e.registry.Register(el, opts, fn)
}

// Registry returns the observation registry.
func (e *Engine) Registry() *ObservationRegistry {
	return &e.registry
}

type revealGroup struct {
	stagger Stagger
	pending []Entry
	runs    map[*Element]revealRun
	next    int
}

type revealRun struct {
	fn         func(*Element)
	repeatable bool
	// order is the element's registration index within the group.
	order int
}

// RevealOptions configures a staggered reveal.
type RevealOptions struct {
	Observe ObserveOptions
	// Group batches elements for staggering. Elements of different groups
	// entering in the same frame are staggered independently.
	Group string
	// Run is called when the element's stagger delay elapses.
	Run func(*Element)
}

// SetStagger configures the stagger of a reveal group.
func (e *Engine) SetStagger(group string, s Stagger) {
	g := e.revealGroup(group)
	g.stagger = s
}

func (e *Engine) revealGroup(name string) *revealGroup {
	g, ok := e.reveals[name]
	if !ok {
		g = &revealGroup{stagger: DefaultStagger, runs: make(map[*Element]revealRun)}
		e.reveals[name] = g
		e.revealSeq = append(e.revealSeq, name)
	}
	return g
}

// Reveal observes el and, when it becomes visible, schedules opts.Run after
// the element's stagger delay within its group's batch.
func (e *Engine) Reveal(el *Element, opts RevealOptions) ObserveHandle {
	g := e.revealGroup(opts.Group)
	run := opts.Run
	if run == nil {
		run = func(*Element) {}
	}
	g.runs[el] = revealRun{fn: run, repeatable: opts.Observe.Repeatable, order: g.next}
	g.next++
	return e.Observe(el, opts.Observe, func(en Entry) {
		g.pending = append(g.pending, en)
	})
}

// --- Timelines ---

// NewTimeline creates a timeline that resolves easings through the engine
// registry and logs writes to disposed targets.
func (e *Engine) NewTimeline(name string) *Timeline {
	tl := NewTimeline(name, e.eases)
	tl.warn = e.warnOnce
	return tl
}

// NewTimelineBuilder starts a timeline bound to the engine.
func (e *Engine) NewTimelineBuilder(name string) *TimelineBuilder {
	b := NewTimelineBuilder(name, e.eases)
	b.tl.warn = e.warnOnce
	return b
}

// Play drives tl from engine time, starting this frame. The timeline is
// seeked to 0 immediately.
func (e *Engine) Play(tl *Timeline) *Playback {
	p := &Playback{tl: tl, start: e.now}
	tl.Seek(0)
	e.playbacks = append(e.playbacks, p)
	return p
}

// Scrub binds tl to the scroll offset through trigger. The timeline is
// seeked to the current progress immediately.
func (e *Engine) Scrub(tl *Timeline, trigger ScrollTrigger) *ScrubHandle {
	h := &ScrubHandle{tl: tl, trigger: trigger}
	h.advance(e.viewport.Y, 0)
	e.scrubs = append(e.scrubs, h)
	return h
}

// --- Scroll, pointer and particle bindings ---

// AddScrollFlag toggles class on el while the scroll offset exceeds
// threshold.
func (e *Engine) AddScrollFlag(el *Element, class string, threshold float64) *ScrollFlag {
	f := &ScrollFlag{Element: el, Class: class, Threshold: threshold}
	e.flags = append(e.flags, f)
	f.update(e.viewport.Y)
	return f
}

// Follow makes el track the pointer.
func (e *Engine) Follow(el *Element, offset Vec2) *PointerFollower {
	f := &PointerFollower{Element: el, Offset: offset}
	e.followers = append(e.followers, f)
	return f
}

// AddTilt makes el tilt toward the pointer while hovered and return to rest
// when the pointer leaves.
func (e *Engine) AddTilt(el *Element, t Tilt) {
	e.track(el)
	e.tilts = append(e.tilts, tiltBinding{el: el, tilt: t})
}

// AddParticleField simulates f every frame.
func (e *Engine) AddParticleField(f *ParticleField) {
	e.fields = append(e.fields, f)
}

// ParticleFields returns the simulated fields.
func (e *Engine) ParticleFields() []*ParticleField {
	return e.fields
}

// --- Frame ---

// Update samples the clock once and advances everything to that time.
func (e *Engine) Update() {
	e.UpdateAt(e.clock.Now())
}

// UpdateAt advances the engine to now. Every timer, stagger, tween, counter
// and timeline update in the frame is computed from this single sample.
// Times earlier than the previous frame are clamped to it.
func (e *Engine) UpdateAt(now time.Duration) {
	var t0 time.Time
	if e.debug {
		t0 = time.Now()
		e.stats = frameStats{}
	}

	if now < e.now {
		now = e.now
	}
	e.lastNow = e.now
	e.now = now
	dt := (e.now - e.lastNow).Seconds()
	// Stamps property claims so the highest priority writer wins this frame.
	frame := e.frames + 1

	if e.testRunner != nil {
		e.testRunner.step(e)
	}
	e.processInput()

	e.viewport.Y = e.scroller.Update(now)
	for _, f := range e.flags {
		f.update(e.viewport.Y)
	}

	e.registry.Update(e.viewport)
	e.flushReveals()

	for _, t := range e.timers.collect(now) {
		// A callback earlier in this frame may have cancelled it.
		if t.cancelled {
			continue
		}
		t.fired = true
		if t.owner != nil && t.owner.IsDisposed() {
			e.warnOnce(t.owner, "timer")
			continue
		}
		e.safeCall("timer", t.fn)
		e.stats.timers++
	}

	e.updateTweens(float32(dt), frame)
	e.updateCounters(now)
	e.updatePlaybacks(now, frame)
	for _, h := range e.scrubs {
		h.advance(e.viewport.Y, frame)
	}
	e.scrubs = pruneScrubs(e.scrubs)
	for _, f := range e.followers {
		f.flush(frame)
	}
	for _, f := range e.fields {
		f.update(dt)
	}

	if e.updateFunc != nil {
		e.safeCall("update func", func() { e.updateFunc(now) })
	}

	if locked := e.ScrollLocked(); locked != e.scrollLocked {
		e.scrollLocked = locked
		if e.onScrollLock != nil {
			e.safeCall("scroll lock", func() { e.onScrollLock(locked) })
		}
	}

	e.flush()
	e.frames++

	if e.debug {
		e.stats.total = time.Since(t0)
		e.debugLog(e.stats)
	}
}

func (e *Engine) flushReveals() {
	for _, name := range e.revealSeq {
		g := e.reveals[name]
		if len(g.pending) == 0 {
			continue
		}
		// Positions and registration order are local to the group.
		for i := range g.pending {
			g.pending[i].Position = i
			if run, ok := g.runs[g.pending[i].Element]; ok {
				g.pending[i].Order = run.order
			}
		}
		e.stats.batches++
		e.Schedule(g.stagger, g.pending, func(el *Element) {
			run, ok := g.runs[el]
			if !ok {
				return
			}
			if !run.repeatable {
				delete(g.runs, el)
			}
			run.fn(el)
		})
		g.pending = g.pending[:0]
	}
}

func (e *Engine) updateTweens(dt float32, frame uint64) {
	keep := e.tweens[:0]
	for _, g := range e.tweens {
		if !g.Done {
			e.safeCall("tween", func() { g.update(dt, frame) })
		}
		if !g.Done {
			keep = append(keep, g)
		}
	}
	for i := len(keep); i < len(e.tweens); i++ {
		e.tweens[i] = nil
	}
	e.tweens = keep
}

func (e *Engine) updateCounters(now time.Duration) {
	keep := e.counterOrder[:0]
	for _, el := range e.counterOrder {
		c, ok := e.counters[el]
		if !ok {
			continue
		}
		if el.IsDisposed() {
			c.Cancel()
			delete(e.counters, el)
			e.warnOnce(el, "counter")
			continue
		}
		if _, ok := c.Next(now); ok {
			el.SetText(c.Text())
		}
		if c.Done() || c.cancelled {
			delete(e.counters, el)
			continue
		}
		keep = append(keep, el)
	}
	for i := len(keep); i < len(e.counterOrder); i++ {
		e.counterOrder[i] = nil
	}
	e.counterOrder = keep
}

func (e *Engine) updatePlaybacks(now time.Duration, frame uint64) {
	keep := e.playbacks[:0]
	for _, p := range e.playbacks {
		if p.Done() {
			continue
		}
		var finished bool
		e.safeCall("playback", func() { finished = p.advance(now, frame) })
		if finished {
			if p.OnComplete != nil {
				e.safeCall("playback complete", p.OnComplete)
			}
			continue
		}
		if !p.Done() {
			keep = append(keep, p)
		}
	}
	for i := len(keep); i < len(e.playbacks); i++ {
		e.playbacks[i] = nil
	}
	e.playbacks = keep
}

func pruneScrubs(s []*ScrubHandle) []*ScrubHandle {
	keep := s[:0]
	for _, h := range s {
		if !h.cancelled {
			keep = append(keep, h)
		}
	}
	for i := len(keep); i < len(s); i++ {
		s[i] = nil
	}
	return keep
}

// flush reports dirty elements to the applier and drops disposed ones.
func (e *Engine) flush() {
	keep := e.elements[:0]
	for _, el := range e.elements {
		if el.IsDisposed() {
			continue
		}
		keep = append(keep, el)
		if !el.dirty {
			continue
		}
		el.dirty = false
		if e.applier != nil {
			state := el.State()
			e.safeCall("apply", func() { e.applier.Apply(el, state) })
			e.stats.applied++
		}
	}
	for i := len(keep); i < len(e.elements); i++ {
		e.elements[i] = nil
	}
	e.elements = keep
}

func (e *Engine) track(el *Element) {
	if el == nil {
		return
	}
	for _, have := range e.elements {
		if have == el {
			return
		}
	}
	e.elements = append(e.elements, el)
}

// safeCall runs fn, recovering and logging a panic so one failing callback
// does not stop the rest of the frame.
func (e *Engine) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.panics++
			e.log.Error("callback panicked", "callback", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// warnOnce logs a skipped operation on a missing or disposed element, once
// per element and operation.
func (e *Engine) warnOnce(el *Element, op string) {
	var key logKey
	name := "<nil>"
	if el != nil {
		key.id = el.ID
		name = el.Name
	}
	key.op = op
	if el != nil && key.id == 0 {
		// Elements built by hand without NewElement share ID 0; key on name.
		key.op = op + "/" + name
	}
	if _, ok := e.logged[key]; ok {
		return
	}
	e.logged[key] = struct{}{}
	e.log.Warn("skipped operation on missing element", "op", op, "element", name)
}
