package manifest

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/phanxgames/lumen"
)

// Classes set by built pages.
const (
	ClassVisible = "visible"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Clock drives the engine. Defaults to a wall clock.
	Clock lumen.Clock
	// Logger receives engine warnings and skipped references.
	Logger *slog.Logger
	// Applier receives per-frame visual updates.
	Applier lumen.Applier
	// Defaults fills unset manifest values. nil uses the built-in values.
	Defaults *Defaults
}

// Page is a manifest wired into an engine.
type Page struct {
	Name   string
	Engine *lumen.Engine

	Elements  map[string]*lumen.Element
	Timelines map[string]*lumen.Timeline
	Toggles   map[string]*lumen.ToggleGroup
	Particles map[string]*lumen.ParticleField
	Cart      *lumen.Cart

	// Playbacks holds the played timelines once they have started.
	Playbacks map[string]*lumen.Playback
	// Scrubs holds the scroll-bound timelines.
	Scrubs map[string]*lumen.ScrubHandle

	// Skipped lists the references Build could not resolve.
	Skipped []string

	order    []string
	steps    []lumen.Step
	plays    []playSpec
	started  bool
	log      *slog.Logger
	defaults Defaults
}

type playSpec struct {
	name  string
	tl    *lumen.Timeline
	delay time.Duration
}

// ElementNames returns element names in manifest order.
func (p *Page) ElementNames() []string {
	return slices.Clone(p.order)
}

// Build creates an engine and wires every manifest section into it.
// Dangling references (an unknown element, property or easing) are logged,
// recorded in Page.Skipped and skipped; structural errors are returned.
func Build(m *Manifest, opts BuildOptions) (*Page, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var d Defaults
	if opts.Defaults != nil {
		d = *opts.Defaults
	} else {
		var err error
		if d, err = DefaultsFrom(map[string]string{}); err != nil {
			return nil, err
		}
	}

	vp := d.Viewport(m.Viewport)
	e := lumen.NewEngine(lumen.Options{
		Clock:     opts.Clock,
		Viewport:  lumen.Rect{Width: vp.Width, Height: vp.Height},
		ScrollMax: m.ScrollMaxFor(vp.Height),
		Applier:   opts.Applier,
		Logger:    logger,
	})
	p := &Page{
		Name:      m.Name,
		Engine:    e,
		Elements:  make(map[string]*lumen.Element, len(m.Elements)),
		Timelines: make(map[string]*lumen.Timeline),
		Toggles:   make(map[string]*lumen.ToggleGroup),
		Particles: make(map[string]*lumen.ParticleField),
		Playbacks: make(map[string]*lumen.Playback),
		Scrubs:    make(map[string]*lumen.ScrubHandle),
		log:       logger.With("page", m.Name),
		defaults:  d,
	}

	p.buildScroll(m.Scroll)
	p.buildStaggers(m)
	for _, spec := range m.Elements {
		p.buildElement(spec)
	}
	for _, spec := range m.Elements {
		p.buildEffects(m, spec)
	}
	if m.Entrance != nil {
		p.buildEntrance(m, *m.Entrance)
	}
	for _, spec := range m.Timelines {
		if err := p.buildTimeline(spec); err != nil {
			return nil, err
		}
	}
	for _, spec := range m.Toggles {
		p.buildToggles(spec)
	}
	if m.Cart != nil {
		p.buildCart(*m.Cart)
	}
	for _, spec := range m.Particles {
		p.buildParticles(m, spec)
	}
	return p, nil
}

// Start runs the entrance cascade and the played timelines. Calling Start
// again is a no-op.
func (p *Page) Start() {
	if p.started {
		return
	}
	p.started = true
	p.Engine.Cascade(p.steps)
	for _, ps := range p.plays {
		if ps.delay <= 0 {
			p.Playbacks[ps.name] = p.Engine.Play(ps.tl)
			continue
		}
		p.Engine.After(ps.delay, func() {
			p.Playbacks[ps.name] = p.Engine.Play(ps.tl)
		})
	}
}

func (p *Page) skip(section, name, reason string) {
	p.Skipped = append(p.Skipped, section+": "+name+" ("+reason+")")
	p.log.Warn("skipped manifest reference", "section", section, "name", name, "reason", reason)
}

func (p *Page) element(section, name string) *lumen.Element {
	if name == "" {
		return nil
	}
	el, ok := p.Elements[name]
	if !ok {
		p.skip(section, name, "unknown element")
		return nil
	}
	return el
}

func (p *Page) ease(section, id string) string {
	if id == "" {
		return id
	}
	if _, ok := p.Engine.Eases().Lookup(id); !ok {
		p.skip(section, id, "unknown ease, using linear")
	}
	return id
}

func (p *Page) duration(section string, d Duration) time.Duration {
	if d < 0 {
		p.skip(section, d.D().String(), "negative duration, using 0")
		return 0
	}
	return d.D()
}

func (p *Page) buildScroll(s ScrollSpec) {
	sc := p.Engine.Scroller()
	if s.Duration != nil {
		sc.Duration = p.duration("scroll", *s.Duration)
	}
	if s.Ease != "" {
		sc.Ease = p.Engine.Eases().Resolve(p.ease("scroll", s.Ease))
	}
}

func (p *Page) buildStaggers(m *Manifest) {
	base := p.defaults.Stagger()
	if m.Stagger != nil {
		base = m.Stagger.Stagger()
	}
	groups := map[string]struct{}{"": {}}
	for _, el := range m.Elements {
		if el.Reveal != nil {
			groups[el.Reveal.Group] = struct{}{}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		st := base
		if o, ok := m.Groups[name]; ok {
			st = o.Stagger()
		}
		p.Engine.SetStagger(name, st)
	}
}

func (p *Page) buildElement(spec ElementSpec) {
	el := lumen.NewElement(spec.Name, spec.Bounds.Rect())
	el.Fixed = spec.Fixed
	el.Interactive = spec.Interactive
	el.ZIndex = spec.ZIndex
	el.Text = spec.Text
	if spec.Color.IsSet() {
		el.Color = spec.Color.Color
	}
	if len(spec.Data) > 0 {
		el.Data = maps.Clone(spec.Data)
	}
	for _, name := range slices.Sorted(maps.Keys(spec.Initial)) {
		prop, ok := lumen.ParseProperty(name)
		if !ok {
			p.skip(spec.Name, name, "unknown property")
			continue
		}
		el.SetProperty(prop, spec.Initial[name])
	}
	p.Engine.Add(el)
	p.Elements[spec.Name] = el
	p.order = append(p.order, spec.Name)
}

// revealOptions merges element, manifest and environment reveal settings.
func (p *Page) revealOptions(m *Manifest, r *RevealSpec) lumen.ObserveOptions {
	opts := lumen.ObserveOptions{
		Threshold:  p.defaults.RevealThreshold,
		RootMargin: lumen.Margin{Bottom: p.defaults.RevealMarginBottom},
	}
	if m.Reveal.Threshold != nil {
		opts.Threshold = *m.Reveal.Threshold
	}
	if m.Reveal.RootMargin != nil {
		opts.RootMargin = lumen.Margin(*m.Reveal.RootMargin)
	}
	if r == nil {
		return opts
	}
	if r.Threshold != nil {
		opts.Threshold = *r.Threshold
	}
	if r.RootMargin != nil {
		opts.RootMargin = lumen.Margin(*r.RootMargin)
	}
	opts.Repeatable = r.Repeatable
	return opts
}

// entrance returns the reveal transition for el: hidden now, then faded and
// slid into place when run.
func (p *Page) entrance(m *Manifest, el *lumen.Element, dur *Duration, easeID string) func(*lumen.Element) {
	d := p.defaults.RevealDuration
	if m.Reveal.Duration != nil {
		d = p.duration("reveal", *m.Reveal.Duration)
	}
	if dur != nil {
		d = p.duration(el.Name, *dur)
	}
	if easeID == "" {
		easeID = m.Reveal.Ease
	}
	if easeID == "" {
		easeID = p.defaults.RevealEase
	}
	fn := p.Engine.Eases().Resolve(p.ease(el.Name, easeID))
	offset := p.defaults.RevealOffsetY
	if m.Reveal.OffsetY != nil {
		offset = *m.Reveal.OffsetY
	}

	el.SetProperty(lumen.PropOpacity, 0)
	el.SetProperty(lumen.PropTranslateY, offset)
	class := m.Reveal.Class
	if class == "" {
		class = ClassVisible
	}
	return func(el *lumen.Element) {
		el.SetClass(class, true)
		p.Engine.Tween(lumen.TweenEntrance(el, float32(d.Seconds()), fn))
	}
}

func (p *Page) counter(el *lumen.Element, c CounterSpec) func() {
	target := lumen.ParseTarget(c.Target)
	if _, err := strconv.ParseFloat(strings.TrimSpace(c.Target), 64); err != nil {
		p.skip(el.Name, c.Target, "non-numeric counter target, using 0")
	}
	dur := p.duration(el.Name, c.Duration)
	easeID := p.ease(el.Name, c.Ease)
	el.SetText(lumen.FormatCounter(c.From, target))
	return func() {
		p.Engine.Animate(el, target, c.From, dur, easeID)
	}
}

func (p *Page) buildEffects(m *Manifest, spec ElementSpec) {
	el := p.Elements[spec.Name]
	if f := spec.ScrollFlag; f != nil {
		class := f.Class
		if class == "" {
			class = "scrolled"
		}
		p.Engine.AddScrollFlag(el, class, f.Threshold)
	}
	if t := spec.Tilt; t != nil {
		p.Engine.AddTilt(el, lumen.Tilt{MaxAngle: t.MaxAngle})
	}
	if f := spec.Follow; f != nil {
		p.Engine.Follow(el, lumen.Vec2{X: f.OffsetX, Y: f.OffsetY})
	}

	var count func()
	if spec.Counter != nil {
		count = p.counter(el, *spec.Counter)
	}
	switch {
	case spec.Reveal != nil:
		show := p.entrance(m, el, spec.Reveal.Duration, spec.Reveal.Ease)
		p.Engine.Reveal(el, lumen.RevealOptions{
			Observe: p.revealOptions(m, spec.Reveal),
			Group:   spec.Reveal.Group,
			Run: func(el *lumen.Element) {
				show(el)
				if count != nil {
					count()
				}
			},
		})
	case count != nil:
		p.Engine.Observe(el, p.revealOptions(m, nil), func(lumen.Entry) { count() })
	}
}

func (p *Page) buildEntrance(m *Manifest, spec EntranceSpec) {
	after := p.duration("entrance", spec.After)
	for _, st := range spec.Steps {
		el := p.element("entrance", st.Element)
		if el == nil {
			continue
		}
		p.steps = append(p.steps, lumen.Step{
			Element: el,
			Delay:   after + p.duration("entrance", st.Delay),
			Run:     p.entrance(m, el, spec.Duration, spec.Ease),
		})
	}
}

func (p *Page) buildTimeline(spec TimelineSpec) error {
	b := p.Engine.NewTimelineBuilder(spec.Name)
	section := "timeline " + spec.Name
	for _, tw := range spec.Tweens {
		var targets []*lumen.Element
		for _, name := range tw.Targets {
			if el := p.element(section, name); el != nil {
				targets = append(targets, el)
			}
		}
		var to []lumen.PropValue
		for _, name := range slices.Sorted(maps.Keys(tw.To)) {
			prop, ok := lumen.ParseProperty(name)
			if !ok {
				p.skip(section, name, "unknown property")
				continue
			}
			to = append(to, lumen.PropValue{Property: prop, Value: tw.To[name]})
		}
		b.To(lumen.TweenSpec{
			Targets:  targets,
			To:       to,
			Duration: tw.Duration,
			Ease:     p.ease(section, tw.Ease),
			Stagger:  tw.Stagger,
			Priority: tw.Priority,
		}, tw.Position)
	}
	tl, err := b.Build()
	if err != nil {
		return fmt.Errorf("timeline %q: %w", spec.Name, err)
	}
	p.Timelines[spec.Name] = tl

	if spec.Mode == ModeScrub {
		p.Scrubs[spec.Name] = p.Engine.Scrub(tl, lumen.ScrollTrigger{Start: spec.Trigger.Start, End: spec.Trigger.End})
		return nil
	}
	p.plays = append(p.plays, playSpec{name: spec.Name, tl: tl, delay: p.duration(section, spec.Delay)})
	return nil
}

func (p *Page) buildToggles(spec ToggleSpec) {
	g, ok := p.Toggles[spec.Group]
	if !ok {
		g = p.Engine.NewToggleGroup(spec.Group, spec.LockScroll)
		p.Toggles[spec.Group] = g
	}
	section := "toggle " + spec.Group

	// Close buttons and the backdrop only take clicks while something in
	// the group is open, so a closed overlay never swallows page clicks.
	// Filled content sits on the panel: while open it takes clicks itself
	// so clicking it does not reach the backdrop underneath.
	var closers, content []*lumen.Element
	sync := func(*lumen.Toggle) {
		open := g.Active() != nil
		for _, el := range closers {
			el.Interactive = open
		}
		for _, el := range content {
			el.Interactive = open
		}
	}

	for _, item := range spec.Items {
		id := item.ID
		t := g.Add(id, p.element(section, item.Panel))
		t.OnOpen = sync
		t.OnClose = sync

		fill := make(map[*lumen.Element]string, len(item.Fill))
		for _, name := range slices.Sorted(maps.Keys(item.Fill)) {
			if el := p.element(section, name); el != nil {
				fill[el] = item.Fill[name]
				content = append(content, el)
			}
		}
		for _, name := range item.Triggers {
			trigger := p.element(section, name)
			if trigger == nil {
				continue
			}
			trigger.Interactive = true
			trigger.OnClick = func(src *lumen.Element, _, _ float64) {
				if t.State() == lumen.Open {
					g.Close(id)
					return
				}
				for el, key := range fill {
					el.SetText(src.Data[key])
				}
				g.Open(id)
			}
		}
		if closer := p.element(section, item.Close); closer != nil {
			closer.OnClick = func(*lumen.Element, float64, float64) { g.Close(id) }
			closers = append(closers, closer)
		}
	}
	if backdrop := p.element(section, spec.Backdrop); backdrop != nil {
		backdrop.OnClick = func(*lumen.Element, float64, float64) {
			if t := g.Active(); t != nil {
				g.Backdrop(t.ID, true)
			}
		}
		closers = append(closers, backdrop)
		for _, el := range content {
			el.ZIndex = max(el.ZIndex, backdrop.ZIndex+1)
		}
	}
	sync(nil)
}

func (p *Page) buildCart(spec CartSpec) {
	c := p.Engine.NewCart(
		p.element("cart", spec.Badge),
		p.element("cart", spec.Toast),
		p.element("cart", spec.ToastText),
	)
	if spec.Duration != nil {
		c.ToastDuration = p.duration("cart", *spec.Duration)
	}
	for _, b := range spec.Buttons {
		btn := p.element("cart", b.Element)
		if btn == nil {
			continue
		}
		product := b.Product
		btn.Interactive = true
		btn.OnClick = func(el *lumen.Element, x, y float64) {
			c.Click(product, el, x, y)
		}
	}
	p.Cart = c
}

func (p *Page) buildParticles(m *Manifest, spec ParticleSpec) {
	vp := p.Engine.Viewport()
	bounds := lumen.Rect{Width: vp.Width, Height: vp.Height}
	if spec.Bounds != nil {
		bounds = spec.Bounds.Rect()
	}
	col := lumen.ColorWhite
	if spec.Color.IsSet() {
		col = spec.Color.Color
	}
	f := lumen.NewParticleField(lumen.FieldConfig{
		Count:   spec.Count,
		Bounds:  bounds,
		Speed:   spec.Speed,
		Size:    spec.Size,
		Alpha:   spec.Alpha,
		Twinkle: spec.Twinkle,
		Color:   col,
		Seed:    spec.Seed,
	})
	p.Engine.AddParticleField(f)
	p.Particles[spec.Name] = f
}
